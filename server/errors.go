package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/changepoint"
	"github.com/sartorproj/pricecast/forecast"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/stats"
	"github.com/sartorproj/pricecast/timeseries"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ErrResponse is the JSON body of every failed request.
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	Status         string `json:"status"`
	Error          string `json:"error"`
	RequestID      string `json:"request_id,omitempty"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	_ = render.Render(w, r, &ErrResponse{
		HTTPStatusCode: code,
		Status:         http.StatusText(code),
		Error:          err.Error(),
		RequestID:      middleware.GetReqID(r.Context()),
	})
}

// statusCode maps pipeline errors to HTTP status codes. Bad input is 400, a
// missing symbol or empty window is 404, and data the pipeline cannot model
// is 422.
func statusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, errBadRequest),
		errors.As(err, &verrs),
		errors.Is(err, arimax.ErrInvalidInput),
		errors.Is(err, smooth.ErrInvalidParameter),
		errors.Is(err, changepoint.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, timeseries.ErrEmptySeries):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrNonStationary),
		errors.Is(err, arimax.ErrInsufficientData),
		errors.Is(err, arimax.ErrConstantSeries),
		errors.Is(err, arimax.ErrNoViableModel),
		errors.Is(err, timeseries.ErrNonPositive),
		errors.Is(err, timeseries.ErrInvalidPrices),
		errors.Is(err, stats.ErrTooShort),
		errors.Is(err, stats.ErrSingular):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
