// Package server exposes the forecasting pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sartorproj/pricecast/config"
	"github.com/sartorproj/pricecast/forecast"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/stats"
	"github.com/sartorproj/pricecast/timeseries"
)

// Server routes HTTP requests to a Forecaster.
type Server struct {
	forecaster *forecast.Forecaster
	gatherer   prometheus.Gatherer
	log        zerolog.Logger
	cfg        config.ServerConfig
	daysBack   int
	router     chi.Router
}

// New builds the router. daysBack is used when a request does not name a
// window. A nil gatherer disables the metrics endpoint.
func New(f *forecast.Forecaster, gatherer prometheus.Gatherer, log zerolog.Logger, cfg config.ServerConfig, daysBack int) *Server {
	s := &Server{
		forecaster: f,
		gatherer:   gatherer,
		log:        log,
		cfg:        cfg,
		daysBack:   daysBack,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/forecast", s.handleForecast)
		r.Route("/symbols/{symbol}", func(r chi.Router) {
			r.Get("/stationarity", s.handleStationarity)
			r.Get("/smooth", s.handleSmooth)
			r.Get("/changepoints", s.handleChangepoints)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := s.log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			event = s.log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecast.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.renderError(w, r, badRequest("decode request: %v", err))
		return
	}
	if req.DaysBack == 0 {
		req.DaysBack = s.daysBack
	}

	resp, err := s.forecaster.Run(r.Context(), req)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// StationarityResponse is returned by the stationarity endpoint.
type StationarityResponse struct {
	Symbol     string `json:"symbol"`
	Column     string `json:"column"`
	Stationary bool   `json:"stationary"`
	*stats.StationarityReport
}

func (s *Server) handleStationarity(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	report, err := s.forecaster.Stationarity(r.Context(), q.symbol, q.column, q.daysBack)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, StationarityResponse{
		Symbol:             q.symbol,
		Column:             q.column + forecast.LogDiffSuffix,
		Stationary:         report.Stationary(),
		StationarityReport: report,
	})
}

// SmoothResponse is returned by the smoothing endpoint.
type SmoothResponse struct {
	Symbol string `json:"symbol"`
	Column string `json:"column"`
	*smooth.SmoothedSeries
}

func (s *Server) handleSmooth(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	kind := smooth.KindLowess
	if cfg := s.forecaster.Config(); cfg.Smoother != nil {
		kind = *cfg.Smoother
	}
	if name := r.URL.Query().Get("kind"); name != "" {
		if kind, err = smooth.ParseKind(name); err != nil {
			s.renderError(w, r, err)
			return
		}
	}

	smoothed, err := s.forecaster.Smooth(r.Context(), q.symbol, q.column, q.daysBack, kind)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, SmoothResponse{Symbol: q.symbol, Column: q.column, SmoothedSeries: smoothed})
}

// ChangepointsResponse is returned by the changepoint endpoint.
type ChangepointsResponse struct {
	Symbol       string `json:"symbol"`
	Column       string `json:"column"`
	Changepoints []int  `json:"changepoints"`
}

func (s *Server) handleChangepoints(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	bkps, err := s.forecaster.Changepoints(r.Context(), q.symbol, q.column, q.daysBack)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, ChangepointsResponse{Symbol: q.symbol, Column: q.column, Changepoints: bkps})
}

type symbolQuery struct {
	symbol   string
	column   string
	daysBack int
}

func (s *Server) parseQuery(r *http.Request) (symbolQuery, error) {
	q := symbolQuery{
		symbol:   chi.URLParam(r, "symbol"),
		column:   r.URL.Query().Get("column"),
		daysBack: s.daysBack,
	}
	if q.column == "" {
		q.column = timeseries.ColumnClose
	}
	if !isColumn(q.column) {
		return q, badRequest("unknown column %q", q.column)
	}
	if v := r.URL.Query().Get("days_back"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 {
			return q, badRequest("days_back must be an integer of at least 2, got %q", v)
		}
		q.daysBack = n
	}
	return q, nil
}

func isColumn(name string) bool {
	for _, c := range timeseries.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
