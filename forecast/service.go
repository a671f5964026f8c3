package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/changepoint"
	"github.com/sartorproj/pricecast/metrics"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/stats"
	"github.com/sartorproj/pricecast/timeseries"
)

var validate = validator.New()

// Request asks for a forecast of one symbol.
type Request struct {
	Symbol   string `json:"symbol" validate:"required"`
	DaysBack int    `json:"days_back" validate:"gte=2"`
	// Target and Exog name the OHLC columns; they default to close and open.
	Target string `json:"target,omitempty" validate:"omitempty,oneof=open high low close"`
	Exog   string `json:"exog,omitempty" validate:"omitempty,oneof=open high low close"`
	// NextOpen is the assumed next value of the exogenous column. It is held
	// for every step.
	NextOpen float64 `json:"next_open" validate:"gt=0"`
	Steps    int     `json:"steps" validate:"gte=0,lte=30"`
}

// Response is the outcome of one forecast run.
type Response struct {
	RunID        string                    `json:"run_id"`
	Symbol       string                    `json:"symbol"`
	Target       string                    `json:"target"`
	Exog         string                    `json:"exog"`
	Observations int                       `json:"observations"`
	LastPrice    float64                   `json:"last_price"`
	Stationarity *stats.StationarityReport `json:"stationarity"`
	Summary      *arimax.Summary           `json:"summary"`
	Changepoints []int                     `json:"changepoints"`
	Forecast     *ForecastResult           `json:"forecast"`
	Elapsed      time.Duration             `json:"elapsed"`
}

// Forecaster runs the pipeline against a PriceReader.
type Forecaster struct {
	reader timeseries.PriceReader
	cfg    Config
	log    zerolog.Logger
	rec    metrics.Recorder
	now    func() time.Time
}

// NewForecaster creates a Forecaster. A nil recorder discards metrics.
func NewForecaster(reader timeseries.PriceReader, cfg Config, log zerolog.Logger, rec metrics.Recorder) *Forecaster {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Forecaster{
		reader: reader,
		cfg:    cfg,
		log:    log,
		rec:    rec,
		now:    time.Now,
	}
}

// Config returns the pipeline configuration.
func (f *Forecaster) Config() Config { return f.cfg }

// Run reads prices, fits the pipeline and forecasts req.Steps (at least one)
// days ahead.
func (f *Forecaster) Run(ctx context.Context, req Request) (*Response, error) {
	if err := validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if req.Target == "" {
		req.Target = timeseries.ColumnClose
	}
	if req.Exog == "" {
		req.Exog = timeseries.ColumnOpen
	}
	steps := max(req.Steps, 1)

	start := time.Now()
	runID := uuid.NewString()
	log := f.log.With().Str("run_id", runID).Str("symbol", req.Symbol).Logger()
	log.Info().
		Int("days_back", req.DaysBack).
		Str("target", req.Target).
		Str("exog", req.Exog).
		Int("steps", steps).
		Msg("forecast started")

	resp, err := f.run(ctx, req, steps, log)
	elapsed := time.Since(start)
	if err != nil {
		f.rec.RecordForecast(req.Symbol, metrics.OutcomeError, elapsed)
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("forecast failed")
		return nil, err
	}
	resp.RunID = runID
	resp.Elapsed = elapsed
	f.rec.RecordForecast(req.Symbol, metrics.OutcomeOK, elapsed)
	f.rec.RecordLastForecast(req.Symbol, resp.Forecast.Rows[0].Forecast)

	first := resp.Forecast.Rows[0]
	log.Info().
		Stringer("order", resp.Forecast.Order).
		Float64("forecast", first.Forecast).
		Float64("lower_ci", first.LowerCI).
		Float64("upper_ci", first.UpperCI).
		Dur("elapsed", elapsed).
		Msg("forecast finished")
	return resp, nil
}

func (f *Forecaster) run(ctx context.Context, req Request, steps int, log zerolog.Logger) (*Response, error) {
	prepared, err := PrepareAndValidate(ctx, f.reader, req.Symbol, req.DaysBack, f.now())
	if err != nil {
		return nil, err
	}

	cfg := f.cfg
	cfg.Logger = &log
	fit, err := PrepareDataAndFit(prepared.Prices, req.Target, req.Exog, cfg)
	if err != nil {
		var nsErr *NonStationaryError
		if errors.As(err, &nsErr) {
			f.rec.RecordStationarity(req.Target, false)
		}
		return nil, err
	}
	f.rec.RecordStationarity(req.Target, fit.Stationarity.Stationary())
	f.rec.RecordSearch(fit.Order.String(), len(fit.Search.Candidates), fit.Search.Failed(), fit.SearchDuration)

	exog := make([]float64, steps)
	for i := range exog {
		exog[i] = req.NextOpen
	}
	result, err := ForecastPrices(fit.Model, exog, fit.LastPrice, cfg.Alpha)
	if err != nil {
		return nil, err
	}

	return &Response{
		Symbol:       req.Symbol,
		Target:       req.Target,
		Exog:         req.Exog,
		Observations: prepared.Prices.Len(),
		LastPrice:    fit.LastPrice,
		Stationarity: fit.Stationarity,
		Summary:      fit.Model.Summary(),
		Changepoints: fit.Changepoints,
		Forecast:     result,
	}, nil
}

// Stationarity runs the stationarity gate on the log-difference of one
// column.
func (f *Forecaster) Stationarity(ctx context.Context, symbol, column string, daysBack int) (*stats.StationarityReport, error) {
	prepared, err := PrepareAndValidate(ctx, f.reader, symbol, daysBack, f.now())
	if err != nil {
		return nil, err
	}
	values, err := prepared.Column(column)
	if err != nil {
		return nil, err
	}
	report, err := stats.CheckStationarity(values, f.cfg.Signif)
	if err != nil {
		return nil, err
	}
	f.rec.RecordStationarity(column, report.Stationary())
	return report, nil
}

// Smooth smooths one price column and attaches interval bands.
func (f *Forecaster) Smooth(ctx context.Context, symbol, column string, daysBack int, kind smooth.Kind) (*smooth.SmoothedSeries, error) {
	series, err := f.column(ctx, symbol, column, daysBack)
	if err != nil {
		return nil, err
	}
	return smooth.Bands(kind, series.Values, f.cfg.Window, f.cfg.CI)
}

// Changepoints detects level shifts in one price column, smoothed first
// when a smoother is configured.
func (f *Forecaster) Changepoints(ctx context.Context, symbol, column string, daysBack int) ([]int, error) {
	series, err := f.column(ctx, symbol, column, daysBack)
	if err != nil {
		return nil, err
	}
	values := series.Values
	if f.cfg.Smoother != nil {
		if values, err = f.cfg.Smoother.Smooth(values, f.cfg.Window); err != nil {
			return nil, err
		}
	}
	return changepoint.DetectLevelShifts(values, f.cfg.Changepoints)
}

func (f *Forecaster) column(ctx context.Context, symbol, column string, daysBack int) (*timeseries.Series, error) {
	prepared, err := PrepareAndValidate(ctx, f.reader, symbol, daysBack, f.now())
	if err != nil {
		return nil, err
	}
	return prepared.Prices.Column(column)
}
