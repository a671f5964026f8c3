package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/changepoint"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/stats"
	"github.com/sartorproj/pricecast/timeseries"
)

// ErrNonStationary is matched by every NonStationaryError.
var ErrNonStationary = errors.New("series is not stationary after log-differencing")

// NonStationaryError reports a target that failed the stationarity gate.
type NonStationaryError struct {
	Column string
	Report *stats.StationarityReport
}

func (e *NonStationaryError) Error() string {
	return fmt.Sprintf("%s %s (ADF stationary=%t, KPSS stationary=%t)",
		e.Column, ErrNonStationary,
		e.Report.Conclusion.ADFStationary, e.Report.Conclusion.KPSSStationary)
}

func (e *NonStationaryError) Is(target error) bool { return target == ErrNonStationary }

// Fit is a fitted model together with the data it was fitted on.
type Fit struct {
	Model  *arimax.Model
	Order  arimax.Order
	Search *arimax.SearchResult
	// Target and Exog are the log-difference series the model was fitted on.
	Target       []float64
	Exog         []float64
	Stationarity *stats.StationarityReport
	// LastPrice is the last observed, or smoothed, target price.
	LastPrice float64
	// Smoothed holds the target bands when a smoother is configured.
	Smoothed *smooth.SmoothedSeries
	// Changepoints index level shifts of the (smoothed) target prices.
	Changepoints   []int
	SearchDuration time.Duration
}

// PrepareDataAndFit fits an ARIMAX model of the log-difference of priceCol on
// the log-difference of exogCol. The target must pass the stationarity gate;
// with cfg.Strict false a failure is logged and fitting proceeds.
func PrepareDataAndFit(prices *timeseries.PriceSeries, priceCol, exogCol string, cfg Config) (*Fit, error) {
	log := cfg.logger()
	if prices == nil {
		return nil, timeseries.ErrEmptySeries
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	target, err := prices.Column(priceCol)
	if err != nil {
		return nil, err
	}
	exog, err := prices.Column(exogCol)
	if err != nil {
		return nil, err
	}

	fit := &Fit{}
	targetLevels, exogLevels := target.Values, exog.Values
	if cfg.Smoother != nil {
		fit.Smoothed, err = smooth.Bands(*cfg.Smoother, targetLevels, cfg.Window, cfg.CI)
		if err != nil {
			return nil, fmt.Errorf("smooth %s: %w", priceCol, err)
		}
		targetLevels = fit.Smoothed.Fitted
		exogLevels, err = cfg.Smoother.Smooth(exogLevels, cfg.Window)
		if err != nil {
			return nil, fmt.Errorf("smooth %s: %w", exogCol, err)
		}
	}
	fit.LastPrice = targetLevels[len(targetLevels)-1]

	fit.Target, err = timeseries.LogDifference(targetLevels, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", priceCol, err)
	}
	fit.Exog, err = timeseries.LogDifference(exogLevels, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exogCol, err)
	}

	fit.Stationarity, err = stats.CheckStationarity(fit.Target, cfg.Signif)
	if err != nil {
		return nil, fmt.Errorf("%s stationarity: %w", priceCol, err)
	}
	if !fit.Stationarity.Stationary() {
		nsErr := &NonStationaryError{Column: priceCol, Report: fit.Stationarity}
		if cfg.Strict {
			return nil, nsErr
		}
		log.Warn().
			Str("column", priceCol).
			Bool("adf_stationary", fit.Stationarity.Conclusion.ADFStationary).
			Bool("kpss_stationary", fit.Stationarity.Conclusion.KPSSStationary).
			Msg("fitting a non-stationary target; forecasts may be unreliable")
	}

	opts := cfg.Search
	if opts.Logger == nil {
		opts.Logger = &log
	}
	start := time.Now()
	fit.Search, err = arimax.SelectBestOrder(fit.Target, fit.Exog, opts)
	fit.SearchDuration = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", priceCol, exogCol, err)
	}
	fit.Model = fit.Search.Model
	fit.Order = fit.Search.Order

	fit.Changepoints, err = changepoint.DetectLevelShifts(targetLevels, cfg.Changepoints)
	if err != nil {
		log.Warn().Err(err).Str("column", priceCol).Msg("changepoint detection skipped")
		fit.Changepoints = []int{}
	}

	return fit, nil
}

// FitAndForecastNextDay fits the pipeline and forecasts one step ahead given
// the next value of the exogenous column, typically the next day's open.
func FitAndForecastNextDay(prices *timeseries.PriceSeries, priceCol, exogCol string, nextExog float64, cfg Config) (*ForecastResult, error) {
	fit, err := PrepareDataAndFit(prices, priceCol, exogCol, cfg)
	if err != nil {
		return nil, err
	}
	return ForecastPrices(fit.Model, []float64{nextExog}, fit.LastPrice, cfg.Alpha)
}
