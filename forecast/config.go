package forecast

import (
	"github.com/rs/zerolog"
	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/changepoint"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/stats"
)

// Config holds every pipeline knob.
type Config struct {
	// Smoother, when set, smooths the target and exogenous columns before
	// the log-difference transform.
	Smoother *smooth.Kind
	Window   int
	// CI is the confidence level in percent for smoothing bands.
	CI float64
	// Signif is the stationarity test significance level.
	Signif float64
	// Strict refuses to fit a target that fails the stationarity gate.
	// When false the failure is logged as a warning and fitting proceeds.
	Strict bool
	// Alpha sets forecast interval coverage to 1-Alpha.
	Alpha float64

	Search       arimax.SearchOptions
	Changepoints changepoint.Options

	Logger *zerolog.Logger
}

// DefaultConfig returns a strict, unsmoothed configuration with 95%
// intervals.
func DefaultConfig() Config {
	return Config{
		Window:       smooth.DefaultWindow,
		CI:           smooth.DefaultCI,
		Signif:       stats.DefaultSignif,
		Strict:       true,
		Alpha:        arimax.DefaultAlpha,
		Search:       arimax.DefaultSearchOptions(),
		Changepoints: changepoint.DefaultOptions(),
	}
}

func (c Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return zerolog.Nop()
	}
	return *c.Logger
}
