package smooth

import (
	"fmt"
	"math"

	"github.com/sartorproj/pricecast/timeseries"
	"gonum.org/v1/gonum/stat"
)

// heuristicObs is the number of leading observations the initial level is
// regressed on.
const heuristicObs = 10

// Alpha returns the fixed smoothing level 2/(window+1).
func Alpha(window int) float64 {
	return 2 / (float64(window) + 1)
}

// Exponential applies simple exponential smoothing with level Alpha(window).
// Alpha is never estimated. The fitted value at t is the level after t-1,
// i.e. the one-step-ahead forecast, and fitted[0] is the initial level.
// Missing observations leave the level unchanged.
//
// The initial level is the intercept of a linear fit of the first ten
// observations on t = 1..10. Shorter series start from the first
// observation.
func Exponential(values []float64, window int) ([]float64, error) {
	if len(values) == 0 {
		return nil, timeseries.ErrEmptySeries
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidParameter, window)
	}
	return exponential(values, window), nil
}

func exponential(values []float64, window int) []float64 {
	alpha := Alpha(window)
	level := initialLevel(values)

	fitted := make([]float64, len(values))
	for t, v := range values {
		fitted[t] = level
		if math.IsNaN(v) {
			continue
		}
		level = alpha*v + (1-alpha)*level
	}
	return fitted
}

func initialLevel(values []float64) float64 {
	first := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	if len(values) < heuristicObs {
		return first
	}

	var x, y []float64
	for i, v := range values[:heuristicObs] {
		if math.IsNaN(v) {
			continue
		}
		x = append(x, float64(i+1))
		y = append(y, v)
	}
	if len(x) < 2 {
		return first
	}
	intercept, _ := stat.LinearRegression(x, y, nil, false)
	return intercept
}
