package smooth

import (
	"fmt"
	"math"
	"sort"

	"github.com/sartorproj/pricecast/timeseries"
)

// DefaultIterations is the number of robustifying passes after the first fit.
const DefaultIterations = 2

// Lowess fits locally weighted linear regression against the observation
// index. The bandwidth fraction is window/n clamped to [0.01, 1]. Missing
// values are filled with 0 before fitting, so callers that do not want that
// must clean the series first. Every index gets a fitted value.
func Lowess(values []float64, window, iterations int) ([]float64, error) {
	if len(values) == 0 {
		return nil, timeseries.ErrEmptySeries
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidParameter, window)
	}
	if iterations < 0 {
		return nil, fmt.Errorf("%w: iterations must be non-negative, got %d", ErrInvalidParameter, iterations)
	}
	return lowess(values, window, iterations), nil
}

func lowess(values []float64, window, iterations int) []float64 {
	n := len(values)
	y := make([]float64, n)
	for i, v := range values {
		if math.IsNaN(v) {
			v = 0
		}
		y[i] = v
	}
	if n == 1 {
		return y
	}

	frac := math.Min(math.Max(float64(window)/float64(n), 0.01), 1)
	k := int(frac*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	fitted := make([]float64, n)
	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}

	for pass := 0; pass <= iterations; pass++ {
		left, right := 0, k
		for i := 0; i < n; i++ {
			// Slide the k-nearest window while the far right point is closer.
			for right < n && float64(i-left) > float64(right-i) {
				left++
				right++
			}
			fitted[i] = localLinear(y, robust, i, left, right)
		}
		if pass < iterations {
			robust = bisquareWeights(y, fitted)
		}
	}
	return fitted
}

// localLinear fits y ~ a + b*x over [left, right) with tricube distance
// weights scaled by robustness weights, and evaluates it at x = i.
func localLinear(y, robust []float64, i, left, right int) float64 {
	radius := math.Max(float64(i-left), float64(right-1-i))
	if radius == 0 {
		return y[i]
	}

	sumW, sumWX, sumWY := 0.0, 0.0, 0.0
	weights := make([]float64, right-left)
	for j := left; j < right; j++ {
		d := math.Abs(float64(j-i)) / radius
		w := 0.0
		if d < 1 {
			c := 1 - d*d*d
			w = c * c * c
		}
		w *= robust[j]
		weights[j-left] = w
		sumW += w
		sumWX += w * float64(j)
		sumWY += w * y[j]
	}
	if sumW <= 0 {
		return y[i]
	}

	xMean := sumWX / sumW
	yMean := sumWY / sumW

	sxx, sxy := 0.0, 0.0
	for j := left; j < right; j++ {
		dx := float64(j) - xMean
		sxx += weights[j-left] * dx * dx
		sxy += weights[j-left] * dx * (y[j] - yMean)
	}

	// Fall back to the weighted mean when the local design is degenerate.
	span := float64(right - 1 - left)
	if math.Sqrt(sxx/sumW) <= 1e-3*span {
		return yMean
	}
	return yMean + sxy/sxx*(float64(i)-xMean)
}

// bisquareWeights downweights points whose residual is large relative to six
// times the median absolute residual.
func bisquareWeights(y, fitted []float64) []float64 {
	n := len(y)
	abs := make([]float64, n)
	for i := range y {
		abs[i] = math.Abs(y[i] - fitted[i])
	}
	sorted := make([]float64, n)
	copy(sorted, abs)
	sort.Float64s(sorted)

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	weights := make([]float64, n)
	scale := 6 * median
	if scale == 0 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	for i, r := range abs {
		u := r / scale
		if u < 1 {
			c := 1 - u*u
			weights[i] = c * c
		}
	}
	return weights
}
