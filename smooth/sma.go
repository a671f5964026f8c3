package smooth

import (
	"fmt"
	"math"

	"github.com/sartorproj/pricecast/timeseries"
)

// SMA computes a centered rolling mean. Windows are clipped at the
// edges and missing values are skipped, so a point is only NaN when its
// whole window is missing.
func SMA(values []float64, window int) ([]float64, error) {
	if len(values) == 0 {
		return nil, timeseries.ErrEmptySeries
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidParameter, window)
	}
	return sma(values, window), nil
}

func sma(values []float64, window int) []float64 {
	n := len(values)
	offset := (window - 1) / 2
	out := make([]float64, n)
	for i := range out {
		end := i + 1 + offset
		start := end - window
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}
		sum, count := 0.0, 0
		for _, v := range values[start:end] {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
		}
		if count == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}
