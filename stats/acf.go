package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ACF calculates the sample autocorrelation function for lags 0 to maxLag.
// It returns nil for a constant or empty series.
func ACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(values, nil)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}

	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / variance
	}

	return acf
}

// PACF calculates the partial autocorrelation function using the
// Durbin-Levinson algorithm. Element 0 is 1; elements 1..maxLag are the
// partial autocorrelations, which also equal the last Yule-Walker
// coefficient at each order.
func PACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	acf := ACF(values, maxLag)
	if acf == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1.0

	phi := make([][]float64, maxLag+1)
	for i := range phi {
		phi[i] = make([]float64, maxLag+1)
	}

	phi[1][1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
			den -= phi[k-1][j] * acf[j]
		}

		if den == 0 {
			pacf[k] = 0
			continue
		}

		phi[k][k] = num / den
		pacf[k] = phi[k][k]

		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
	}

	return pacf
}

// ConfidenceBound returns the approximate 95% white-noise bound 1.96/sqrt(n).
func ConfidenceBound(n int) float64 {
	return 1.96 / math.Sqrt(float64(n))
}

// SignificantLags returns the lags where ACF/PACF values exceed confBound.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}
