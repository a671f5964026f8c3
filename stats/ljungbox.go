package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Lags      int     `json:"lags"`
	DOF       int     `json:"dof"`
}

// LjungBox performs the Ljung-Box test for autocorrelation in residuals.
// The null hypothesis is no autocorrelation up to lag h. fitdf is the number
// of estimated ARMA parameters (p + q). It returns nil when the residuals are
// too short or constant.
func LjungBox(residuals []float64, lags, fitdf int) *LjungBoxResult {
	n := len(residuals)
	if n < 10 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi := distuv.ChiSquared{K: float64(dof)}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chi.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order
// autocorrelation. Values near 2 indicate none. It returns NaN when fewer
// than two residuals are given or all are zero.
func DurbinWatson(residuals []float64) float64 {
	n := len(residuals)
	if n < 2 {
		return math.NaN()
	}

	numerator := 0.0
	denominator := 0.0

	for i := 1; i < n; i++ {
		diff := residuals[i] - residuals[i-1]
		numerator += diff * diff
	}

	for _, r := range residuals {
		denominator += r * r
	}

	if denominator == 0 {
		return math.NaN()
	}

	return numerator / denominator
}
