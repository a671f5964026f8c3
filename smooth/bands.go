package smooth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SmoothedSeries holds fitted values and two interval bands, all of the
// input's length. The confidence band describes the uncertainty of the
// fitted trend; the prediction band that of a single observation.
type SmoothedSeries struct {
	Kind    Kind      `json:"kind"`
	Window  int       `json:"window"`
	CI      float64   `json:"ci"`
	Sigma   float64   `json:"sigma"`
	Fitted  []float64 `json:"fitted"`
	CILower []float64 `json:"ci_lower"`
	CIUpper []float64 `json:"ci_upper"`
	PILower []float64 `json:"pi_lower"`
	PIUpper []float64 `json:"pi_upper"`
}

// Len returns the number of points.
func (s *SmoothedSeries) Len() int {
	return len(s.Fitted)
}

// ZScore returns the two-sided standard normal quantile for a confidence
// level given in percent.
func ZScore(ci float64) float64 {
	return distuv.UnitNormal.Quantile(1 - (1-ci/100)/2)
}

// Bands smooths values with kind and attaches residual-based intervals:
//
//	CI half-width = z*sigma/sqrt(window)
//	PI half-width = z*sigma
//
// sigma is the population standard deviation of the residuals, skipping
// residuals that are NaN.
func Bands(kind Kind, values []float64, window int, ci float64) (*SmoothedSeries, error) {
	if !(ci > 0 && ci < 100) {
		return nil, fmt.Errorf("%w: confidence level must be in (0, 100), got %g", ErrInvalidParameter, ci)
	}
	fitted, err := kind.Smooth(values, window)
	if err != nil {
		return nil, err
	}

	sigma := residualStd(values, fitted)
	z := ZScore(ci)
	ciMargin := z * sigma / math.Sqrt(float64(window))
	piMargin := z * sigma

	n := len(fitted)
	out := &SmoothedSeries{
		Kind:    kind,
		Window:  window,
		CI:      ci,
		Sigma:   sigma,
		Fitted:  fitted,
		CILower: make([]float64, n),
		CIUpper: make([]float64, n),
		PILower: make([]float64, n),
		PIUpper: make([]float64, n),
	}
	for i, f := range fitted {
		out.CILower[i] = f - ciMargin
		out.CIUpper[i] = f + ciMargin
		out.PILower[i] = f - piMargin
		out.PIUpper[i] = f + piMargin
	}
	return out, nil
}

func residualStd(values, fitted []float64) float64 {
	sum, count := 0.0, 0
	residuals := make([]float64, 0, len(values))
	for i, v := range values {
		r := v - fitted[i]
		if math.IsNaN(r) {
			continue
		}
		residuals = append(residuals, r)
		sum += r
		count++
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	ss := 0.0
	for _, r := range residuals {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss / float64(count))
}

// LowessCIPI is Bands with the LOWESS smoother.
func LowessCIPI(values []float64, window int, ci float64) (*SmoothedSeries, error) {
	return Bands(KindLowess, values, window, ci)
}

// ExponentialCIPI is Bands with exponential smoothing.
func ExponentialCIPI(values []float64, window int, ci float64) (*SmoothedSeries, error) {
	return Bands(KindExponential, values, window, ci)
}

// SMACIPI is Bands with the centered moving average.
func SMACIPI(values []float64, window int, ci float64) (*SmoothedSeries, error) {
	return Bands(KindSMA, values, window, ci)
}
