package arimax

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultAlpha gives 95% prediction intervals.
const DefaultAlpha = 0.05

// Prediction holds out-of-sample forecasts on the scale of the endogenous
// series the model was fitted on.
type Prediction struct {
	Mean   []float64 `json:"mean"`
	Lower  []float64 `json:"lower"`
	Upper  []float64 `json:"upper"`
	StdErr []float64 `json:"std_err"`
}

// Forecast predicts one value of the endogenous series per future exogenous
// value. alpha sets the interval coverage to 1-alpha.
func (m *Model) Forecast(exog []float64, alpha float64) (*Prediction, error) {
	steps := len(exog)
	if steps < 1 {
		return nil, fmt.Errorf("%w: at least one future exogenous value is required", ErrInvalidInput)
	}
	if !(alpha > 0 && alpha < 1) {
		return nil, fmt.Errorf("%w: alpha must be in (0, 1), got %g", ErrInvalidInput, alpha)
	}
	for i, v := range exog {
		if !finite(v) {
			return nil, fmt.Errorf("%w: non-finite future exogenous value at index %d", ErrInvalidInput, i)
		}
	}

	// Differencing needs the last d observed exogenous values in front.
	extended := make([]float64, 0, len(m.exogTail)+steps)
	extended = append(extended, m.exogTail...)
	extended = append(extended, exog...)
	xd := differenceN(extended, m.order.D)

	mean := m.armaMean(steps)
	for h := range mean {
		mean[h] += m.beta * xd[h]
	}
	for j := m.order.D - 1; j >= 0; j-- {
		level := m.lastLevels[j]
		for h := range mean {
			level += mean[h]
			mean[h] = level
		}
	}

	psi := m.psiWeights(steps)
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	pred := &Prediction{
		Mean:   mean,
		Lower:  make([]float64, steps),
		Upper:  make([]float64, steps),
		StdErr: make([]float64, steps),
	}
	acc := 0.0
	for h := 0; h < steps; h++ {
		acc += psi[h] * psi[h]
		se := math.Sqrt(m.sigma2 * acc)
		pred.StdErr[h] = se
		pred.Lower[h] = mean[h] - z*se
		pred.Upper[h] = mean[h] + z*se
	}
	return pred, nil
}

// armaMean propagates the filtered state: E[w_{n+h}] = Z T^{h-1} a_{n+1}.
func (m *Model) armaMean(steps int) []float64 {
	r := len(m.state)
	a := append([]float64(nil), m.state...)
	next := make([]float64, r)
	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		out[h] = a[0]
		for i := 0; i < r; i++ {
			v := 0.0
			if i < len(m.ar) {
				v = m.ar[i] * a[0]
			}
			if i+1 < r {
				v += a[i+1]
			}
			next[i] = v
		}
		a, next = next, a
	}
	return out
}

// psiWeights returns the MA(∞) weights of the integrated process
// φ(B)(1-B)^d y_t = θ(B) e_t.
func (m *Model) psiWeights(steps int) []float64 {
	// φ(B)(1-B)^d as polynomial coefficients in B, constant term first.
	poly := make([]float64, len(m.ar)+1)
	poly[0] = 1
	for i, phi := range m.ar {
		poly[i+1] = -phi
	}
	for j := 0; j < m.order.D; j++ {
		next := make([]float64, len(poly)+1)
		for i, c := range poly {
			next[i] += c
			next[i+1] -= c
		}
		poly = next
	}

	psi := make([]float64, steps)
	psi[0] = 1
	for j := 1; j < steps; j++ {
		v := 0.0
		if j <= len(m.ma) {
			v = m.ma[j-1]
		}
		for k := 1; k <= j && k < len(poly); k++ {
			v -= poly[k] * psi[j-k]
		}
		psi[j] = v
	}
	return psi
}
