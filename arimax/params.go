package arimax

import (
	"fmt"
	"math"
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int `json:"p"` // AR order
	D int `json:"d"` // Differencing order
	Q int `json:"q"` // MA order
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Params are the estimated coefficients of a fitted model.
type Params struct {
	Exog   float64   `json:"exog"`
	AR     []float64 `json:"ar"`
	MA     []float64 `json:"ma"`
	Sigma2 float64   `json:"sigma2"`
}

// constrainStationary maps unconstrained reals to the coefficients of a
// stationary AR polynomial. Each input becomes a partial autocorrelation in
// (-1, 1) and the Durbin-Levinson recursion builds the coefficients.
func constrainStationary(unconstrained []float64) []float64 {
	n := len(unconstrained)
	if n == 0 {
		return nil
	}
	prev := make([]float64, n)
	cur := make([]float64, n)
	for k := 0; k < n; k++ {
		x := unconstrained[k]
		r := x / math.Sqrt(1+x*x)
		for i := 0; i < k; i++ {
			cur[i] = prev[i] + r*prev[k-i-1]
		}
		cur[k] = r
		copy(prev, cur)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = -prev[i]
	}
	return out
}

// unconstrainFromPACF inverts the first step of constrainStationary for
// starting values: given partial autocorrelations it returns the
// unconstrained reals that reproduce the Yule-Walker coefficients.
func unconstrainFromPACF(pacf []float64) []float64 {
	out := make([]float64, len(pacf))
	for i, p := range pacf {
		r := math.Max(-0.95, math.Min(0.95, -p))
		out[i] = r / math.Sqrt(1-r*r)
	}
	return out
}

// maPolynomial returns the MA coefficients (1 + theta_1 B + ...) of an
// invertible polynomial.
func maPolynomial(unconstrained []float64) []float64 {
	theta := constrainStationary(unconstrained)
	for i := range theta {
		theta[i] = -theta[i]
	}
	return theta
}
