package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when the regressors are collinear.
var ErrSingular = errors.New("regressor matrix is singular")

// OLSResult holds an ordinary least squares fit.
type OLSResult struct {
	Coeffs    []float64
	StdErrors []float64
	Residuals []float64
	SSR       float64
	NObs      int
	// LogLik is the Gaussian log-likelihood with the variance concentrated out.
	LogLik float64
}

// TValue returns the t-statistic of coefficient i.
func (r *OLSResult) TValue(i int) float64 {
	return r.Coeffs[i] / r.StdErrors[i]
}

// AIC returns -2*LogLik + 2k where k counts the regressors.
func (r *OLSResult) AIC() float64 {
	return -2*r.LogLik + 2*float64(len(r.Coeffs))
}

// BIC returns -2*LogLik + k*log(n).
func (r *OLSResult) BIC() float64 {
	return -2*r.LogLik + float64(len(r.Coeffs))*math.Log(float64(r.NObs))
}

// OLS regresses y on the columns of x. x is row-major with one row per
// observation.
func OLS(x [][]float64, y []float64) (*OLSResult, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, errors.New("ols: x and y must have the same non-zero length")
	}
	k := len(x[0])
	if n < k {
		return nil, errors.New("ols: fewer observations than regressors")
	}

	X := mat.NewDense(n, k, nil)
	for i, row := range x {
		X.SetRow(i, row)
	}
	Y := mat.NewVecDense(n, y)

	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, ErrSingular
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), Y)

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, ErrSingular
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	residuals := make([]float64, n)
	ssr := 0.0
	for i := range residuals {
		residuals[i] = y[i] - fitted.AtVec(i)
		ssr += residuals[i] * residuals[i]
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, ErrSingular
	}

	coeffs := make([]float64, k)
	stdErrors := make([]float64, k)
	s2 := math.NaN()
	if n > k {
		s2 = ssr / float64(n-k)
	}
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * inv.At(i, i))
	}

	nf := float64(n)
	return &OLSResult{
		Coeffs:    coeffs,
		StdErrors: stdErrors,
		Residuals: residuals,
		SSR:       ssr,
		NObs:      n,
		LogLik:    -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1),
	}, nil
}
