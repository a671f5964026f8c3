package arimax

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/pricecast/stats"
	"github.com/sartorproj/pricecast/timeseries"
	"gonum.org/v1/gonum/optimize"
)

// penalty is returned by the objective for parameters the filter rejects.
const penalty = 1e10

// Model is a fitted regression with ARIMA(p, d, q) errors:
//
//	Δ^d y_t = β Δ^d x_t + w_t,  φ(B) w_t = θ(B) e_t
//
// It is bound to the data it was fitted on and cannot be refitted; fit a new
// Model instead. A Model is safe for concurrent use.
type Model struct {
	order  Order
	beta   float64
	ar     []float64
	ma     []float64
	sigma2 float64
	logLik float64
	ic     stats.InformationCriteria
	nobs   int

	residuals []float64

	// forecast state
	state      []float64
	lastLevels []float64 // last value of Δ^j y for j = 0..d-1
	exogTail   []float64 // last d raw exogenous values
}

// Fit estimates the model by exact maximum likelihood. The likelihood is
// evaluated by a Kalman filter started from the stationary distribution
// and maximised with Nelder-Mead over a parameterisation that keeps the AR
// part stationary and the MA part invertible.
func Fit(endog, exog []float64, order Order) (*Model, error) {
	if err := validateInputs(endog, exog); err != nil {
		return nil, &FitError{Order: order, Err: err}
	}
	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, &FitError{Order: order, Err: fmt.Errorf("%w: negative order", ErrInvalidInput)}
	}

	yd := differenceN(endog, order.D)
	xd := differenceN(exog, order.D)
	n := len(yd)
	if n < order.P+order.Q+3 {
		return nil, &FitError{Order: order, Err: &InsufficientDataError{Need: order.P + order.Q + 3 + order.D, Got: len(endog)}}
	}

	x0 := startParams(yd, xd, order)
	objective := func(x []float64) float64 {
		f, err := evaluate(x, yd, xd, order)
		if err != nil {
			return penalty
		}
		ll := f.logLik()
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return penalty
		}
		return -ll / float64(n)
	}

	settings := &optimize.Settings{
		FuncEvaluations: 1000 + 500*len(x0),
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 50 * len(x0),
		},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, x0, settings, &optimize.NelderMead{})
	if res == nil {
		if err == nil {
			err = errors.New("optimizer returned no result")
		}
		return nil, &FitError{Order: order, Err: err}
	}

	best := res.X
	if objective(x0) < res.F {
		best = x0
	}
	f, err := evaluate(best, yd, xd, order)
	if err != nil {
		return nil, &FitError{Order: order, Err: err}
	}
	ll := f.logLik()
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return nil, &FitError{Order: order, Err: errors.New("non-finite log-likelihood")}
	}

	m := &Model{
		order:     order,
		beta:      best[0],
		ar:        constrainStationary(best[1 : 1+order.P]),
		ma:        maPolynomial(best[1+order.P:]),
		sigma2:    f.sigma2(),
		logLik:    ll,
		nobs:      n,
		residuals: f.innovations,
		state:     make([]float64, f.state.Len()),
	}
	// beta, AR, MA and sigma2
	m.ic = stats.CalculateIC(ll, 1+order.P+order.Q+1, n)
	for i := range m.state {
		m.state[i] = f.state.AtVec(i)
	}

	m.lastLevels = make([]float64, order.D)
	level := endog
	for j := 0; j < order.D; j++ {
		m.lastLevels[j] = level[len(level)-1]
		level = timeseries.Difference(level, 1)
	}
	m.exogTail = append([]float64(nil), exog[len(exog)-order.D:]...)

	return m, nil
}

func validateInputs(endog, exog []float64) error {
	if len(endog) != len(exog) {
		return fmt.Errorf("%w: endog has %d values, exog has %d", ErrInvalidInput, len(endog), len(exog))
	}
	for i := range endog {
		if !finite(endog[i]) || !finite(exog[i]) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func differenceN(values []float64, d int) []float64 {
	out := values
	for i := 0; i < d; i++ {
		out = timeseries.Difference(out, 1)
	}
	return out
}

// startParams uses the OLS slope for the exogenous coefficient and the
// Yule-Walker fit of its residuals for the AR part. MA terms start at zero.
func startParams(yd, xd []float64, order Order) []float64 {
	x0 := make([]float64, 1+order.P+order.Q)

	rows := make([][]float64, len(xd))
	for i, v := range xd {
		rows[i] = []float64{v}
	}
	if res, err := stats.OLS(rows, yd); err == nil && finite(res.Coeffs[0]) {
		x0[0] = res.Coeffs[0]
	}

	if order.P > 0 {
		w := make([]float64, len(yd))
		for i := range yd {
			w[i] = yd[i] - x0[0]*xd[i]
		}
		if pacf := stats.PACF(w, order.P); len(pacf) == order.P+1 {
			copy(x0[1:1+order.P], unconstrainFromPACF(pacf[1:]))
		}
	}
	return x0
}

func evaluate(x, yd, xd []float64, order Order) (*filterResult, error) {
	beta := x[0]
	ar := constrainStationary(x[1 : 1+order.P])
	ma := maPolynomial(x[1+order.P:])

	w := make([]float64, len(yd))
	for i := range yd {
		w[i] = yd[i] - beta*xd[i]
	}
	return newStateSpace(ar, ma).filter(w)
}

// Order returns the (p, d, q) order.
func (m *Model) Order() Order { return m.order }

// AIC returns the Akaike information criterion.
func (m *Model) AIC() float64 { return m.ic.AIC }

// AICc returns the small-sample corrected AIC.
func (m *Model) AICc() float64 { return m.ic.AICc }

// BIC returns the Bayesian information criterion.
func (m *Model) BIC() float64 { return m.ic.BIC }

// LogLik returns the maximised log-likelihood.
func (m *Model) LogLik() float64 { return m.logLik }

// Sigma2 returns the innovation variance.
func (m *Model) Sigma2() float64 { return m.sigma2 }

// NObs returns the number of observations after differencing.
func (m *Model) NObs() int { return m.nobs }

// Params returns a copy of the estimated coefficients.
func (m *Model) Params() Params {
	return Params{
		Exog:   m.beta,
		AR:     append([]float64(nil), m.ar...),
		MA:     append([]float64(nil), m.ma...),
		Sigma2: m.sigma2,
	}
}

// Residuals returns a copy of the one-step-ahead prediction errors.
func (m *Model) Residuals() []float64 {
	return append([]float64(nil), m.residuals...)
}

// Summary describes a fitted model.
type Summary struct {
	Order        Order                 `json:"order"`
	Params       Params                `json:"params"`
	LogLik       float64               `json:"log_lik"`
	AIC          float64               `json:"aic"`
	AICc         float64               `json:"aicc"`
	BIC          float64               `json:"bic"`
	NObs         int                   `json:"n_obs"`
	LjungBox     *stats.LjungBoxResult `json:"ljung_box,omitempty"`
	DurbinWatson float64               `json:"durbin_watson"`

	// ResidualACFLags lists residual autocorrelations outside the 95%
	// white-noise bound.
	ResidualACFLags []int `json:"residual_acf_lags,omitempty"`
}

// MarshalJSON encodes non-finite statistics, such as an infinite AICc for a
// saturated model, as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		LogLik       *float64 `json:"log_lik"`
		AIC          *float64 `json:"aic"`
		AICc         *float64 `json:"aicc"`
		BIC          *float64 `json:"bic"`
		DurbinWatson *float64 `json:"durbin_watson"`
	}{
		plain:        plain(s),
		LogLik:       stats.Finite(s.LogLik),
		AIC:          stats.Finite(s.AIC),
		AICc:         stats.Finite(s.AICc),
		BIC:          stats.Finite(s.BIC),
		DurbinWatson: stats.Finite(s.DurbinWatson),
	})
}

// Summary returns estimates, fit statistics and residual diagnostics.
func (m *Model) Summary() *Summary {
	lags := min(10, m.nobs/5)
	return &Summary{
		Order:        m.order,
		Params:       m.Params(),
		LogLik:       m.logLik,
		AIC:          m.ic.AIC,
		AICc:         m.ic.AICc,
		BIC:          m.ic.BIC,
		NObs:         m.nobs,
		LjungBox:     stats.LjungBox(m.residuals, lags, m.order.P+m.order.Q),
		DurbinWatson: stats.DurbinWatson(m.residuals),
		ResidualACFLags: stats.SignificantLags(
			stats.ACF(m.residuals, lags),
			stats.ConfidenceBound(len(m.residuals)),
		),
	}
}
