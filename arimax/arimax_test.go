package arimax

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// regression returns y = beta*x + w with w ~ AR(1) and x a random walk.
func regression(seed uint64, n int, beta, phi, sigma float64) (y, x []float64) {
	rng := newRand(seed)
	y = make([]float64, n)
	x = make([]float64, n)
	w := 0.0
	level := 100.0
	for i := 0; i < n; i++ {
		level += rng.NormFloat64()
		x[i] = level
		w = phi*w + sigma*rng.NormFloat64()
		y[i] = beta*x[i] + w
	}
	return y, x
}

// walks returns two cointegrated random walks in the style of daily
// close/open log prices.
func walks(seed uint64, n int) (y, x []float64) {
	rng := newRand(seed)
	y = make([]float64, n)
	x = make([]float64, n)
	for i := 1; i < n; i++ {
		dx := 0.01 * rng.NormFloat64()
		x[i] = x[i-1] + dx
		y[i] = y[i-1] + 0.5*dx + 0.01*rng.NormFloat64()
	}
	return y, x
}

func TestOrderString(t *testing.T) {
	assert.Equal(t, "(1,0,2)", Order{P: 1, D: 0, Q: 2}.String())
}

func TestConstrainStationary(t *testing.T) {
	t.Run("AR(2) from partial autocorrelations", func(t *testing.T) {
		ar := constrainStationary(unconstrainFromPACF([]float64{0.5, 0.3}))
		require.Len(t, ar, 2)
		assert.InDelta(t, 0.5*(1-0.3), ar[0], 1e-12)
		assert.InDelta(t, 0.3, ar[1], 1e-12)
	})

	t.Run("extreme inputs stay stationary", func(t *testing.T) {
		for _, x := range []float64{-1e6, -3, 0, 3, 1e6} {
			ar := constrainStationary([]float64{x})
			assert.Less(t, math.Abs(ar[0]), 1.0+1e-12)
		}
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, constrainStationary(nil))
	})

	t.Run("PACF start is clipped", func(t *testing.T) {
		ar := constrainStationary(unconstrainFromPACF([]float64{0.999}))
		assert.InDelta(t, 0.95, ar[0], 1e-12)
	})
}

func TestMAPolynomialInvertible(t *testing.T) {
	for _, x := range []float64{-50, -0.5, 0, 0.5, 50} {
		theta := maPolynomial([]float64{x})
		require.Len(t, theta, 1)
		assert.Less(t, math.Abs(theta[0]), 1.0)
	}
	assert.InDelta(t, 0.6, maPolynomial([]float64{0.6 / math.Sqrt(1-0.36)})[0], 1e-12)
}

func TestStationaryCov(t *testing.T) {
	t.Run("AR(1)", func(t *testing.T) {
		P, err := newStateSpace([]float64{0.6}, nil).stationaryCov()
		require.NoError(t, err)
		assert.InDelta(t, 1/(1-0.36), P.At(0, 0), 1e-10)
	})

	t.Run("ARMA(1,1)", func(t *testing.T) {
		phi, theta := 0.5, 0.4
		P, err := newStateSpace([]float64{phi}, []float64{theta}).stationaryCov()
		require.NoError(t, err)
		want := (1 + 2*phi*theta + theta*theta) / (1 - phi*phi)
		assert.InDelta(t, want, P.At(0, 0), 1e-10)
	})
}

func TestFilterWhiteNoise(t *testing.T) {
	w := []float64{0.5, -1, 0.25, 2, -0.75}
	f, err := newStateSpace(nil, nil).filter(w)
	require.NoError(t, err)

	assert.Equal(t, w, f.innovations)
	for _, v := range f.variances {
		assert.InDelta(t, 1, v, 1e-12)
	}

	ss := 0.0
	for _, v := range w {
		ss += v * v
	}
	sigma2 := ss / float64(len(w))
	assert.InDelta(t, sigma2, f.sigma2(), 1e-12)
	n := float64(len(w))
	assert.InDelta(t, -n/2*(math.Log(2*math.Pi)+1+math.Log(sigma2)), f.logLik(), 1e-10)
}

func TestFitExogCoefficient(t *testing.T) {
	y, x := regression(1, 300, 2, 0, 0.5)
	model, err := Fit(y, x, Order{})
	require.NoError(t, err)

	params := model.Params()
	assert.InDelta(t, 2, params.Exog, 0.05)
	assert.Empty(t, params.AR)
	assert.Empty(t, params.MA)
	assert.InDelta(t, 0.25, model.Sigma2(), 0.08)
	assert.Equal(t, 300, model.NObs())
	assert.Len(t, model.Residuals(), 300)

	// k = exog + sigma2
	assert.InDelta(t, -2*model.LogLik()+4, model.AIC(), 1e-9)
	assert.Greater(t, model.BIC(), model.AIC())
	assert.Greater(t, model.AICc(), model.AIC())
}

func TestFitAR1Errors(t *testing.T) {
	y, x := regression(2, 500, 0.5, 0.6, 1)
	model, err := Fit(y, x, Order{P: 1})
	require.NoError(t, err)

	params := model.Params()
	require.Len(t, params.AR, 1)
	assert.InDelta(t, 0.6, params.AR[0], 0.12)
	assert.InDelta(t, 0.5, params.Exog, 0.1)

	white, err := Fit(y, x, Order{})
	require.NoError(t, err)
	assert.Less(t, model.AIC(), white.AIC(), "autocorrelated errors favour the AR term")
}

func TestFitDifferenced(t *testing.T) {
	y, x := walks(3, 200)
	model, err := Fit(y, x, Order{P: 1, D: 1, Q: 1})
	require.NoError(t, err)

	assert.Equal(t, 199, model.NObs())
	assert.InDelta(t, 0.5, model.Params().Exog, 0.3)
	for _, v := range append(model.Params().AR, model.Params().MA...) {
		assert.False(t, math.IsNaN(v))
		assert.Less(t, math.Abs(v), 1.0)
	}
}

func TestFitErrors(t *testing.T) {
	y, x := walks(4, 50)

	tests := []struct {
		name  string
		endog []float64
		exog  []float64
		order Order
		want  error
	}{
		{"length mismatch", y, x[:49], Order{}, ErrInvalidInput},
		{"NaN", append([]float64{math.NaN()}, y[1:]...), x, Order{}, ErrInvalidInput},
		{"Inf exog", y, append([]float64{math.Inf(1)}, x[1:]...), Order{}, ErrInvalidInput},
		{"negative order", y, x, Order{P: -1}, ErrInvalidInput},
		{"too short", y[:4], x[:4], Order{P: 2, D: 1, Q: 2}, ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.endog, tt.exog, tt.order)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var fitErr *FitError
			require.ErrorAs(t, err, &fitErr)
			assert.Equal(t, tt.order, fitErr.Order)
		})
	}
}

func TestFitWithOutliers(t *testing.T) {
	y, x := walks(5, 150)
	y[40] += 0.5
	y[90] -= 0.8
	x[120] += 0.6

	model, err := Fit(y, x, Order{P: 2, D: 1, Q: 2})
	require.NoError(t, err)
	params := model.Params()
	for _, v := range append(append([]float64{params.Exog, params.Sigma2}, params.AR...), params.MA...) {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestForecastWhiteNoiseErrors(t *testing.T) {
	y, x := regression(6, 200, 1.5, 0, 0.3)
	model, err := Fit(y, x, Order{})
	require.NoError(t, err)

	future := []float64{101, 102, 99}
	pred, err := model.Forecast(future, 0.05)
	require.NoError(t, err)
	require.Len(t, pred.Mean, 3)

	beta := model.Params().Exog
	se := math.Sqrt(model.Sigma2())
	for i, v := range future {
		assert.InDelta(t, beta*v, pred.Mean[i], 1e-9)
		assert.InDelta(t, se, pred.StdErr[i], 1e-12)
		assert.InDelta(t, pred.Mean[i]-1.959963984540054*se, pred.Lower[i], 1e-9)
		assert.InDelta(t, pred.Mean[i]+1.959963984540054*se, pred.Upper[i], 1e-9)
	}
}

func TestForecastIntegrates(t *testing.T) {
	y, x := walks(7, 120)
	model, err := Fit(y, x, Order{D: 1})
	require.NoError(t, err)

	beta := model.Params().Exog
	next := x[len(x)-1] + 0.02
	pred, err := model.Forecast([]float64{next, next + 0.01}, 0.05)
	require.NoError(t, err)

	first := y[len(y)-1] + beta*0.02
	assert.InDelta(t, first, pred.Mean[0], 1e-9)
	assert.InDelta(t, first+beta*0.01, pred.Mean[1], 1e-9)

	// random walk errors: variance grows linearly
	assert.InDelta(t, pred.StdErr[0]*math.Sqrt2, pred.StdErr[1], 1e-12)
}

func TestForecastBounds(t *testing.T) {
	y, x := walks(8, 150)
	model, err := Fit(y, x, Order{P: 1, D: 1, Q: 1})
	require.NoError(t, err)

	future := []float64{x[len(x)-1] + 0.01, x[len(x)-1], x[len(x)-1] - 0.01, x[len(x)-1]}
	pred, err := model.Forecast(future, 0.05)
	require.NoError(t, err)
	for i := range future {
		assert.LessOrEqual(t, pred.Lower[i], pred.Mean[i])
		assert.LessOrEqual(t, pred.Mean[i], pred.Upper[i])
		if i > 0 {
			assert.GreaterOrEqual(t, pred.StdErr[i], pred.StdErr[i-1]-1e-12)
		}
	}

	narrow, err := model.Forecast(future, 0.2)
	require.NoError(t, err)
	assert.Less(t, narrow.Upper[0]-narrow.Lower[0], pred.Upper[0]-pred.Lower[0])
}

func TestForecastErrors(t *testing.T) {
	y, x := walks(9, 80)
	model, err := Fit(y, x, Order{P: 1})
	require.NoError(t, err)

	_, err = model.Forecast(nil, 0.05)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = model.Forecast([]float64{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = model.Forecast([]float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = model.Forecast([]float64{math.NaN()}, 0.05)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPsiWeights(t *testing.T) {
	ar1 := &Model{order: Order{P: 1}, ar: []float64{0.5}}
	psi := ar1.psiWeights(4)
	for j, v := range psi {
		assert.InDelta(t, math.Pow(0.5, float64(j)), v, 1e-12)
	}

	walk := &Model{order: Order{D: 1}}
	assert.Equal(t, []float64{1, 1, 1}, walk.psiWeights(3))

	ima := &Model{order: Order{D: 1, Q: 1}, ma: []float64{-0.4}}
	assert.InDeltaSlice(t, []float64{1, 0.6, 0.6}, ima.psiWeights(3), 1e-12)
}

func TestSummary(t *testing.T) {
	y, x := regression(10, 200, 1, 0, 1)
	model, err := Fit(y, x, Order{Q: 1})
	require.NoError(t, err)

	s := model.Summary()
	assert.Equal(t, Order{Q: 1}, s.Order)
	assert.Equal(t, model.AIC(), s.AIC)
	require.NotNil(t, s.LjungBox)
	assert.Equal(t, 10, s.LjungBox.Lags)
	assert.InDelta(t, 2, s.DurbinWatson, 0.5)
	assert.LessOrEqual(t, len(s.ResidualACFLags), 3, "residuals of a correct model are close to white noise")
}

func TestSummaryJSONNonFinite(t *testing.T) {
	s := Summary{Order: Order{P: 1}, LogLik: -10, AIC: 24, AICc: math.Inf(1), BIC: 25, NObs: 3, DurbinWatson: math.NaN()}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"aicc":null`)
	assert.Contains(t, string(b), `"durbin_watson":null`)
	assert.Contains(t, string(b), `"aic":24`)
	assert.Contains(t, string(b), `"n_obs":3`)
	assert.NotContains(t, string(b), `"AICc"`)
}

func TestSelectBestOrder(t *testing.T) {
	y, x := walks(11, 150)
	res, err := SelectBestOrder(y, x, DefaultSearchOptions())
	require.NoError(t, err)

	require.Len(t, res.Candidates, 18)
	assert.Equal(t, Order{}, res.Candidates[0].Order)
	assert.Equal(t, Order{P: 2, D: 1, Q: 2}, res.Candidates[17].Order)

	best := math.Inf(1)
	for _, c := range res.Candidates {
		if c.Err == nil {
			best = math.Min(best, c.Model.AIC())
		}
	}
	assert.Equal(t, best, res.Model.AIC())
	assert.Equal(t, res.Order, res.Model.Order())
	assert.Less(t, res.Failed(), 18)
}

func TestSelectBestOrderDeterministic(t *testing.T) {
	y, x := walks(12, 100)

	serial := DefaultSearchOptions()
	serial.Parallelism = 1
	parallel := DefaultSearchOptions()
	parallel.Parallelism = 8

	a, err := SelectBestOrder(y, x, serial)
	require.NoError(t, err)
	b, err := SelectBestOrder(y, x, parallel)
	require.NoError(t, err)

	assert.Equal(t, a.Order, b.Order)
	assert.Equal(t, a.Model.AIC(), b.Model.AIC())
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	model := func(aic float64) *Model {
		m := &Model{}
		m.ic.AIC = aic
		return m
	}
	candidates := []Candidate{
		{Order: Order{}, Err: errors.New("singular")},
		{Order: Order{Q: 1}, Model: model(-10)},
		{Order: Order{D: 1}, Model: model(math.NaN())},
		{Order: Order{P: 1}, Model: model(-10)},
		{Order: Order{P: 1, Q: 1}, Model: model(-9)},
	}
	best, err := selectBest(candidates)
	require.NoError(t, err)
	assert.Equal(t, Order{Q: 1}, best.Order)
}

func TestSelectBestNoViableModel(t *testing.T) {
	last := errors.New("diverged")
	_, err := selectBest([]Candidate{
		{Order: Order{}, Err: errors.New("singular")},
		{Order: Order{P: 1}, Err: last},
	})
	require.ErrorIs(t, err, ErrNoViableModel)

	var nv *NoViableModelError
	require.ErrorAs(t, err, &nv)
	assert.Equal(t, 2, nv.Tried)
	assert.Equal(t, last, nv.Last)
}

func TestSelectBestOrderGate(t *testing.T) {
	y, x := walks(13, 60)

	t.Run("insufficient data", func(t *testing.T) {
		_, err := SelectBestOrder(y[:5], x[:5], DefaultSearchOptions())
		require.ErrorIs(t, err, ErrInsufficientData)
		assert.EqualError(t, err, "insufficient data: need ≥30, got 5")
	})

	t.Run("constant endog", func(t *testing.T) {
		flat := make([]float64, len(x))
		_, err := SelectBestOrder(flat, x, DefaultSearchOptions())
		require.ErrorIs(t, err, ErrConstantSeries)
		var cs *ConstantSeriesError
		require.ErrorAs(t, err, &cs)
		assert.Equal(t, "endog", cs.Series)
	})

	t.Run("constant exog", func(t *testing.T) {
		flat := make([]float64, len(y))
		for i := range flat {
			flat[i] = 4.2
		}
		_, err := SelectBestOrder(y, flat, DefaultSearchOptions())
		var cs *ConstantSeriesError
		require.ErrorAs(t, err, &cs)
		assert.Equal(t, "exog", cs.Series)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := SelectBestOrder(y, x[1:], DefaultSearchOptions())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("bad bounds", func(t *testing.T) {
		opts := DefaultSearchOptions()
		opts.MaxD = 0
		_, err := SelectBestOrder(y, x, opts)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
