package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sartorproj/pricecast/timeseries"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrTooShort is returned when a test needs more observations than given.
var ErrTooShort = errors.New("series too short")

// ConstantSeriesMessage is the Verdict.Error set when a test is skipped
// because the input has at most one distinct value.
const ConstantSeriesMessage = "Series is constant"

// DefaultSignif is the significance level used by CheckStationarity callers
// that have no preference.
const DefaultSignif = 0.05

// AutoLag selects how ADF picks the number of lagged differences.
type AutoLag int

const (
	// AutoLagAIC minimises the Akaike information criterion.
	AutoLagAIC AutoLag = iota
	// AutoLagBIC minimises the Bayesian information criterion.
	AutoLagBIC
	// AutoLagNone uses MaxLag as given.
	AutoLagNone
)

// Verdict is the outcome of one stationarity test.
type Verdict struct {
	Test           string             `json:"test"`
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"p_value"`
	LagsUsed       int                `json:"lags_used"`
	NObs           int                `json:"n_obs"`
	CriticalValues map[string]float64 `json:"critical_values,omitempty"`
	IsStationary   bool               `json:"is_stationary"`
	Error          string             `json:"error,omitempty"`
}

// Conclusion carries the per-test stationarity decisions.
type Conclusion struct {
	ADFStationary  bool `json:"adf_stationary"`
	KPSSStationary bool `json:"kpss_stationary"`
}

// StationarityReport bundles both tests and their conclusion.
type StationarityReport struct {
	ADF        *Verdict   `json:"adf"`
	KPSS       *Verdict   `json:"kpss"`
	Conclusion Conclusion `json:"conclusion"`
}

// Stationary reports whether both tests accept the series. A series that
// passes only one test is rejected.
func (r *StationarityReport) Stationary() bool {
	return r.Conclusion.ADFStationary && r.Conclusion.KPSSStationary
}

// ADFOptions configures the Augmented Dickey-Fuller test.
type ADFOptions struct {
	Signif  float64
	AutoLag AutoLag
	// MaxLag bounds the lag search. Zero means ceil(12*(n/100)^(1/4)).
	MaxLag int
}

// KPSSOptions configures the KPSS test.
type KPSSOptions struct {
	Signif float64
	// Regression is "c" (level) or "ct" (trend).
	Regression string
	// Lags fixes the Bartlett window. Zero or negative selects it automatically.
	Lags int
}

// ADF performs the Augmented Dickey-Fuller test with a constant term.
// The null hypothesis is a unit root; the series is stationary when
// PValue < Signif. NaNs are dropped before testing.
func ADF(values []float64, opts ADFOptions) (*Verdict, error) {
	if opts.Signif <= 0 {
		opts.Signif = DefaultSignif
	}
	x := dropNaN(values)

	if timeseries.IsConstant(x) {
		return &Verdict{
			Test:         "ADF",
			Statistic:    math.NaN(),
			PValue:       math.NaN(),
			NObs:         len(x),
			IsStationary: false,
			Error:        ConstantSeriesMessage,
		}, nil
	}

	n := len(x)
	maxLag := opts.MaxLag
	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if limit := n/2 - 2; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return nil, fmt.Errorf("adf: %w: %d observations", ErrTooShort, n)
	}

	xdiff := timeseries.Difference(x, 1)
	usedLag := maxLag

	if opts.AutoLag != AutoLagNone {
		// Every candidate is fit on the common sample defined by maxLag.
		y, rhs := adfDesign(x, xdiff, maxLag, maxLag)
		best := math.Inf(1)
		for lag := 0; lag <= maxLag; lag++ {
			cols := make([][]float64, len(rhs))
			for i, row := range rhs {
				cols[i] = row[:lag+2]
			}
			res, err := OLS(cols, y)
			if err != nil {
				continue
			}
			ic := res.AIC()
			if opts.AutoLag == AutoLagBIC {
				ic = res.BIC()
			}
			if ic < best {
				best = ic
				usedLag = lag
			}
		}
		if math.IsInf(best, 1) {
			return nil, fmt.Errorf("adf: %w", ErrSingular)
		}
	}

	y, rhs := adfDesign(x, xdiff, usedLag, usedLag)
	res, err := OLS(rhs, y)
	if err != nil {
		return nil, fmt.Errorf("adf: %w", err)
	}

	statistic := res.TValue(1)
	pValue := mackinnonP(statistic)

	return &Verdict{
		Test:           "ADF",
		Statistic:      statistic,
		PValue:         pValue,
		LagsUsed:       usedLag,
		NObs:           len(y),
		CriticalValues: mackinnonCrit(len(y)),
		IsStationary:   pValue < opts.Signif,
	}, nil
}

// adfDesign builds the regression of Δx_t on [1, x_{t-1}, Δx_{t-1}, ...,
// Δx_{t-lags}], trimmed so that the sample starts after trim lags.
func adfDesign(x, xdiff []float64, lags, trim int) ([]float64, [][]float64) {
	nobs := len(xdiff) - trim
	y := make([]float64, nobs)
	rhs := make([][]float64, nobs)
	for i := 0; i < nobs; i++ {
		t := i + trim
		y[i] = xdiff[t]
		row := make([]float64, lags+2)
		row[0] = 1
		row[1] = x[t]
		for j := 1; j <= lags; j++ {
			row[1+j] = xdiff[t-j]
		}
		rhs[i] = row
	}
	return y, rhs
}

// MacKinnon (1994) response surface, constant only, one variable.
const (
	tauMax  = 2.74
	tauMin  = -18.83
	tauStar = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}

	// MacKinnon (2010) finite-sample critical values, as polynomials in 1/n.
	tauCrit2010 = map[string][]float64{
		"1%":  {-3.43035, -6.5393, -16.786, -79.433},
		"5%":  {-2.86154, -2.8903, -4.234, -40.040},
		"10%": {-2.56677, -1.5384, -2.809, 0},
	}
)

func mackinnonP(statistic float64) float64 {
	switch {
	case statistic > tauMax:
		return 1
	case statistic < tauMin:
		return 0
	}
	coef := tauLargeP
	if statistic <= tauStar {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, statistic))
}

func mackinnonCrit(nobs int) map[string]float64 {
	crit := make(map[string]float64, len(tauCrit2010))
	inv := 1 / float64(nobs)
	for level, coef := range tauCrit2010 {
		crit[level] = polyval(coef, inv)
	}
	return crit
}

// polyval evaluates c[0] + c[1]x + c[2]x^2 + ...
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

// KPSS table (Kwiatkowski et al. 1992).
var (
	kpssPValues = []float64{0.10, 0.05, 0.025, 0.01}
	kpssCrit    = map[string][]float64{
		"c":  {0.347, 0.463, 0.574, 0.739},
		"ct": {0.119, 0.146, 0.176, 0.216},
	}
	kpssLevels = []string{"10%", "5%", "2.5%", "1%"}
)

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test. The null
// hypothesis is stationarity; the series is stationary when PValue > Signif.
// The p-value is interpolated from the published table and therefore lies
// in [0.01, 0.10].
func KPSS(values []float64, opts KPSSOptions) (*Verdict, error) {
	if opts.Signif <= 0 {
		opts.Signif = DefaultSignif
	}
	if opts.Regression == "" {
		opts.Regression = "c"
	}
	crit, ok := kpssCrit[opts.Regression]
	if !ok {
		return nil, fmt.Errorf("kpss: unknown regression %q", opts.Regression)
	}

	x := dropNaN(values)
	if timeseries.IsConstant(x) {
		return &Verdict{
			Test:         "KPSS",
			Statistic:    math.NaN(),
			PValue:       math.NaN(),
			NObs:         len(x),
			IsStationary: true,
			Error:        ConstantSeriesMessage,
		}, nil
	}

	n := len(x)
	resids := make([]float64, n)
	if opts.Regression == "ct" {
		trend := make([]float64, n)
		for i := range trend {
			trend[i] = float64(i + 1)
		}
		alpha, beta := stat.LinearRegression(trend, x, nil, false)
		for i, v := range x {
			resids[i] = v - alpha - beta*trend[i]
		}
	} else {
		mean := stat.Mean(x, nil)
		for i, v := range x {
			resids[i] = v - mean
		}
	}

	lags := opts.Lags
	if lags <= 0 {
		lags = kpssAutoLag(resids)
	}
	if lags > n-1 {
		lags = n - 1
	}

	eta := 0.0
	cum := 0.0
	for _, r := range resids {
		cum += r
		eta += cum * cum
	}
	eta /= float64(n) * float64(n)

	statistic := eta / longRunVariance(resids, lags)
	pValue := interpClamped(statistic, crit, kpssPValues)

	critical := make(map[string]float64, len(crit))
	for i, level := range kpssLevels {
		critical[level] = crit[i]
	}

	return &Verdict{
		Test:           "KPSS",
		Statistic:      statistic,
		PValue:         pValue,
		LagsUsed:       lags,
		NObs:           n,
		CriticalValues: critical,
		IsStationary:   pValue > opts.Signif,
	}, nil
}

// kpssAutoLag is the data-dependent bandwidth of Hobijn et al. (1998).
func kpssAutoLag(resids []float64) int {
	n := len(resids)
	nf := float64(n)
	covLags := int(math.Pow(nf, 2.0/9.0))

	s0 := dot(resids, resids, 0) / nf
	s1 := 0.0
	for i := 1; i <= covLags; i++ {
		prod := dot(resids, resids, i) / (nf / 2)
		s0 += prod
		s1 += float64(i) * prod
	}
	sHat := s1 / s0
	gamma := 1.1447 * math.Cbrt(sHat*sHat)
	return int(gamma * math.Cbrt(nf))
}

// longRunVariance is the Newey-West estimator with Bartlett weights.
func longRunVariance(resids []float64, lags int) float64 {
	s := dot(resids, resids, 0)
	for i := 1; i <= lags; i++ {
		s += 2 * dot(resids, resids, i) * (1 - float64(i)/float64(lags+1))
	}
	return s / float64(len(resids))
}

// dot returns sum a[t]*b[t-lag] for t >= lag.
func dot(a, b []float64, lag int) float64 {
	s := 0.0
	for t := lag; t < len(a); t++ {
		s += a[t] * b[t-lag]
	}
	return s
}

// interpClamped interpolates y at x over increasing xs, clamping outside.
func interpClamped(x float64, xs, ys []float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last]
	}
	i := sort.SearchFloat64s(xs, x)
	frac := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + frac*(ys[i]-ys[i-1])
}

// CheckStationarity runs ADF and KPSS at the same significance level.
// Use StationarityReport.Stationary for the accept/reject decision.
func CheckStationarity(values []float64, signif float64) (*StationarityReport, error) {
	if len(dropNaN(values)) == 0 {
		return nil, timeseries.ErrEmptySeries
	}
	adf, err := ADF(values, ADFOptions{Signif: signif})
	if err != nil {
		return nil, err
	}
	kpss, err := KPSS(values, KPSSOptions{Signif: signif, Regression: "c"})
	if err != nil {
		return nil, err
	}
	return &StationarityReport{
		ADF:  adf,
		KPSS: kpss,
		Conclusion: Conclusion{
			ADFStationary:  adf.IsStationary,
			KPSSStationary: kpss.IsStationary,
		},
	}, nil
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
