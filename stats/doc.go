// Package stats provides stationarity tests, autocorrelation functions and
// regression helpers for log-difference price series.
//
// # Stationarity Tests
//
// The Augmented Dickey-Fuller test has a unit root as its null hypothesis;
// KPSS has stationarity as its null. Both drop NaNs first.
//
//	adf, err := stats.ADF(values, stats.ADFOptions{Signif: 0.05})
//	fmt.Printf("ADF: stat=%.4f, p=%.4f, stationary=%v\n",
//	    adf.Statistic, adf.PValue, adf.IsStationary)
//
//	kpss, err := stats.KPSS(values, stats.KPSSOptions{Regression: "c"})
//
// A constant series is not tested. ADF reports it as non-stationary and KPSS
// as stationary, and both set Verdict.Error to "Series is constant".
//
// # Stationarity Gate
//
// CheckStationarity runs both tests. The series is accepted only when both
// agree:
//
//	report, err := stats.CheckStationarity(logDiff, 0.05)
//	if !report.Stationary() {
//	    // refuse to fit
//	}
//
// # Autocorrelation Functions
//
//	acf := stats.ACF(values, 20)
//	pacf := stats.PACF(values, 20)
//	significant := stats.SignificantLags(acf, stats.ConfidenceBound(len(values)))
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, 10, p+q)
//	if lb.PValue > 0.05 {
//	    // residuals look like white noise
//	}
//	dw := stats.DurbinWatson(residuals)
//
// # Regression
//
// OLS solves the normal equations with a Cholesky factorisation and reports
// the concentrated Gaussian log-likelihood used for lag selection:
//
//	res, err := stats.OLS(x, y)
//	fmt.Println(res.Coeffs, res.AIC())
package stats
