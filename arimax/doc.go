// Package arimax fits regressions with ARIMA errors on a single exogenous
// regressor and selects the order by AIC.
//
// # Fitting
//
// The model is estimated by exact maximum likelihood using a Kalman filter:
//
//	model, err := arimax.Fit(target, exog, arimax.Order{P: 1, D: 0, Q: 1})
//	fmt.Println(model.Params(), model.AIC())
//
// A fitted Model is immutable. Fitting again means calling Fit again.
//
// # Order Search
//
// SelectBestOrder fits the whole grid concurrently and folds the results in
// p, d, q order:
//
//	res, err := arimax.SelectBestOrder(target, exog, arimax.DefaultSearchOptions())
//	switch {
//	case errors.Is(err, arimax.ErrInsufficientData):
//	    // fetch more history
//	case errors.Is(err, arimax.ErrNoViableModel):
//	    // every order failed
//	}
//
// # Forecasting
//
// Forecast takes one future exogenous value per step:
//
//	pred, err := res.Model.Forecast([]float64{0.004}, arimax.DefaultAlpha)
//	// pred.Lower[0] <= pred.Mean[0] <= pred.Upper[0]
package arimax
