// Package forecast chains the pricecast stages into a next-day price
// forecast:
//
//	prices -> smooth (optional) -> log-difference -> stationarity gate
//	       -> order search -> forecast -> price scale
//
// The one-call form:
//
//	res, err := forecast.FitAndForecastNextDay(prices, "close", "open", nextOpen, forecast.DefaultConfig())
//	row := res.Rows[0] // row.LowerCI <= row.Forecast <= row.UpperCI
//
// Step by step:
//
//	fit, err := forecast.PrepareDataAndFit(prices, "close", "open", cfg)
//	if errors.Is(err, forecast.ErrNonStationary) {
//	    // strict mode refused to fit
//	}
//	res, err := forecast.ForecastPrices(fit.Model, opens, fit.LastPrice, cfg.Alpha)
//
// Setting Config.Strict to false lets a target that fails the gate through
// with a logged warning.
//
// Forecaster wraps the pipeline around a timeseries.PriceReader for the CLI
// and HTTP server.
package forecast
