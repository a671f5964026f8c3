// Package pricecast forecasts next-day asset prices with ARIMAX models.
//
// The target price column (close by default) is log-differenced and
// regressed on the log-difference of an exogenous column (open by default)
// with ARMA errors. The order (p,d,q) is chosen by AIC over a bounded grid,
// and forecasts are mapped back to price levels with confidence intervals.
//
// # Pipeline
//
//	reader := timeseries.NewCSVReader("data")
//	f := forecast.NewForecaster(reader, forecast.DefaultConfig(), log, nil)
//	resp, err := f.Run(ctx, forecast.Request{
//		Symbol:   "AAPL",
//		DaysBack: 150,
//		NextOpen: 189.5,
//	})
//
// Before fitting, the log-differenced target must pass the ADF and KPSS
// stationarity gate. In strict mode a failure returns
// forecast.ErrNonStationary; otherwise a warning is logged.
//
// # Packages
//
//   - timeseries: OHLC tables, CSV reading and log-difference transforms
//   - stats: ADF and KPSS tests, ACF/PACF, OLS and information criteria
//   - smooth: LOWESS, exponential and moving-average smoothing with bands
//   - changepoint: PELT level shift detection
//   - arimax: ARIMAX estimation, forecasting and order search
//   - forecast: the end-to-end pipeline and the Forecaster service
//   - store: PostgreSQL price reader
//   - metrics: Prometheus instrumentation
//   - config: YAML and environment configuration
//   - server: HTTP API
//
// The pricecast command in cmd/pricecast exposes the same operations on the
// command line and runs the HTTP server.
package pricecast
