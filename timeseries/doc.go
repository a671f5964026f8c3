// Package timeseries provides time series data structures, the log and
// differencing transforms, and OHLC price tables.
//
// # Creating a Series
//
// Create a time series from a slice:
//
//	values := []float64{100, 102, 105, 103, 108, 110}
//	series := timeseries.New(values)
//
// # Transformations
//
// The log transform refuses zero, negative or missing values:
//
//	logged, err := timeseries.LogTransform(values)
//	if errors.Is(err, timeseries.ErrNonPositive) {
//	    // clean the input first
//	}
//
// Differencing never fails; a series shorter than the lag yields an empty
// result:
//
//	diff := timeseries.Difference(values, 1)    // len(values)-1 elements
//	ld, _ := timeseries.LogDifference(values, 1) // diff(log(values))
//
// The same operations exist as Series methods that keep timestamps aligned:
//
//	d := series.Diff()
//	ld, err := series.LogDiff()
//
// # Price Tables
//
// PriceSeries holds daily OHLC bars for one symbol:
//
//	prices, err := timeseries.LoadPricesCSV("AAPL.csv", nil)
//	if err := prices.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	closes, _ := prices.Column(timeseries.ColumnClose)
//
// # Readers
//
// PriceReader is the boundary to data access. CSVReader serves one file per
// symbol from a directory:
//
//	reader := timeseries.NewCSVReader("data")
//	prices, err := reader.Prices(ctx, "AAPL", from, to)
package timeseries
