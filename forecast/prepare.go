package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/sartorproj/pricecast/timeseries"
)

// LogDiffSuffix is appended to a price column name to name its
// log-difference column.
const LogDiffSuffix = "_logdiff"

// Prepared is a validated price table with the log-difference of every OHLC
// column. Log-difference columns have one element less than the table.
type Prepared struct {
	Prices  *timeseries.PriceSeries
	LogDiff map[string][]float64
}

// Column returns the log-difference column for an OHLC column name or for
// its "<name>_logdiff" alias.
func (p *Prepared) Column(name string) ([]float64, error) {
	if v, ok := p.LogDiff[name]; ok {
		return v, nil
	}
	if v, ok := p.LogDiff[name+LogDiffSuffix]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown column %q", name)
}

// Prepare validates prices and computes the log-difference columns.
func Prepare(prices *timeseries.PriceSeries) (*Prepared, error) {
	if prices == nil {
		return nil, timeseries.ErrEmptySeries
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if prices.Len() < 2 {
		return nil, fmt.Errorf("%s: need at least 2 rows to difference, got %d", prices.Symbol, prices.Len())
	}

	out := &Prepared{
		Prices:  prices,
		LogDiff: make(map[string][]float64, len(timeseries.Columns)),
	}
	for _, column := range timeseries.Columns {
		series, err := prices.Column(column)
		if err != nil {
			return nil, err
		}
		ld, err := series.LogDiff()
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", prices.Symbol, column, err)
		}
		out.LogDiff[column+LogDiffSuffix] = ld.Values
	}
	return out, nil
}

// PrepareAndValidate reads daysBack calendar days of prices for symbol ending
// at now and prepares them.
func PrepareAndValidate(ctx context.Context, reader timeseries.PriceReader, symbol string, daysBack int, now time.Time) (*Prepared, error) {
	if daysBack < 1 {
		return nil, fmt.Errorf("days back must be positive, got %d", daysBack)
	}
	from := now.AddDate(0, 0, -daysBack)
	prices, err := reader.Prices(ctx, symbol, from, now)
	if err != nil {
		return nil, fmt.Errorf("read prices for %s: %w", symbol, err)
	}
	if prices == nil || prices.Len() == 0 {
		return nil, fmt.Errorf("%s between %s and %s: %w",
			symbol, from.Format(time.DateOnly), now.Format(time.DateOnly), timeseries.ErrEmptySeries)
	}
	if prices.Symbol == "" {
		prices.Symbol = symbol
	}
	return Prepare(prices)
}
