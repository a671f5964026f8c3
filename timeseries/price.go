package timeseries

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrEmptySeries is returned when an operation needs at least one observation.
var ErrEmptySeries = errors.New("series is empty")

// ErrInvalidPrices marks a price table with unordered dates or missing values.
var ErrInvalidPrices = errors.New("invalid price table")

// Column names accepted by PriceSeries.Column.
const (
	ColumnOpen  = "open"
	ColumnHigh  = "high"
	ColumnLow   = "low"
	ColumnClose = "close"
)

// Columns lists the OHLC columns in their canonical order.
var Columns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose}

// PriceBar is one trading day of OHLC prices.
type PriceBar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Field returns the named OHLC price of the bar.
func (b PriceBar) Field(column string) (float64, error) {
	switch strings.ToLower(column) {
	case ColumnOpen:
		return b.Open, nil
	case ColumnHigh:
		return b.High, nil
	case ColumnLow:
		return b.Low, nil
	case ColumnClose:
		return b.Close, nil
	}
	return 0, fmt.Errorf("unknown price column %q", column)
}

// PriceSeries is an ordered daily OHLC table for one symbol.
// The pipeline treats it as read-only.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (p *PriceSeries) Len() int {
	return len(p.Bars)
}

// Column extracts one OHLC column as a Series.
func (p *PriceSeries) Column(column string) (*Series, error) {
	values := make([]float64, len(p.Bars))
	timestamps := make([]time.Time, len(p.Bars))
	for i, bar := range p.Bars {
		v, err := bar.Field(column)
		if err != nil {
			return nil, err
		}
		values[i] = v
		timestamps[i] = bar.Date
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       strings.ToLower(column),
	}, nil
}

// Between returns the bars with from <= Date <= to.
func (p *PriceSeries) Between(from, to time.Time) *PriceSeries {
	out := &PriceSeries{Symbol: p.Symbol}
	for _, bar := range p.Bars {
		if bar.Date.Before(from) || bar.Date.After(to) {
			continue
		}
		out.Bars = append(out.Bars, bar)
	}
	return out
}

// Validate checks that the table is non-empty, strictly increasing in date,
// and holds only finite positive prices.
func (p *PriceSeries) Validate() error {
	if len(p.Bars) == 0 {
		return fmt.Errorf("%s: %w", p.Symbol, ErrEmptySeries)
	}
	for i, bar := range p.Bars {
		if i > 0 && !bar.Date.After(p.Bars[i-1].Date) {
			return fmt.Errorf("%s: %w: dates not strictly increasing at row %d (%s after %s)",
				p.Symbol, ErrInvalidPrices, i, bar.Date.Format(time.DateOnly), p.Bars[i-1].Date.Format(time.DateOnly))
		}
		for _, column := range Columns {
			v, _ := bar.Field(column)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s: %w: missing %s price at row %d", p.Symbol, ErrInvalidPrices, column, i)
			}
			if v <= 0 {
				return fmt.Errorf("%s: %s at row %d: %w",
					p.Symbol, column, i, &NonPositiveError{Index: i, Value: v})
			}
		}
	}
	return nil
}

// PriceReader fetches ordered OHLC rows for a symbol over a date window.
// Implementations own retries and rate limiting.
type PriceReader interface {
	Prices(ctx context.Context, symbol string, from, to time.Time) (*PriceSeries, error)
}
