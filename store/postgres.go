// Package store reads OHLC prices from PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/lib/pq"
	"github.com/sartorproj/pricecast/timeseries"
)

// DefaultTable holds one row per symbol and trading day.
const DefaultTable = "asset_prices"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresReader implements timeseries.PriceReader over a table with
// columns symbol, date, open, high, low and close. It never writes.
type PostgresReader struct {
	db    *sql.DB
	query string
}

// NewPostgresReader wraps an open database handle.
func NewPostgresReader(db *sql.DB, table string) (*PostgresReader, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresReader{db: db, query: pricesQuery(table)}, nil
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn, table string) (*PostgresReader, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r, err := NewPostgresReader(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func pricesQuery(table string) string {
	return `SELECT date, open, high, low, close
		FROM ` + pq.QuoteIdentifier(table) + `
		WHERE symbol = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`
}

// Prices implements timeseries.PriceReader. Missing prices are returned as
// NaN so PriceSeries.Validate can reject them.
func (r *PostgresReader) Prices(ctx context.Context, symbol string, from, to time.Time) (*timeseries.PriceSeries, error) {
	rows, err := r.db.QueryContext(ctx, r.query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	series := &timeseries.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var (
			date                   time.Time
			open, high, low, close sql.NullFloat64
		)
		if err := rows.Scan(&date, &open, &high, &low, &close); err != nil {
			return nil, fmt.Errorf("scan prices for %s: %w", symbol, err)
		}
		series.Bars = append(series.Bars, timeseries.PriceBar{
			Date:  date,
			Open:  orNaN(open),
			High:  orNaN(high),
			Low:   orNaN(low),
			Close: orNaN(close),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read prices for %s: %w", symbol, err)
	}
	return series, nil
}

// Close closes the database handle.
func (r *PostgresReader) Close() error {
	return r.db.Close()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

var _ timeseries.PriceReader = (*PostgresReader)(nil)
