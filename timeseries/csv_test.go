package timeseries

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ohlcCSV = `date,open,high,low,close
2024-01-03,101,103,100,102
2024-01-02,100,102,99,101
2024-01-04,102,104,101,103`

func TestLoadPricesFromReader(t *testing.T) {
	prices, err := LoadPricesFromReader(strings.NewReader(ohlcCSV), nil)
	require.NoError(t, err)
	require.Equal(t, 3, prices.Len())

	// Rows come back sorted by date
	assert.Equal(t, 100.0, prices.Bars[0].Open)
	assert.Equal(t, 103.0, prices.Bars[2].Close)
	assert.NoError(t, prices.Validate())

	closes, err := prices.Column(ColumnClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, closes.Values)
	assert.Equal(t, "close", closes.Name)
}

func TestLoadPricesWithSymbolFilter(t *testing.T) {
	data := `ticker,date,open,high,low,close
AAPL,2024-01-02,100,102,99,101
MSFT,2024-01-02,300,302,299,301
AAPL,2024-01-03,101,103,100,102`

	opts := DefaultCSVOptions()
	opts.SymbolColumn = "ticker"
	opts.Symbol = "AAPL"

	prices, err := LoadPricesFromReader(strings.NewReader(data), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, prices.Len())
	assert.Equal(t, "AAPL", prices.Symbol)
}

func TestLoadPricesKeepsMissingValues(t *testing.T) {
	data := `date,open,high,low,close
2024-01-02,100,102,99,101
2024-01-03,101,103,100,NA`

	prices, err := LoadPricesFromReader(strings.NewReader(data), nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(prices.Bars[1].Close))

	err = prices.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing close")
}

func TestLoadPricesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing column", "date,open,high,low\n2024-01-02,1,2,3"},
		{"bad date", "date,open,high,low,close\nyesterday,1,2,3,4"},
		{"bad number", "date,open,high,low,close\n2024-01-02,1,2,x,4"},
		{"no rows", "date,open,high,low,close\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPricesFromReader(strings.NewReader(tt.data), nil)
			assert.Error(t, err)
		})
	}
}

func TestCSVReader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), []byte(ohlcCSV), 0o644))

	reader := NewCSVReader(dir)
	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	prices, err := reader.Prices(context.Background(), "aapl", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, prices.Len())
	assert.Equal(t, "aapl", prices.Symbol)

	_, err = reader.Prices(context.Background(), "MSFT", from, to)
	assert.Error(t, err)
}

func TestDefaultCSVOptions(t *testing.T) {
	opts := DefaultCSVOptions()
	assert.Equal(t, "date", opts.DateColumn)
	assert.Equal(t, "2006-01-02", opts.DateFormat)
	assert.Equal(t, ',', opts.Delimiter)
}
