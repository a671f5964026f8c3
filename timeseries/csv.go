package timeseries

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for loading OHLC tables from CSV.
type CSVOptions struct {
	DateColumn   string // Column name for dates (default: "date")
	SymbolColumn string // Column name for the ticker (optional, for filtering)
	Symbol       string // Value to filter by SymbolColumn
	DateFormat   string // Date format (default: "2006-01-02")
	Delimiter    rune   // Field delimiter (default: ',')
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn: "date",
		DateFormat: time.DateOnly,
		Delimiter:  ',',
	}
}

var dateFormats = []string{
	time.DateOnly,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
}

// LoadPricesCSV loads an OHLC table from a CSV file.
func LoadPricesCSV(filename string, opts *CSVOptions) (*PriceSeries, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadPricesFromReader(file, opts)
}

// LoadPricesFromReader loads an OHLC table from an io.Reader. The header must
// name a date column and the open, high, low and close columns (any case).
// Missing prices ("", NA, NaN, null) are kept as NaN so PriceSeries.Validate
// can reject them; rows are sorted by date.
func LoadPricesFromReader(r io.Reader, opts *CSVOptions) (*PriceSeries, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := map[string]int{}
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.Trim(h, "\"")))] = i
	}

	dateIdx, ok := index[strings.ToLower(opts.DateColumn)]
	if !ok {
		return nil, fmt.Errorf("date column %q not found", opts.DateColumn)
	}
	priceIdx := make([]int, len(Columns))
	for i, column := range Columns {
		idx, ok := index[column]
		if !ok {
			return nil, fmt.Errorf("price column %q not found", column)
		}
		priceIdx[i] = idx
	}
	symbolIdx := -1
	if opts.SymbolColumn != "" {
		idx, ok := index[strings.ToLower(opts.SymbolColumn)]
		if !ok {
			return nil, fmt.Errorf("symbol column %q not found", opts.SymbolColumn)
		}
		symbolIdx = idx
	}

	series := &PriceSeries{Symbol: opts.Symbol}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		if symbolIdx >= 0 && opts.Symbol != "" && field(record, symbolIdx) != opts.Symbol {
			continue
		}

		date, err := parseDate(field(record, dateIdx), opts.DateFormat)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var prices [4]float64
		for i, idx := range priceIdx {
			v, err := parsePrice(field(record, idx))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, Columns[i], err)
			}
			prices[i] = v
		}

		series.Bars = append(series.Bars, PriceBar{
			Date:  date,
			Open:  prices[0],
			High:  prices[1],
			Low:   prices[2],
			Close: prices[3],
		})
	}

	if len(series.Bars) == 0 {
		return nil, errors.New("no price rows found in CSV")
	}

	sort.SliceStable(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})
	return series, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(record[idx], "\""))
}

func parseDate(s, preferred string) (time.Time, error) {
	formats := dateFormats
	if preferred != "" {
		formats = append([]string{preferred}, dateFormats...)
	}
	for _, f := range formats {
		if ts, err := time.Parse(f, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parsePrice(s string) (float64, error) {
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// CSVReader serves prices from CSV files named <SYMBOL>.csv inside Dir.
type CSVReader struct {
	Dir     string
	Options *CSVOptions
}

// NewCSVReader creates a PriceReader over a directory of per-symbol files.
func NewCSVReader(dir string) *CSVReader {
	return &CSVReader{Dir: dir, Options: DefaultCSVOptions()}
}

// Prices implements PriceReader.
func (r *CSVReader) Prices(ctx context.Context, symbol string, from, to time.Time) (*PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(r.Dir, strings.ToUpper(symbol)+".csv")
	series, err := LoadPricesCSV(path, r.Options)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	series.Symbol = symbol
	return series.Between(from, to), nil
}

var _ PriceReader = (*CSVReader)(nil)
