package forecast

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*2654435761+1))
}

func bar(date time.Time, open, close float64) timeseries.PriceBar {
	return timeseries.PriceBar{
		Date:  date,
		Open:  open,
		High:  math.Max(open, close) * 1.01,
		Low:   math.Min(open, close) * 0.99,
		Close: close,
	}
}

// flatPrices has open near 100 and close near 102 with 1% noise.
func flatPrices(seed uint64, n int) *timeseries.PriceSeries {
	rng := newRand(seed)
	p := &timeseries.PriceSeries{Symbol: "TEST"}
	for i := 0; i < n; i++ {
		open := 100 * math.Exp(0.01*rng.NormFloat64())
		close := 102 * math.Exp(0.01*rng.NormFloat64())
		p.Bars = append(p.Bars, bar(day0.AddDate(0, 0, i), open, close))
	}
	return p
}

// trendingReturns has log returns that follow a random walk, so the
// log-difference of close is not stationary.
func trendingReturns(seed uint64, n int) *timeseries.PriceSeries {
	rng := newRand(seed)
	p := &timeseries.PriceSeries{Symbol: "TREND"}
	ret, logClose := 0.0, math.Log(100)
	for i := 0; i < n; i++ {
		ret += 0.002 * rng.NormFloat64()
		logClose += ret
		close := math.Exp(logClose)
		open := close * math.Exp(0.005*rng.NormFloat64())
		p.Bars = append(p.Bars, bar(day0.AddDate(0, 0, i), open, close))
	}
	return p
}

type staticReader struct {
	series   *timeseries.PriceSeries
	err      error
	from, to time.Time
}

func (r *staticReader) Prices(_ context.Context, symbol string, from, to time.Time) (*timeseries.PriceSeries, error) {
	r.from, r.to = from, to
	if r.err != nil {
		return nil, r.err
	}
	out := r.series.Between(from, to)
	out.Symbol = symbol
	return out, nil
}

type recorder struct {
	searches    []string
	gate        []bool
	outcomes    []string
	lastPrices  map[string]float64
	searchTried int
}

func (r *recorder) RecordSearch(order string, tried, _ int, _ time.Duration) {
	r.searches = append(r.searches, order)
	r.searchTried = tried
}

func (r *recorder) RecordStationarity(_ string, stationary bool) {
	r.gate = append(r.gate, stationary)
}

func (r *recorder) RecordForecast(_, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) RecordLastForecast(symbol string, price float64) {
	if r.lastPrices == nil {
		r.lastPrices = map[string]float64{}
	}
	r.lastPrices[symbol] = price
}

func TestPrepare(t *testing.T) {
	prices := flatPrices(1, 20)
	prepared, err := Prepare(prices)
	require.NoError(t, err)

	for _, column := range []string{"open_logdiff", "high_logdiff", "low_logdiff", "close_logdiff"} {
		require.Contains(t, prepared.LogDiff, column)
		assert.Len(t, prepared.LogDiff[column], 19)
	}
	want := math.Log(prices.Bars[1].Close) - math.Log(prices.Bars[0].Close)
	assert.InDelta(t, want, prepared.LogDiff["close_logdiff"][0], 1e-12)

	byName, err := prepared.Column("close")
	require.NoError(t, err)
	byAlias, err := prepared.Column("close_logdiff")
	require.NoError(t, err)
	assert.Equal(t, byName, byAlias)

	_, err = prepared.Column("volume")
	assert.Error(t, err)
}

func TestPrepareErrors(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		_, err := Prepare(nil)
		assert.ErrorIs(t, err, timeseries.ErrEmptySeries)
	})

	t.Run("single row", func(t *testing.T) {
		_, err := Prepare(flatPrices(2, 1))
		assert.Error(t, err)
	})

	t.Run("non-positive", func(t *testing.T) {
		prices := flatPrices(3, 10)
		prices.Bars[4].Low = 0
		_, err := Prepare(prices)
		assert.ErrorIs(t, err, timeseries.ErrNonPositive)
	})

	t.Run("missing", func(t *testing.T) {
		prices := flatPrices(4, 10)
		prices.Bars[5].Close = math.NaN()
		_, err := Prepare(prices)
		assert.Error(t, err)
	})

	t.Run("unordered", func(t *testing.T) {
		prices := flatPrices(5, 10)
		prices.Bars[3], prices.Bars[4] = prices.Bars[4], prices.Bars[3]
		_, err := Prepare(prices)
		assert.Error(t, err)
	})
}

func TestPrepareAndValidate(t *testing.T) {
	reader := &staticReader{series: flatPrices(6, 200)}
	now := day0.AddDate(0, 0, 199)

	prepared, err := PrepareAndValidate(context.Background(), reader, "AAPL", 150, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -150), reader.from)
	assert.Equal(t, now, reader.to)
	assert.Equal(t, "AAPL", prepared.Prices.Symbol)
	assert.Equal(t, 151, prepared.Prices.Len())
	assert.Len(t, prepared.LogDiff["open_logdiff"], 150)

	_, err = PrepareAndValidate(context.Background(), reader, "AAPL", 150, day0.AddDate(-1, 0, 0))
	assert.ErrorIs(t, err, timeseries.ErrEmptySeries)

	_, err = PrepareAndValidate(context.Background(), reader, "AAPL", 0, now)
	assert.Error(t, err)

	boom := errors.New("connection refused")
	_, err = PrepareAndValidate(context.Background(), &staticReader{err: boom}, "AAPL", 150, now)
	assert.ErrorIs(t, err, boom)
}

func TestFitAndForecastNextDay(t *testing.T) {
	res, err := FitAndForecastNextDay(flatPrices(7, 150), "close", "open", 150.0, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.LessOrEqual(t, row.LowerCI, row.Forecast)
	assert.LessOrEqual(t, row.Forecast, row.UpperCI)
	assert.Greater(t, row.LowerCI, 0.0)
	assert.Equal(t, 150.0, row.Exog)
}

func TestPrepareDataAndFit(t *testing.T) {
	prices := flatPrices(8, 150)
	fit, err := PrepareDataAndFit(prices, "close", "open", DefaultConfig())
	require.NoError(t, err)

	assert.Len(t, fit.Target, 149)
	assert.Len(t, fit.Exog, 149)
	assert.True(t, fit.Stationarity.Stationary())
	assert.Equal(t, prices.Bars[149].Close, fit.LastPrice)
	assert.Equal(t, fit.Order, fit.Model.Order())
	assert.Len(t, fit.Search.Candidates, 18)
	assert.Nil(t, fit.Smoothed)
	assert.NotNil(t, fit.Changepoints)
}

func TestPrepareDataAndFitSmoothed(t *testing.T) {
	kind := smooth.KindSMA
	cfg := DefaultConfig()
	cfg.Smoother = &kind
	cfg.Window = 5
	cfg.Strict = false

	fit, err := PrepareDataAndFit(flatPrices(9, 150), "close", "open", cfg)
	require.NoError(t, err)
	require.NotNil(t, fit.Smoothed)
	assert.Equal(t, fit.Smoothed.Fitted[149], fit.LastPrice)
	assert.Equal(t, smooth.KindSMA, fit.Smoothed.Kind)
}

func TestPrepareDataAndFitGate(t *testing.T) {
	rejected := 0
	for seed := uint64(1); seed <= 5; seed++ {
		prices := trendingReturns(seed, 200)

		_, err := PrepareDataAndFit(prices, "close", "open", DefaultConfig())
		if !errors.Is(err, ErrNonStationary) {
			continue
		}
		rejected++

		var nsErr *NonStationaryError
		require.ErrorAs(t, err, &nsErr)
		assert.Equal(t, "close", nsErr.Column)
		assert.False(t, nsErr.Report.Stationary())
		assert.Contains(t, err.Error(), "not stationary")

		var buf bytes.Buffer
		log := zerolog.New(zerolog.SyncWriter(&buf))
		cfg := DefaultConfig()
		cfg.Strict = false
		cfg.Logger = &log
		fit, err := PrepareDataAndFit(prices, "close", "open", cfg)
		require.NoError(t, err, "lenient mode fits anyway")
		assert.False(t, fit.Stationarity.Stationary())
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), "non-stationary")
	}
	assert.GreaterOrEqual(t, rejected, 4, "random-walk returns should fail the gate")
}

func TestPrepareDataAndFitErrors(t *testing.T) {
	_, err := PrepareDataAndFit(flatPrices(10, 150), "close", "volume", DefaultConfig())
	assert.Error(t, err)

	lenient := DefaultConfig()
	lenient.Strict = false
	_, err = PrepareDataAndFit(flatPrices(11, 20), "close", "open", lenient)
	assert.ErrorIs(t, err, arimax.ErrInsufficientData)
	assert.Contains(t, err.Error(), "need ≥30, got 19")

	prices := flatPrices(12, 150)
	prices.Bars[10].Close = math.NaN()
	_, err = PrepareDataAndFit(prices, "close", "open", DefaultConfig())
	assert.Error(t, err)
}

func TestForecastPricesAnchorAdvance(t *testing.T) {
	fit, err := PrepareDataAndFit(flatPrices(13, 150), "close", "open", DefaultConfig())
	require.NoError(t, err)

	exog := []float64{101, 103}
	res, err := ForecastPrices(fit.Model, exog, fit.LastPrice, 0.05)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	first, second := res.Rows[0], res.Rows[1]
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, fit.LastPrice, first.Anchor)
	assert.Equal(t, first.Forecast, second.Anchor, "step 2 is anchored on the step 1 forecast")

	logExog := []float64{
		math.Log(exog[0]) - math.Log(first.Anchor),
		math.Log(exog[1]) - math.Log(second.Anchor),
	}
	pred, err := fit.Model.Forecast(logExog, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, first.Anchor*math.Exp(pred.Mean[0]), first.Forecast, 1e-9)
	assert.InDelta(t, second.Anchor*math.Exp(pred.Mean[1]), second.Forecast, 1e-9)
	assert.InDelta(t, second.Anchor*math.Exp(pred.Lower[1]), second.LowerCI, 1e-9)
	assert.InDelta(t, second.Anchor*math.Exp(pred.Upper[1]), second.UpperCI, 1e-9)
}

func TestForecastPricesErrors(t *testing.T) {
	fit, err := PrepareDataAndFit(flatPrices(14, 100), "close", "open", DefaultConfig())
	require.NoError(t, err)

	_, err = ForecastPrices(nil, []float64{100}, 100, 0.05)
	assert.ErrorIs(t, err, arimax.ErrInvalidInput)
	_, err = ForecastPrices(fit.Model, nil, 100, 0.05)
	assert.ErrorIs(t, err, arimax.ErrInvalidInput)
	_, err = ForecastPrices(fit.Model, []float64{100}, 0, 0.05)
	assert.ErrorIs(t, err, timeseries.ErrNonPositive)
	_, err = ForecastPrices(fit.Model, []float64{-1}, 100, 0.05)
	assert.ErrorIs(t, err, timeseries.ErrNonPositive)
	_, err = ForecastPrices(fit.Model, []float64{100}, 100, 1.5)
	assert.ErrorIs(t, err, arimax.ErrInvalidInput)
}

func TestForecasterRun(t *testing.T) {
	reader := &staticReader{series: flatPrices(15, 220)}
	rec := &recorder{}
	f := NewForecaster(reader, DefaultConfig(), zerolog.Nop(), rec)
	f.now = func() time.Time { return day0.AddDate(0, 0, 219) }

	resp, err := f.Run(context.Background(), Request{Symbol: "AAPL", DaysBack: 150, NextOpen: 101, Steps: 3})
	require.NoError(t, err)

	_, err = uuid.Parse(resp.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "close", resp.Target)
	assert.Equal(t, "open", resp.Exog)
	assert.Equal(t, 151, resp.Observations)
	require.Len(t, resp.Forecast.Rows, 3)
	assert.NotNil(t, resp.Summary)

	assert.Equal(t, []string{"ok"}, rec.outcomes)
	assert.Equal(t, []string{resp.Forecast.Order.String()}, rec.searches)
	assert.Equal(t, 18, rec.searchTried)
	assert.Equal(t, resp.Forecast.Rows[0].Forecast, rec.lastPrices["AAPL"])
}

func TestForecasterRunErrors(t *testing.T) {
	rec := &recorder{}
	f := NewForecaster(&staticReader{err: errors.New("down")}, DefaultConfig(), zerolog.Nop(), rec)

	_, err := f.Run(context.Background(), Request{Symbol: "", DaysBack: 150, NextOpen: 101})
	assert.Error(t, err, "symbol is required")

	_, err = f.Run(context.Background(), Request{Symbol: "AAPL", DaysBack: 150, NextOpen: 101, Target: "volume"})
	assert.Error(t, err)

	_, err = f.Run(context.Background(), Request{Symbol: "AAPL", DaysBack: 150, NextOpen: 101})
	assert.Error(t, err)
	assert.Equal(t, []string{"error"}, rec.outcomes)
}

func TestForecasterAnalyses(t *testing.T) {
	reader := &staticReader{series: flatPrices(16, 220)}
	f := NewForecaster(reader, DefaultConfig(), zerolog.Nop(), nil)
	f.now = func() time.Time { return day0.AddDate(0, 0, 219) }
	ctx := context.Background()

	report, err := f.Stationarity(ctx, "AAPL", "close", 150)
	require.NoError(t, err)
	assert.True(t, report.Stationary())

	bands, err := f.Smooth(ctx, "AAPL", "close", 150, smooth.KindExponential)
	require.NoError(t, err)
	assert.Equal(t, 151, bands.Len())

	shifts, err := f.Changepoints(ctx, "AAPL", "close", 150)
	require.NoError(t, err)
	for _, idx := range shifts {
		assert.Greater(t, idx, 0)
		assert.Less(t, idx, 151)
		assert.Zero(t, idx%5, "breakpoints lie on the jump grid")
	}

	_, err = f.Stationarity(ctx, "AAPL", "volume", 150)
	assert.Error(t, err)
}
