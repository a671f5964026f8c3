// Package metrics records pipeline events with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder receives pipeline events.
type Recorder interface {
	// RecordSearch records one order search.
	RecordSearch(order string, tried, failed int, elapsed time.Duration)
	// RecordStationarity records a stationarity gate verdict.
	RecordStationarity(column string, stationary bool)
	// RecordForecast records one forecast run.
	RecordForecast(symbol, outcome string, elapsed time.Duration)
	// RecordLastForecast records the first forecast price of a run.
	RecordLastForecast(symbol string, price float64)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordSearch(string, int, int, time.Duration) {}
func (Nop) RecordStationarity(string, bool)              {}
func (Nop) RecordForecast(string, string, time.Duration) {}
func (Nop) RecordLastForecast(string, float64)           {}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	searches       *prometheus.CounterVec
	candidates     *prometheus.CounterVec
	searchLatency  prometheus.Histogram
	gate           *prometheus.CounterVec
	forecasts      *prometheus.CounterVec
	forecastTiming *prometheus.HistogramVec
	lastForecast   *prometheus.GaugeVec
}

// New registers the pricecast collectors with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricecast",
				Name:      "order_searches_total",
				Help:      "Order searches by selected order",
			},
			[]string{"order"},
		),
		candidates: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricecast",
				Name:      "order_candidates_total",
				Help:      "Candidate fits by outcome",
			},
			[]string{"outcome"},
		),
		searchLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pricecast",
				Name:      "order_search_duration_seconds",
				Help:      "Duration of order searches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		gate: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricecast",
				Name:      "stationarity_checks_total",
				Help:      "Stationarity gate verdicts by column",
			},
			[]string{"column", "stationary"},
		),
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricecast",
				Name:      "forecasts_total",
				Help:      "Forecast runs by symbol and outcome",
			},
			[]string{"symbol", "outcome"},
		),
		forecastTiming: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pricecast",
				Name:      "forecast_duration_seconds",
				Help:      "Duration of forecast runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		lastForecast: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pricecast",
				Name:      "last_forecast_price",
				Help:      "Latest next-step price forecast for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

func (p *Prometheus) RecordSearch(order string, tried, failed int, elapsed time.Duration) {
	p.searches.WithLabelValues(order).Inc()
	p.candidates.WithLabelValues(OutcomeOK).Add(float64(tried - failed))
	p.candidates.WithLabelValues(OutcomeError).Add(float64(failed))
	p.searchLatency.Observe(elapsed.Seconds())
}

func (p *Prometheus) RecordStationarity(column string, stationary bool) {
	label := "false"
	if stationary {
		label = "true"
	}
	p.gate.WithLabelValues(column, label).Inc()
}

func (p *Prometheus) RecordForecast(symbol, outcome string, elapsed time.Duration) {
	p.forecasts.WithLabelValues(symbol, outcome).Inc()
	p.forecastTiming.WithLabelValues(symbol).Observe(elapsed.Seconds())
}

func (p *Prometheus) RecordLastForecast(symbol string, price float64) {
	p.lastForecast.WithLabelValues(symbol).Set(price)
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*Prometheus)(nil)
)
