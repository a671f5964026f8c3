// Command pricecast forecasts next-day prices with ARIMAX models and serves
// the pipeline over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/sartorproj/pricecast/config"
	"github.com/sartorproj/pricecast/forecast"
	"github.com/sartorproj/pricecast/metrics"
	"github.com/sartorproj/pricecast/store"
	"github.com/sartorproj/pricecast/timeseries"
	"github.com/spf13/cobra"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	daysBack   int

	cfg        *config.Config
	log        zerolog.Logger
	registry   *prometheus.Registry
	forecaster *forecast.Forecaster
	closers    []io.Closer
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "pricecast",
		Short: "ARIMAX next-day price forecasting",
		Long: `pricecast fits ARIMAX models to the log-differenced prices of a symbol,
using one price column as the exogenous regressor, and forecasts the next
trading days with confidence intervals.

Settings come from an optional YAML file and PRICECAST_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().IntVar(&a.daysBack, "days-back", 0, "days of history to read (default from config)")

	root.AddCommand(
		newForecastCmd(a),
		newStationarityCmd(a),
		newSmoothCmd(a),
		newChangepointsCmd(a),
		newServeCmd(a),
	)
	return root, a
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.daysBack > 0 {
		cfg.Data.DaysBack = a.daysBack
	}
	a.cfg = cfg

	log, logCloser, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	a.log = log
	a.closers = append(a.closers, logCloser)

	reader, err := a.openReader(ctx)
	if err != nil {
		return err
	}

	pipeline, err := cfg.Forecast()
	if err != nil {
		return err
	}
	pipeline.Logger = &a.log

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.forecaster = forecast.NewForecaster(reader, pipeline, a.log, metrics.New(a.registry))

	a.log.Debug().
		Str("source", cfg.Data.Source).
		Int("days_back", cfg.Data.DaysBack).
		Bool("strict", cfg.Pipeline.Strict).
		Msg("configuration loaded")
	return nil
}

func (a *app) openReader(ctx context.Context) (timeseries.PriceReader, error) {
	switch a.cfg.Data.Source {
	case config.SourcePostgres:
		r, err := store.Open(ctx, a.cfg.Data.PostgresDSN, a.cfg.Data.Table)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r)
		return r, nil
	case config.SourceCSV:
		return timeseries.NewCSVReader(a.cfg.Data.CSVDir), nil
	}
	return nil, fmt.Errorf("unknown data source %q", a.cfg.Data.Source)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
