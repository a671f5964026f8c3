package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sartorproj/pricecast/forecast"
	"github.com/sartorproj/pricecast/server"
	"github.com/sartorproj/pricecast/smooth"
	"github.com/sartorproj/pricecast/timeseries"
	"github.com/spf13/cobra"
)

func newForecastCmd(a *app) *cobra.Command {
	var req forecast.Request
	cmd := &cobra.Command{
		Use:   "forecast SYMBOL",
		Short: "Fit the best ARIMAX order and forecast the next trading days",
		Example: `  pricecast forecast AAPL --next-open 189.5
  pricecast forecast AAPL --next-open 189.5 --steps 5 --target high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Symbol = args[0]
			req.DaysBack = a.cfg.Data.DaysBack
			resp, err := a.forecaster.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().Float64Var(&req.NextOpen, "next-open", 0, "assumed next value of the exogenous column")
	cmd.Flags().IntVar(&req.Steps, "steps", 1, "number of trading days to forecast")
	cmd.Flags().StringVar(&req.Target, "target", timeseries.ColumnClose, "price column to forecast")
	cmd.Flags().StringVar(&req.Exog, "exog", timeseries.ColumnOpen, "price column used as the regressor")
	_ = cmd.MarkFlagRequired("next-open")
	return cmd
}

func newStationarityCmd(a *app) *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "stationarity SYMBOL",
		Short: "Run ADF and KPSS on the log-differenced prices of one column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.forecaster.Stationarity(cmd.Context(), args[0], column, a.cfg.Data.DaysBack)
			if err != nil {
				return err
			}
			return printJSON(cmd, server.StationarityResponse{
				Symbol:             args[0],
				Column:             column + forecast.LogDiffSuffix,
				Stationary:         report.Stationary(),
				StationarityReport: report,
			})
		},
	}
	cmd.Flags().StringVar(&column, "column", timeseries.ColumnClose, "price column to test")
	return cmd
}

func newSmoothCmd(a *app) *cobra.Command {
	var column, kindName string
	cmd := &cobra.Command{
		Use:   "smooth SYMBOL",
		Short: "Smooth one price column and print confidence and prediction bands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := smooth.ParseKind(kindName)
			if err != nil {
				return err
			}
			smoothed, err := a.forecaster.Smooth(cmd.Context(), args[0], column, a.cfg.Data.DaysBack, kind)
			if err != nil {
				return err
			}
			return printJSON(cmd, server.SmoothResponse{Symbol: args[0], Column: column, SmoothedSeries: smoothed})
		},
	}
	cmd.Flags().StringVar(&column, "column", timeseries.ColumnClose, "price column to smooth")
	cmd.Flags().StringVar(&kindName, "kind", smooth.KindLowess.String(), "smoother: lowess, exponential or sma")
	return cmd
}

func newChangepointsCmd(a *app) *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "changepoints SYMBOL",
		Short: "Detect level shifts in one price column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bkps, err := a.forecaster.Changepoints(cmd.Context(), args[0], column, a.cfg.Data.DaysBack)
			if err != nil {
				return err
			}
			return printJSON(cmd, server.ChangepointsResponse{Symbol: args[0], Column: column, Changepoints: bkps})
		},
	}
	cmd.Flags().StringVar(&column, "column", timeseries.ColumnClose, "price column to segment")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecasting API and Prometheus metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.forecaster, a.registry, a.log, a.cfg.Server, a.cfg.Data.DaysBack)
			return srv.ListenAndServe(ctx)
		},
	}
}
