// Command gwl locates global warming levels in SPEAR ensembles and compares
// overshoot scenarios against a reference at matched warming.
//
// Usage:
//
//	GWL_ANALYSIS_FILE=analysis.yaml gwl gmst
//	GWL_ANALYSIS_FILE=analysis.yaml gwl epochs
//	GWL_ANALYSIS_FILE=centralafrica.yaml gwl timeseries
//	gwl locate --series output/GMT2M_EmissionScenario_SSP534OS.nc --level 2.1 --pivot-year 2040
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-gwl/internal/adapter/figure"
	"github.com/couchcryptid/climate-gwl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-gwl/internal/analysis"
	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

var noFigures bool

var rootCmd = &cobra.Command{
	Use:           "gwl",
	Short:         "Global warming level epoch locator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var gmstCmd = &cobra.Command{
	Use:   "gmst",
	Short: "Compute and save global-mean anomaly series for every scenario",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd.Context(), "gmst", func(ctx context.Context, r *analysis.Runner) error {
			_, err := r.GMST(ctx)
			return err
		})
	},
}

var epochsCmd = &cobra.Command{
	Use:   "epochs",
	Short: "Extract warming-level epochs and test overshoot differences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd.Context(), "epochs", func(ctx context.Context, r *analysis.Runner) error {
			res, err := r.Epochs(ctx)
			if err != nil {
				return err
			}
			for _, o := range res.Overshoot {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tfirst=%d\tsecond=%d\tsignificant=%d/%d\n",
					o.Scenario, o.Crossings.First.Year, o.Crossings.Second.Year,
					o.Mask.Count(), len(o.Mask.Significant))
			}
			return nil
		})
	},
}

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Compute and plot regional-mean series for the analysis timeseries block",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd.Context(), "timeseries", func(ctx context.Context, r *analysis.Runner) error {
			res, err := r.TimeSeries(ctx)
			if err != nil {
				return err
			}
			for i, s := range res.Series {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d-%d\t%s\n",
					s.Name, res.Region, s.Years[0], s.Years[len(s.Years)-1], res.Paths[i])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noFigures, "no-figures", false, "skip PNG rendering")
	rootCmd.AddCommand(gmstCmd, epochsCmd, timeseriesCmd, newLocateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("gwl failed", "error", err)
		os.Exit(1)
	}
}

// withRunner wires config, logging, metrics, and adapters around one stage.
func withRunner(ctx context.Context, stage string, fn func(context.Context, *analysis.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	a, err := cfg.RequireAnalysis()
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	writer := netcdf.NewWriter(clock)
	deps := analysis.IO{
		Reader: netcdf.NewReader(cfg.DataDir, cfg.ReadConcurrency, logger, metrics),
		Series: writer,
		Fields: writer,
	}
	if a.EpochField != nil {
		deps.Epoch = netcdf.NewEnsembleReader(cfg.DataDir, a.EpochFieldPattern(), logger, metrics)
	}
	if !noFigures {
		deps.Renderer = figure.NewRenderer(logger)
	}

	logger.Info("stage starting",
		"stage", stage,
		"analysis", cfg.AnalysisFile,
		"variable", a.Variable,
		"season", a.Season,
		"region", a.Region,
		"warming_level", a.WarmingLevel,
	)
	runErr := fn(ctx, analysis.New(a, deps, cfg.OutputDir, cfg.FigureDir, logger, metrics, clock))

	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Error("metrics textfile write failed", "path", cfg.MetricsFile, "error", err)
	}
	return runErr
}
