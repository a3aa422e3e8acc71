package main

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/climate-gwl/internal/adapter/figure"
	"github.com/couchcryptid/climate-gwl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-gwl/internal/analysis"
	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/couchcryptid/climate-gwl/internal/observability"
	"github.com/spf13/cobra"
)

func newLocateCmd() *cobra.Command {
	var (
		seriesPath string
		figurePath string
		level      float64
		tolerance  float64
		pivotYear  int
	)
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Locate warming-level crossings in a saved global-mean series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seriesPath == "" {
				return errors.New("--series is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg)

			s, err := netcdf.LoadSeries(seriesPath)
			if err != nil {
				return err
			}
			found, err := analysis.Locate(s, level, pivotYear)
			if err != nil {
				return err
			}

			markers := make([]figure.Marker, 0, len(found))
			for _, c := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%.3f\t%.3f\n", s.Name, c.Phase, c.Year, c.Value, c.Distance)
				if c.Distance > tolerance {
					logger.Warn("warming level not attained", "scenario", s.Name, "phase", c.Phase, "closest_year", c.Year, "distance", c.Distance)
				}
				markers = append(markers, figure.Marker{Label: c.Phase, Year: c.Year, Value: c.Value})
			}

			if figurePath == "" || noFigures {
				return nil
			}
			return figure.NewRenderer(logger).TimeSeries(figurePath, figure.TimeSeriesFigure{
				Title:    fmt.Sprintf("%s crossings of %.1f", s.Name, level),
				YLabel:   "global mean anomaly",
				Series:   []domain.NamedSeries{s},
				Level:    level,
				HasLevel: true,
				Markers:  markers,
			})
		},
	}
	cmd.Flags().StringVar(&seriesPath, "series", "", "series NetCDF written by gmst")
	cmd.Flags().Float64Var(&level, "level", 2.0, "warming level in degrees above baseline")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.1, "distance above which the level counts as not attained")
	cmd.Flags().IntVar(&pivotYear, "pivot-year", 0, "split year for overshoot scenarios; 0 searches once")
	cmd.Flags().StringVar(&figurePath, "figure", "", "optional PNG with the located crossings marked")
	return cmd
}
