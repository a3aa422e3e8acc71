package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/climate-gwl/internal/adapter/figure"
	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/domain"
)

// TimeSeriesResult holds the regional mean curves of every listed scenario.
type TimeSeriesResult struct {
	Variable string
	Region   string
	Series   []domain.NamedSeries
	Paths    []string
}

// TimeSeries computes the area-weighted regional mean of the time series
// variable for each listed scenario, saves one series file per scenario, and
// plots them together. Values are anomalies against the historical baseline
// unless the stage asks for raw values.
func (r *Runner) TimeSeries(ctx context.Context) (TimeSeriesResult, error) {
	a := r.analysis
	ts := a.TimeSeries
	if ts == nil {
		return TimeSeriesResult{}, &domain.ConfigurationError{Field: "timeseries", Reason: "not defined in analysis"}
	}
	start := r.clock.Now()
	ld := r.newLoader()
	region := ts.RegionValue()

	res := TimeSeriesResult{Variable: ts.Variable, Region: region.Name}
	units := ""
	for _, scen := range ts.Scenarios {
		var (
			fld *loaded
			err error
		)
		if ts.Raw {
			fld, err = ld.read(ctx, scen, ts.Variable, region)
		} else {
			fld, err = ld.anomalies(ctx, scen, ts.Variable, region)
		}
		if err != nil {
			return TimeSeriesResult{}, err
		}
		units = fld.units

		data, years, err := domain.SelectPeriod(fld.data, fld.years, a.PeriodValue())
		if errors.Is(err, domain.ErrConfiguration) {
			r.logger.Warn("scenario skipped", "scenario", scen.Label(), "period", a.Period)
			continue
		}
		if err != nil {
			return TimeSeriesResult{}, err
		}
		members, err := domain.WeightedAverage(data, fld.coords.Lats)
		if err != nil {
			return TimeSeriesResult{}, fmt.Errorf("%s %s mean: %w", scen.Label(), region.Name, err)
		}
		s := domain.NamedSeries{Name: scen.Label(), Years: slices.Clone(years), Members: members}

		path := filepath.Join(r.outputDir, TimeSeriesFile(a, scen.Label()))
		if err := r.io.Series.SaveSeries(path, s); err != nil {
			return TimeSeriesResult{}, fmt.Errorf("save %s: %w", path, err)
		}
		r.metrics.ArtifactsWritten.WithLabelValues("series").Inc()
		r.logger.Info("series saved", "scenario", s.Name, "region", region.Name, "path", path, "years", len(s.Years))
		res.Series = append(res.Series, s)
		res.Paths = append(res.Paths, path)
	}

	if len(res.Series) == 0 {
		return TimeSeriesResult{}, fmt.Errorf("period %s: %w", a.Period, errNoOverlap)
	}

	if r.io.Renderer != nil {
		ylabel := fmt.Sprintf("%s anomaly vs %d-%d", ts.Variable, a.Baseline.First, a.Baseline.Last)
		if ts.Raw {
			ylabel = ts.Variable
			if units != "" {
				ylabel += " (" + units + ")"
			}
		}
		path := filepath.Join(r.figureDir, timeSeriesStem(a)+".png")
		err := r.io.Renderer.TimeSeries(path, figure.TimeSeriesFigure{
			Title:  fmt.Sprintf("%s %s mean %s", region.Name, a.Season, ts.Variable),
			YLabel: ylabel,
			Series: res.Series,
		})
		if err != nil {
			return TimeSeriesResult{}, err
		}
		r.metrics.ArtifactsWritten.WithLabelValues("figure").Inc()
	}

	r.finish("timeseries", start)
	return res, nil
}

func timeSeriesStem(a *config.Analysis) string {
	return fmt.Sprintf("TS_%s_%s_%s", a.TimeSeries.Variable, a.Season, a.TimeSeries.Region)
}

// TimeSeriesFile names the regional mean series of a scenario, e.g.
// TS_PRECT_JJA_CentralAfrica_SSP245.nc.
func TimeSeriesFile(a *config.Analysis, label string) string {
	return timeSeriesStem(a) + "_" + label + ".nc"
}
