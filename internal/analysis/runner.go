// Package analysis wires readers, domain computations, and writers into the
// batch stages of a warming-level study.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/couchcryptid/climate-gwl/internal/adapter/figure"
	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/couchcryptid/climate-gwl/internal/observability"
	"github.com/ctessum/sparse"
	"github.com/jonboulle/clockwork"
)

// FieldReader loads every member of a dataset as [ensemble, time, lat, lon].
type FieldReader interface {
	ReadField(ctx context.Context, ref domain.DatasetRef) (*sparse.DenseArray, domain.Coords, error)
}

// SeriesWriter persists per-member global-mean curves.
type SeriesWriter interface {
	SaveSeries(path string, s domain.NamedSeries) error
}

// FieldWriter persists gridded results.
type FieldWriter interface {
	WriteField(path string, f domain.NamedField) error
}

// Renderer draws figures.
type Renderer interface {
	TimeSeries(path string, fig figure.TimeSeriesFigure) error
	Map(path string, fig figure.MapFigure) error
}

// IO groups the Runner's collaborators. A nil Renderer skips figures. Epoch
// reads the precomputed epoch field and is only needed when the analysis
// names one.
type IO struct {
	Reader   FieldReader
	Epoch    FieldReader
	Series   SeriesWriter
	Fields   FieldWriter
	Renderer Renderer
}

// Runner executes one analysis definition.
type Runner struct {
	analysis  *config.Analysis
	io        IO
	outputDir string
	figureDir string
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
}

// New creates a Runner. a must already be validated.
func New(a *config.Analysis, io IO, outputDir, figureDir string, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		analysis:  a,
		io:        io,
		outputDir: outputDir,
		figureDir: figureDir,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// GMSTResult holds the global-mean anomaly curves of every scenario.
type GMSTResult struct {
	Variable string
	Series   []domain.NamedSeries
	Paths    []string
}

// GMST computes area-weighted global-mean anomalies of the detection
// variable for every scenario and saves one series file per scenario.
func (r *Runner) GMST(ctx context.Context) (GMSTResult, error) {
	start := r.clock.Now()
	a := r.analysis
	ld := r.newLoader()

	res := GMSTResult{Variable: a.DetectionVariable}
	for _, scen := range a.Scenarios() {
		s, err := ld.globalSeries(ctx, scen, a.PeriodValue())
		if errors.Is(err, errNoOverlap) {
			r.logger.Warn("scenario skipped", "scenario", scen.Label(), "period", a.Period)
			continue
		}
		if err != nil {
			return GMSTResult{}, err
		}
		path := filepath.Join(r.outputDir, SeriesFile(a.DetectionVariable, scen.Label()))
		if err := r.io.Series.SaveSeries(path, s); err != nil {
			return GMSTResult{}, fmt.Errorf("save %s: %w", path, err)
		}
		r.metrics.ArtifactsWritten.WithLabelValues("series").Inc()
		r.logger.Info("series saved", "scenario", s.Name, "path", path, "years", len(s.Years))
		res.Series = append(res.Series, s)
		res.Paths = append(res.Paths, path)
	}

	if len(res.Series) == 0 {
		return GMSTResult{}, fmt.Errorf("period %s: %w", a.Period, errNoOverlap)
	}

	if r.io.Renderer != nil {
		path := filepath.Join(r.figureDir, "GM"+a.DetectionVariable+"_EmissionScenario.png")
		err := r.io.Renderer.TimeSeries(path, figure.TimeSeriesFigure{
			Title:    fmt.Sprintf("Global mean %s anomaly", a.DetectionVariable),
			YLabel:   fmt.Sprintf("%s anomaly vs %d-%d", a.DetectionVariable, a.Baseline.First, a.Baseline.Last),
			Series:   res.Series,
			Level:    a.WarmingLevel,
			HasLevel: a.WarmingLevel > 0,
		})
		if err != nil {
			return GMSTResult{}, err
		}
		r.metrics.ArtifactsWritten.WithLabelValues("figure").Inc()
	}

	r.finish("gmst", start)
	return res, nil
}

// ReferenceEpoch is the single-crossing epoch of the monotonic scenario.
type ReferenceEpoch struct {
	Scenario string
	Crossing domain.Crossing
	Epoch    *sparse.DenseArray
}

// OvershootEpoch is the post-peak epoch of an overshoot scenario compared
// against the reference epoch.
type OvershootEpoch struct {
	Scenario   string
	Crossings  domain.Crossings
	Epoch      *sparse.DenseArray
	Difference *sparse.DenseArray
	Mask       domain.SignificanceMask
}

// EpochsResult is the outcome of the full warming-level comparison.
type EpochsResult struct {
	Variable  string
	Level     float64
	Coords    domain.Coords
	Reference ReferenceEpoch
	Overshoot []OvershootEpoch
}

// Epochs locates the warming level in every scenario, extracts epoch means
// of the analysis variable around the crossings, and tests each overshoot
// difference for significance.
func (r *Runner) Epochs(ctx context.Context) (EpochsResult, error) {
	a := r.analysis
	if !a.HasEpochs() {
		return EpochsResult{}, &domain.ConfigurationError{Field: "reference", Reason: "epochs need reference and overshoot scenarios"}
	}
	start := r.clock.Now()
	ld := r.newLoader()

	res := EpochsResult{Variable: FieldName(a), Level: a.WarmingLevel}

	// Reference: one crossing on a monotonically warming curve.
	refSeries, err := ld.globalSeries(ctx, a.Reference, domain.AllYears)
	if err != nil {
		return EpochsResult{}, err
	}
	refCross, err := domain.LocateLevel(refSeries.EnsembleMean(), a.WarmingLevel)
	if err != nil {
		return EpochsResult{}, fmt.Errorf("%s: %w", a.Reference.Label(), err)
	}
	r.recordCrossing(a.Reference.Label(), "single", refCross)

	refField, err := ld.epochField(ctx, a.Reference)
	if err != nil {
		return EpochsResult{}, err
	}
	refIdx, err := domain.AlignIndex(refCross.Index, refSeries.EnsembleMean(), refField.series())
	if err != nil {
		return EpochsResult{}, fmt.Errorf("%s: %w", a.Reference.Label(), err)
	}
	refEpoch, err := domain.EpochMean(refField.data, refIdx, a.YrPlus)
	if err != nil {
		return EpochsResult{}, fmt.Errorf("%s epoch: %w", a.Reference.Label(), err)
	}
	refMembers, err := domain.EpochMemberMeans(refField.data, refIdx, a.YrPlus)
	if err != nil {
		return EpochsResult{}, fmt.Errorf("%s epoch: %w", a.Reference.Label(), err)
	}
	r.metrics.EpochsExtracted.Inc()

	res.Coords = refField.coords
	res.Reference = ReferenceEpoch{Scenario: a.Reference.Label(), Crossing: refCross, Epoch: refEpoch}
	if err := r.writeField(r.fieldPath(a.Reference.Label(), "epoch"), refField, refEpoch, "epoch mean", refCross.Year); err != nil {
		return EpochsResult{}, err
	}

	for _, scen := range a.Overshoot {
		ose, err := r.overshoot(ctx, ld, scen, refField, refEpoch, refMembers)
		if err != nil {
			return EpochsResult{}, err
		}
		res.Overshoot = append(res.Overshoot, ose)
	}

	r.finish("epochs", start)
	return res, nil
}

func (r *Runner) overshoot(ctx context.Context, ld *loader, scen config.Scenario, ref *loaded, refEpoch, refMembers *sparse.DenseArray) (OvershootEpoch, error) {
	a := r.analysis
	label := scen.Label()

	series, err := ld.globalSeries(ctx, scen, domain.AllYears)
	if err != nil {
		return OvershootEpoch{}, err
	}
	mean := series.EnsembleMean()
	pivot, err := domain.PivotIndex(mean, scen.PivotYear)
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s: %w", label, err)
	}
	cross, err := domain.DetectCrossings(mean, pivot, a.WarmingLevel)
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s: %w", label, err)
	}
	r.recordCrossing(label, "first", cross.First)
	r.recordCrossing(label, "second", cross.Second)

	fld, err := ld.epochField(ctx, scen)
	if err != nil {
		return OvershootEpoch{}, err
	}
	idx, err := domain.AlignIndex(cross.Second.Index, mean, fld.series())
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s: %w", label, err)
	}
	epoch, err := domain.EpochMean(fld.data, idx, a.YrPlus)
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s epoch: %w", label, err)
	}
	members, err := domain.EpochMemberMeans(fld.data, idx, a.YrPlus)
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s epoch: %w", label, err)
	}
	r.metrics.EpochsExtracted.Inc()

	diff, err := domain.Difference(epoch, refEpoch)
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s difference: %w", label, err)
	}
	mask, err := domain.Significance(refMembers, members, a.Alpha)
	if err != nil {
		return OvershootEpoch{}, fmt.Errorf("%s significance: %w", label, err)
	}
	r.metrics.SignificantPoints.WithLabelValues(label).Set(float64(mask.Count()))
	r.logger.Info("epoch compared",
		"scenario", label,
		"first_year", cross.First.Year,
		"second_year", cross.Second.Year,
		"significant_points", mask.Count(),
		"points", len(mask.Significant),
	)

	for _, out := range []struct {
		suffix string
		data   *sparse.DenseArray
		desc   string
	}{
		{"epoch", epoch, "epoch mean"},
		{"diff", diff, "epoch difference from " + a.Reference.Label()},
		{"hatch", mask.Hatch(), "1 where significant at FDR " + fmt.Sprint(a.Alpha)},
	} {
		if err := r.writeField(r.fieldPath(label, out.suffix), fld, out.data, out.desc, cross.Second.Year); err != nil {
			return OvershootEpoch{}, err
		}
	}

	if r.io.Renderer != nil {
		path := filepath.Join(r.figureDir, r.stem(label)+"_diff.png")
		err := r.io.Renderer.Map(path, figure.MapFigure{
			Title: fmt.Sprintf("%s minus %s at %.1f°C (%s %s)", label, a.Reference.Label(), a.WarmingLevel, a.Variable, a.Season),
			Field: domain.NamedField{Name: FieldName(a), Units: fld.units, Data: diff, Coords: fld.coords},
			Mask:  &mask,
		})
		if err != nil {
			return OvershootEpoch{}, err
		}
		r.metrics.ArtifactsWritten.WithLabelValues("figure").Inc()
	}

	return OvershootEpoch{
		Scenario:   label,
		Crossings:  cross,
		Epoch:      epoch,
		Difference: diff,
		Mask:       mask,
	}, nil
}

func (r *Runner) recordCrossing(scenario, phase string, c domain.Crossing) {
	r.metrics.CrossingYear.WithLabelValues(scenario, phase).Set(float64(c.Year))
	r.metrics.CrossingDistance.WithLabelValues(scenario, phase).Set(c.Distance)
	if c.Distance > r.analysis.AttainmentTolerance {
		r.logger.Warn("warming level not attained",
			"scenario", scenario,
			"phase", phase,
			"level", r.analysis.WarmingLevel,
			"closest_year", c.Year,
			"closest_value", c.Value,
			"distance", c.Distance,
		)
		return
	}
	r.logger.Info("warming level located", "scenario", scenario, "phase", phase, "year", c.Year)
}

// writeField saves an epoch artifact. crossingYear is the year the epoch is
// centred on.
func (r *Runner) writeField(path string, src *loaded, data *sparse.DenseArray, desc string, crossingYear int) error {
	a := r.analysis
	attrs := map[string]string{
		"description":   desc,
		"season":        a.Season,
		"region":        a.Region,
		"warming_level": fmt.Sprint(a.WarmingLevel),
		"yrplus":        fmt.Sprint(a.YrPlus),
		"crossing_year": fmt.Sprint(crossingYear),
	}
	if a.EpochField != nil {
		attrs["source_variable"] = a.Variable
	}
	err := r.io.Fields.WriteField(path, domain.NamedField{
		Name:   FieldName(a),
		Units:  src.units,
		Data:   data,
		Coords: src.coords,
		Attrs:  attrs,
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.metrics.ArtifactsWritten.WithLabelValues("field").Inc()
	return nil
}

func (r *Runner) stem(label string) string { return Stem(r.analysis, label) }

func (r *Runner) fieldPath(label, suffix string) string {
	return filepath.Join(r.outputDir, FieldFile(r.analysis, label, suffix))
}

func (r *Runner) finish(stage string, start time.Time) {
	r.metrics.StageDuration.WithLabelValues(stage).Observe(r.clock.Since(start).Seconds())
	r.metrics.LastSuccess.Set(float64(r.clock.Now().Unix()))
	r.logger.Info("stage complete", "stage", stage, "duration", r.clock.Since(start))
}

// Stem is the file name prefix shared by every epoch artifact of a scenario,
// e.g. PRECT_JJA_US_GWL21_SSP534OS.
func Stem(a *config.Analysis, label string) string {
	lvl := int(math.Round(a.WarmingLevel * 10))
	return fmt.Sprintf("%s_%s_%s_GWL%d_%s", a.Variable, a.Season, a.Region, lvl, label)
}

// FieldName is the variable name of epoch artifacts: the precomputed epoch
// field's variable when one is configured, else the analysis variable.
func FieldName(a *config.Analysis) string {
	if a.EpochField != nil {
		return a.EpochField.Variable
	}
	return a.Variable
}

// FieldFile names an epoch NetCDF artifact; suffix is epoch, diff, or hatch.
func FieldFile(a *config.Analysis, label, suffix string) string {
	return Stem(a, label) + "_" + suffix + ".nc"
}

// SeriesFile names the global-mean series artifact of a scenario.
func SeriesFile(variable, label string) string {
	return "GM" + variable + "_EmissionScenario_" + label + ".nc"
}
