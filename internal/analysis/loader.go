package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/ctessum/sparse"
)

// loaded is a yearly field ready for analysis, [ensemble, year, lat, lon].
type loaded struct {
	data   *sparse.DenseArray
	years  []int
	coords domain.Coords
	units  string
}

func (l *loaded) series() domain.TimeSeries { return domain.TimeSeries{Years: l.years} }

// loader reads each (scenario, variable, region) once per stage and shares
// the historical climatology between scenarios.
type loader struct {
	r     *Runner
	climo map[string]*sparse.DenseArray
	anom  map[string]*loaded
}

func (r *Runner) newLoader() *loader {
	return &loader{r: r, climo: map[string]*sparse.DenseArray{}, anom: map[string]*loaded{}}
}

func scenarioKey(s config.Scenario) string { return s.Dataset + "/" + s.Scenario }

// read loads one variable, cleans fill values, converts units, reduces to the
// configured season, and crops to region.
func (l *loader) read(ctx context.Context, scen config.Scenario, variable string, region domain.Region) (*loaded, error) {
	a := l.r.analysis
	ref := scen.Ref(variable, a.Monthly)
	raw, coords, err := l.r.io.Reader.ReadField(ctx, ref)
	if err != nil {
		return nil, err
	}
	domain.CleanMissing(raw)
	units := domain.ConvertUnits(variable, raw)

	data := raw
	first := scen.FirstYear
	if a.Monthly {
		season := a.SeasonValue()
		if data, err = domain.SeasonalMean(raw, season); err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		first += season.YearOffset()
	}

	data, coords, err = domain.RegionSubset(data, coords, region)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	years := make([]int, data.Shape[1])
	for i := range years {
		years[i] = first + i
	}
	return &loaded{data: data, years: years, coords: coords, units: units}, nil
}

// anomalies returns the scenario's departure from the historical baseline
// climatology of the same variable and region.
func (l *loader) anomalies(ctx context.Context, scen config.Scenario, variable string, region domain.Region) (*loaded, error) {
	key := scenarioKey(scen) + "|" + variable + "|" + region.Name
	if c, ok := l.anom[key]; ok {
		return c, nil
	}

	a := l.r.analysis
	climKey := variable + "|" + region.Name
	var raw *loaded
	clim, ok := l.climo[climKey]
	if !ok {
		hist, err := l.read(ctx, a.Historical, variable, region)
		if err != nil {
			return nil, err
		}
		clim, err = domain.Climatology(hist.data, hist.years, a.Baseline.First, a.Baseline.Last)
		if err != nil {
			return nil, fmt.Errorf("baseline climatology: %w", err)
		}
		l.climo[climKey] = clim
		if scenarioKey(scen) == scenarioKey(a.Historical) {
			raw = hist
		}
	}
	if raw == nil {
		var err error
		if raw, err = l.read(ctx, scen, variable, region); err != nil {
			return nil, err
		}
	}

	data, err := domain.Anomalies(raw.data, clim)
	if err != nil {
		return nil, fmt.Errorf("%s anomalies: %w", scen.Label(), err)
	}
	out := &loaded{data: data, years: raw.years, coords: raw.coords, units: raw.units}
	l.anom[key] = out
	return out, nil
}

// epochField is the field epochs are averaged from: the precomputed epoch
// field when one is configured, otherwise anomalies of the analysis variable.
// Precomputed fields are used as stored, with no unit or seasonal handling.
func (l *loader) epochField(ctx context.Context, scen config.Scenario) (*loaded, error) {
	a := l.r.analysis
	if a.EpochField == nil {
		return l.anomalies(ctx, scen, a.Variable, a.RegionValue())
	}
	if l.r.io.Epoch == nil {
		return nil, &domain.ConfigurationError{Field: "epoch_field", Reason: "no epoch field reader configured"}
	}
	ref := scen.EpochRef(a.EpochField.Variable)
	raw, coords, err := l.r.io.Epoch.ReadField(ctx, ref)
	if err != nil {
		return nil, err
	}
	domain.CleanMissing(raw)
	data, coords, err := domain.RegionSubset(raw, coords, a.RegionValue())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	years := make([]int, data.Shape[1])
	for i := range years {
		years[i] = scen.FirstYear + i
	}
	return &loaded{data: data, years: years, coords: coords, units: a.EpochField.Units}, nil
}

var errNoOverlap = errors.New("scenario has no years in period")

// globalSeries is the area-weighted global-mean anomaly of the detection
// variable, per member, restricted to period.
func (l *loader) globalSeries(ctx context.Context, scen config.Scenario, period domain.Period) (domain.NamedSeries, error) {
	a := l.r.analysis
	globe, err := domain.LookupRegion("Globe")
	if err != nil {
		return domain.NamedSeries{}, err
	}
	anom, err := l.anomalies(ctx, scen, a.DetectionVariable, globe)
	if err != nil {
		return domain.NamedSeries{}, err
	}

	data, years, err := domain.SelectPeriod(anom.data, anom.years, period)
	if errors.Is(err, domain.ErrConfiguration) {
		return domain.NamedSeries{}, fmt.Errorf("%s: %w", scen.Label(), errNoOverlap)
	}
	if err != nil {
		return domain.NamedSeries{}, err
	}

	members, err := domain.WeightedAverage(data, anom.coords.Lats)
	if err != nil {
		return domain.NamedSeries{}, fmt.Errorf("%s global mean: %w", scen.Label(), err)
	}
	return domain.NamedSeries{Name: scen.Label(), Years: slices.Clone(years), Members: members}, nil
}
