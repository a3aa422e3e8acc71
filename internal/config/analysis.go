package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/climate-gwl/internal/domain"
	"gopkg.in/yaml.v3"
)

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	First int `yaml:"first"`
	Last  int `yaml:"last"`
}

// Scenario describes one ensemble experiment on disk.
type Scenario struct {
	Name      string `yaml:"name"`
	Dataset   string `yaml:"dataset"`
	Scenario  string `yaml:"scenario"`
	Members   int    `yaml:"members"`
	FirstYear int    `yaml:"first_year"`
	LastYear  int    `yaml:"last_year"`
	PivotYear int    `yaml:"pivot_year,omitempty"`
	// Model names the scenario in precomputed epoch field files when it
	// differs from Dataset.
	Model string `yaml:"model,omitempty"`
}

// Ref returns the dataset reference for one variable of the scenario.
func (s Scenario) Ref(variable string, monthly bool) domain.DatasetRef {
	return domain.DatasetRef{
		Dataset:   s.Dataset,
		Scenario:  s.Scenario,
		Variable:  variable,
		Members:   s.Members,
		FirstYear: s.FirstYear,
		LastYear:  s.LastYear,
		Monthly:   monthly,
	}
}

// EpochRef points at the scenario's precomputed epoch field. Those files are
// already reduced to one record per year.
func (s Scenario) EpochRef(variable string) domain.DatasetRef {
	ref := s.Ref(variable, false)
	if s.Model != "" {
		ref.Dataset = s.Model
	}
	return ref
}

// Label is the name used for output files and log lines.
func (s Scenario) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Scenario
}

// TimeSeriesStage is a regional area-weighted mean plotted for a list of
// scenarios. Variable and Region default to the analysis settings.
type TimeSeriesStage struct {
	Variable  string     `yaml:"variable"`
	Region    string     `yaml:"region"`
	Raw       bool       `yaml:"raw"` // skip the baseline anomaly
	Scenarios []Scenario `yaml:"scenarios"`

	region domain.Region
}

// RegionValue returns the parsed region. Valid after Validate.
func (t *TimeSeriesStage) RegionValue() domain.Region { return t.region }

// EpochField replaces the member files of the analysis variable with one
// precomputed [ensemble, year, lat, lon] file per scenario, such as heat
// extreme counts. Pattern is relative to the data directory and may use
// {season}, {region}, {source} (the analysis variable), {dataset} and
// {scenario}.
type EpochField struct {
	Pattern  string `yaml:"pattern"`
	Variable string `yaml:"variable"`
	Units    string `yaml:"units"`
}

// Analysis is the definition of one warming-level comparison.
type Analysis struct {
	Variable            string     `yaml:"variable"`
	DetectionVariable   string     `yaml:"detection_variable"`
	Season              string     `yaml:"season"`
	Period              string     `yaml:"period"`
	Region              string     `yaml:"region"`
	Monthly             bool       `yaml:"monthly"`
	WarmingLevel        float64    `yaml:"warming_level"`
	YrPlus              int        `yaml:"yrplus"`
	Alpha               float64    `yaml:"alpha"`
	AttainmentTolerance float64    `yaml:"attainment_tolerance"`
	Baseline            YearRange  `yaml:"baseline"`
	Historical          Scenario   `yaml:"historical"`
	Reference           Scenario   `yaml:"reference"`
	Overshoot           []Scenario `yaml:"overshoot"`

	TimeSeries *TimeSeriesStage `yaml:"timeseries"`
	EpochField *EpochField      `yaml:"epoch_field"`

	season domain.Season
	period domain.Period
	region domain.Region
}

// LoadAnalysis reads and validates an analysis file.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis file: %w", err)
	}
	return ParseAnalysis(data)
}

// ParseAnalysis decodes YAML, applies defaults, and validates the result.
func ParseAnalysis(data []byte) (*Analysis, error) {
	a := &Analysis{
		DetectionVariable:   "T2M",
		Season:              string(domain.Annual),
		Period:              string(domain.AllYears),
		Region:              "Globe",
		YrPlus:              3,
		Alpha:               0.05,
		AttainmentTolerance: 0.1,
		Baseline:            YearRange{First: 1921, Last: 1950},
	}
	if err := yaml.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode analysis file: %w", err)
	}
	if a.Historical.Name == "" {
		a.Historical.Name = "historical"
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks selectors and numeric settings. Errors match
// domain.ErrConfiguration.
func (a *Analysis) Validate() error {
	if a.Variable == "" {
		return &domain.ConfigurationError{Field: "variable", Reason: "is required"}
	}
	if a.DetectionVariable == "" {
		return &domain.ConfigurationError{Field: "detection_variable", Reason: "is required"}
	}

	season, err := domain.ParseSeason(a.Season)
	if err != nil {
		return err
	}
	if season == domain.AllMonths {
		return &domain.ConfigurationError{Field: "season", Value: a.Season, Reason: "epochs need yearly data"}
	}
	if !a.Monthly && season != domain.Annual {
		return &domain.ConfigurationError{Field: "season", Value: a.Season, Reason: "needs monthly input"}
	}
	period, err := domain.ParsePeriod(a.Period)
	if err != nil {
		return err
	}
	region, err := domain.LookupRegion(a.Region)
	if err != nil {
		return err
	}

	switch {
	case a.YrPlus <= 0:
		return &domain.ConfigurationError{Field: "yrplus", Value: fmt.Sprint(a.YrPlus), Reason: "must be positive"}
	case !(a.Alpha > 0 && a.Alpha < 1):
		return &domain.ConfigurationError{Field: "alpha", Value: fmt.Sprint(a.Alpha), Reason: "must be in (0, 1)"}
	case a.AttainmentTolerance < 0:
		return &domain.ConfigurationError{Field: "attainment_tolerance", Value: fmt.Sprint(a.AttainmentTolerance), Reason: "must not be negative"}
	case a.Baseline.Last < a.Baseline.First:
		return &domain.ConfigurationError{Field: "baseline", Value: fmt.Sprintf("%d-%d", a.Baseline.First, a.Baseline.Last), Reason: "last year before first year"}
	}

	if err := a.validateScenarios(season); err != nil {
		return err
	}
	if err := a.validateTimeSeries(); err != nil {
		return err
	}
	if err := a.validateEpochField(); err != nil {
		return err
	}

	a.season = season
	a.period = period
	a.region = region
	return nil
}

func (a *Analysis) validateScenarios(season domain.Season) error {
	if err := a.Historical.Ref(a.Variable, a.Monthly).Validate(); err != nil {
		return fmt.Errorf("historical: %w", err)
	}
	if a.Baseline.First < a.Historical.FirstYear || a.Baseline.Last > a.Historical.LastYear {
		return &domain.ConfigurationError{
			Field:  "baseline",
			Value:  fmt.Sprintf("%d-%d", a.Baseline.First, a.Baseline.Last),
			Reason: "outside historical years",
		}
	}
	// A time-series-only analysis may leave out the epoch scenarios.
	if a.TimeSeries != nil && !a.HasEpochs() && len(a.Overshoot) == 0 {
		return nil
	}

	if err := a.Reference.Ref(a.Variable, a.Monthly).Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if len(a.Overshoot) == 0 {
		return &domain.ConfigurationError{Field: "overshoot", Reason: "at least one scenario is required"}
	}

	if a.Historical.Label() == a.Reference.Label() {
		return &domain.ConfigurationError{Field: "reference.name", Value: a.Reference.Label(), Reason: "duplicate scenario name"}
	}
	seen := map[string]bool{a.Historical.Label(): true, a.Reference.Label(): true}
	for i, s := range a.Overshoot {
		if err := s.Ref(a.Variable, a.Monthly).Validate(); err != nil {
			return fmt.Errorf("overshoot[%d]: %w", i, err)
		}
		// Seasonal reduction can drop leading years, so the series the
		// pivot indexes starts at first.
		first := s.FirstYear + season.YearOffset()
		if s.PivotYear <= first || s.PivotYear > s.LastYear {
			return &domain.ConfigurationError{
				Field:  fmt.Sprintf("overshoot[%d].pivot_year", i),
				Value:  fmt.Sprint(s.PivotYear),
				Reason: fmt.Sprintf("must be after %d and no later than %d", first, s.LastYear),
			}
		}
		if seen[s.Label()] {
			return &domain.ConfigurationError{Field: fmt.Sprintf("overshoot[%d].name", i), Value: s.Label(), Reason: "duplicate scenario name"}
		}
		seen[s.Label()] = true
	}
	return nil
}

func (a *Analysis) validateTimeSeries() error {
	t := a.TimeSeries
	if t == nil {
		return nil
	}
	if t.Variable == "" {
		t.Variable = a.Variable
	}
	if t.Region == "" {
		t.Region = a.Region
	}
	region, err := domain.LookupRegion(t.Region)
	if err != nil {
		return fmt.Errorf("timeseries: %w", err)
	}
	if len(t.Scenarios) == 0 {
		return &domain.ConfigurationError{Field: "timeseries.scenarios", Reason: "at least one scenario is required"}
	}
	seen := map[string]bool{}
	for i, s := range t.Scenarios {
		if err := s.Ref(t.Variable, a.Monthly).Validate(); err != nil {
			return fmt.Errorf("timeseries.scenarios[%d]: %w", i, err)
		}
		if seen[s.Label()] {
			return &domain.ConfigurationError{Field: fmt.Sprintf("timeseries.scenarios[%d].name", i), Value: s.Label(), Reason: "duplicate scenario name"}
		}
		seen[s.Label()] = true
	}
	t.region = region
	return nil
}

func (a *Analysis) validateEpochField() error {
	f := a.EpochField
	if f == nil {
		return nil
	}
	switch {
	case f.Pattern == "":
		return &domain.ConfigurationError{Field: "epoch_field.pattern", Reason: "is required"}
	case f.Variable == "":
		return &domain.ConfigurationError{Field: "epoch_field.variable", Reason: "is required"}
	case !strings.Contains(f.Pattern, "{dataset}") && !strings.Contains(f.Pattern, "{scenario}"):
		return &domain.ConfigurationError{Field: "epoch_field.pattern", Value: f.Pattern, Reason: "must contain {dataset} or {scenario}"}
	}
	return nil
}

// HasEpochs reports whether reference and overshoot scenarios are defined.
func (a *Analysis) HasEpochs() bool { return a.Reference.Dataset != "" }

// EpochFieldPattern expands the analysis-wide placeholders of the epoch
// field pattern, leaving {dataset} and {scenario} for the reader.
func (a *Analysis) EpochFieldPattern() string {
	if a.EpochField == nil {
		return ""
	}
	return strings.NewReplacer(
		"{season}", a.Season,
		"{region}", a.Region,
		"{source}", a.Variable,
	).Replace(a.EpochField.Pattern)
}

// SeasonValue returns the parsed season. Valid after Validate.
func (a *Analysis) SeasonValue() domain.Season { return a.season }

// PeriodValue returns the parsed GMST period. Valid after Validate.
func (a *Analysis) PeriodValue() domain.Period { return a.period }

// RegionValue returns the parsed region. Valid after Validate.
func (a *Analysis) RegionValue() domain.Region { return a.region }

// Scenarios returns historical, reference, then overshoot scenarios. The
// reference is left out when the analysis defines no epochs.
func (a *Analysis) Scenarios() []Scenario {
	out := make([]Scenario, 0, 2+len(a.Overshoot))
	out = append(out, a.Historical)
	if a.HasEpochs() {
		out = append(out, a.Reference)
	}
	return append(out, a.Overshoot...)
}

// errNoAnalysis is returned by commands that need an analysis file but got
// an empty path.
var errNoAnalysis = errors.New("GWL_ANALYSIS_FILE is required")

// RequireAnalysis loads the analysis file named by the config.
func (c *Config) RequireAnalysis() (*Analysis, error) {
	if c.AnalysisFile == "" {
		return nil, errNoAnalysis
	}
	return LoadAnalysis(c.AnalysisFile)
}
