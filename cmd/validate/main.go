// Command validate checks the artifacts of a gmst + epochs run for internal
// consistency: every series file loads with a contiguous year axis and a
// near-zero baseline, crossings re-located from the saved series match the
// crossing_year recorded in the epoch files, each difference equals its epoch minus the reference epoch,
// and hatch masks hold only 1 or NaN.
//
// Usage:
//
//	go run ./cmd/validate -analysis analysis.yaml -output-dir output
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/climate-gwl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-gwl/internal/analysis"
	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/domain"
	"gonum.org/v1/gonum/floats"
)

const tolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	analysisPath := flag.String("analysis", "analysis.yaml", "analysis definition used for the run")
	outputDir := flag.String("output-dir", "output", "directory holding the run's NetCDF artifacts")
	flag.Parse()

	if code := run(*analysisPath, *outputDir); code != 0 {
		os.Exit(code)
	}
}

func run(analysisPath, outputDir string) int {
	a, err := config.LoadAnalysis(analysisPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== GWL Output Validation ===")
	fmt.Println()

	series := map[string]domain.NamedSeries{}
	phases := []*phase{validateSeries(a, outputDir, series)}
	if a.HasEpochs() {
		phases = append(phases,
			validateCrossings(a, outputDir, series),
			validateDifferences(a, outputDir),
			validateHatches(a, outputDir),
		)
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println()
	fmt.Println("All checks passed.")
	return 0
}

func validateSeries(a *config.Analysis, dir string, out map[string]domain.NamedSeries) *phase {
	p := &phase{name: "Series files"}
	for _, scen := range a.Scenarios() {
		path := filepath.Join(dir, analysis.SeriesFile(a.DetectionVariable, scen.Label()))
		s, err := netcdf.LoadSeries(path)
		if err != nil {
			p.errorf("%s: %v", scen.Label(), err)
			continue
		}
		if err := s.Validate(); err != nil {
			p.errorf("%s: %v", scen.Label(), err)
			continue
		}
		if err := s.EnsembleMean().Validate(); err != nil {
			p.errorf("%s: %v", scen.Label(), err)
			continue
		}
		if len(s.Members) != scen.Members {
			p.errorf("%s: %d members, want %d", scen.Label(), len(s.Members), scen.Members)
		}
		out[scen.Label()] = s
	}

	// Anomalies are relative to the historical baseline, so its mean there
	// must vanish.
	if hist, ok := out[a.Historical.Label()]; ok && a.PeriodValue() == domain.AllYears {
		mean := hist.EnsembleMean()
		var base []float64
		for i, y := range mean.Years {
			if y >= a.Baseline.First && y <= a.Baseline.Last && !math.IsNaN(mean.Values[i]) {
				base = append(base, mean.Values[i])
			}
		}
		if len(base) == 0 {
			p.errorf("historical: no baseline years in series")
		} else if m := floats.Sum(base) / float64(len(base)); math.Abs(m) > 1e-3 {
			p.errorf("historical: baseline mean anomaly %.4g, want 0", m)
		}
	}
	return p
}

func validateCrossings(a *config.Analysis, dir string, series map[string]domain.NamedSeries) *phase {
	p := &phase{name: "Crossings vs epoch files"}
	ref, ok := series[a.Reference.Label()]
	if !ok {
		p.errorf("reference series missing")
		return p
	}
	if found, err := analysis.Locate(ref, a.WarmingLevel, 0); err != nil {
		p.errorf("%s: %v", ref.Name, err)
	} else {
		checkCrossingYear(p, a, filepath.Join(dir, analysis.FieldFile(a, a.Reference.Label(), "epoch")), found[0].Year)
	}

	for _, scen := range a.Overshoot {
		s, ok := series[scen.Label()]
		if !ok {
			p.errorf("%s: series missing", scen.Label())
			continue
		}
		found, err := analysis.Locate(s, a.WarmingLevel, scen.PivotYear)
		if err != nil {
			p.errorf("%s: %v", scen.Label(), err)
			continue
		}
		second := 0
		for _, c := range found {
			if c.Year > scen.PivotYear && c.Phase == "first" {
				p.errorf("%s: first crossing %d after pivot %d", scen.Label(), c.Year, scen.PivotYear)
			}
			if c.Year < scen.PivotYear && c.Phase == "second" {
				p.errorf("%s: second crossing %d before pivot %d", scen.Label(), c.Year, scen.PivotYear)
			}
			if c.Phase == "second" {
				second = c.Year
			}
		}
		for _, suffix := range []string{"epoch", "diff", "hatch"} {
			checkCrossingYear(p, a, filepath.Join(dir, analysis.FieldFile(a, scen.Label(), suffix)), second)
		}
	}
	return p
}

func validateDifferences(a *config.Analysis, dir string) *phase {
	p := &phase{name: "Difference = epoch - reference"}
	ref, err := netcdf.LoadField(filepath.Join(dir, analysis.FieldFile(a, a.Reference.Label(), "epoch")), analysis.FieldName(a))
	if err != nil {
		p.errorf("reference epoch: %v", err)
		return p
	}
	for _, scen := range a.Overshoot {
		epoch, err := netcdf.LoadField(filepath.Join(dir, analysis.FieldFile(a, scen.Label(), "epoch")), analysis.FieldName(a))
		if err != nil {
			p.errorf("%s epoch: %v", scen.Label(), err)
			continue
		}
		diff, err := netcdf.LoadField(filepath.Join(dir, analysis.FieldFile(a, scen.Label(), "diff")), analysis.FieldName(a))
		if err != nil {
			p.errorf("%s diff: %v", scen.Label(), err)
			continue
		}
		if !slices.Equal(epoch.Data.Shape, ref.Data.Shape) || !slices.Equal(diff.Data.Shape, ref.Data.Shape) {
			p.errorf("%s: grids differ (%v, %v, %v)", scen.Label(), ref.Data.Shape, epoch.Data.Shape, diff.Data.Shape)
			continue
		}
		for i, d := range diff.Data.Elements {
			want := epoch.Data.Elements[i] - ref.Data.Elements[i]
			if !closeEnough(d, want) {
				p.errorf("%s: point %d diff %g, want %g", scen.Label(), i, d, want)
			}
		}
	}
	return p
}

func validateHatches(a *config.Analysis, dir string) *phase {
	p := &phase{name: "Hatch masks"}
	for _, scen := range a.Overshoot {
		h, err := netcdf.LoadField(filepath.Join(dir, analysis.FieldFile(a, scen.Label(), "hatch")), analysis.FieldName(a))
		if err != nil {
			p.errorf("%s: %v", scen.Label(), err)
			continue
		}
		n := 0
		for i, v := range h.Data.Elements {
			switch {
			case math.IsNaN(v):
			case v == 1:
				n++
			default:
				p.errorf("%s: point %d has %g, want 1 or NaN", scen.Label(), i, v)
			}
		}
		fmt.Printf("  %s: %d/%d significant points\n", scen.Label(), n, len(h.Data.Elements))
	}
	return p
}

// checkCrossingYear compares the crossing_year recorded in an epoch artifact
// with the year re-located from the saved series.
func checkCrossingYear(p *phase, a *config.Analysis, path string, want int) {
	f, err := netcdf.LoadField(path, analysis.FieldName(a))
	if err != nil {
		p.errorf("%v", err)
		return
	}
	if got := f.Attrs["crossing_year"]; got != strconv.Itoa(want) {
		p.errorf("%s: crossing_year %q, series crosses in %d", filepath.Base(path), got, want)
	}
}

func closeEnough(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= tolerance
}
