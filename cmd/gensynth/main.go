// Command gensynth writes synthetic SPEAR-style member files for every
// scenario named in an analysis file, so the gmst, epochs, and timeseries
// stages can run without model output. Warming is linear in the reference
// scenario and peaks at the pivot year in overshoot scenarios. When the
// analysis names an epoch field, one ensemble file of exceedance-day counts
// is written per epoch scenario as well.
//
// Usage:
//
//	go run ./cmd/gensynth -analysis analysis.yaml -data-dir data
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/couchcryptid/climate-gwl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-gwl/internal/config"
	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/ctessum/sparse"
)

// Warming rates in degrees per year.
const (
	histRate      = 0.008
	scenarioRate  = 0.045
	drawdownRate  = 0.03
	memberSpread  = 0.15
	scenarioStart = 2015
)

type varDef struct {
	units string
	// base returns the raw-unit climatological value at a latitude and month
	// (month < 0 for annual files).
	base func(lat float64, month int) float64
	// scale converts a temperature anomaly to raw units.
	scale float64
}

var vars = map[string]varDef{
	"T2M": {units: "K", scale: 1, base: func(lat float64, month int) float64 {
		v := 288 - 30*math.Pow(math.Sin(lat*math.Pi/180), 2)
		if month >= 0 {
			v += 8 * math.Sin(lat*math.Pi/180) * math.Cos(2*math.Pi*float64(month-6)/12)
		}
		return v
	}},
	"PRECT": {units: "kg/m2/s", scale: 1e-6, base: func(lat float64, _ int) float64 {
		return 3e-5 * (1 + math.Cos(lat*math.Pi/90))
	}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	analysisPath := flag.String("analysis", "analysis.yaml", "analysis definition naming the scenarios to generate")
	dataDir := flag.String("data-dir", "data", "root directory for member files")
	nLat := flag.Int("nlat", 18, "number of latitude bands")
	nLon := flag.Int("nlon", 36, "number of longitudes")
	seed := flag.Uint64("seed", 1, "random seed for member noise")
	flag.Parse()

	a, err := config.LoadAnalysis(*analysisPath)
	if err != nil {
		return err
	}
	coords := grid(*nLat, *nLon)
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	variables := []string{a.DetectionVariable}
	if a.Variable != a.DetectionVariable {
		variables = append(variables, a.Variable)
	}

	type job struct {
		scen      config.Scenario
		variables []string
	}
	var jobs []job
	for _, scen := range a.Scenarios() {
		jobs = append(jobs, job{scen, variables})
	}
	if ts := a.TimeSeries; ts != nil {
		if !slices.Contains(variables, ts.Variable) {
			jobs = append(jobs, job{a.Historical, []string{ts.Variable}})
		}
		for _, scen := range ts.Scenarios {
			jobs = append(jobs, job{scen, []string{ts.Variable}})
		}
	}

	total := 0
	for _, j := range jobs {
		scen := j.scen
		curve := warming(scen, scen.Scenario == a.Historical.Scenario && scen.Dataset == a.Historical.Dataset)
		for _, v := range j.variables {
			def, ok := vars[v]
			if !ok {
				return fmt.Errorf("no synthetic recipe for variable %s", v)
			}
			ref := scen.Ref(v, a.Monthly)
			for m := 1; m <= ref.Members; m++ {
				offset := memberSpread * rng.NormFloat64()
				data, nTime := member(ref, coords, def, curve, offset, rng)
				path := netcdf.MemberPath(*dataDir, ref, m)
				if err := netcdf.WriteMember(path, v, nTime, coords, def.units, data); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				total++
			}
			log.Printf("%s: %d members of %s", scen.Label(), ref.Members, v)
		}
	}

	if a.EpochField != nil && a.HasEpochs() {
		w := netcdf.NewWriter(nil)
		for _, scen := range append([]config.Scenario{a.Reference}, a.Overshoot...) {
			ref := scen.EpochRef(a.EpochField.Variable)
			path := netcdf.EnsemblePath(*dataDir, a.EpochFieldPattern(), ref)
			err := w.WriteField(path, domain.NamedField{
				Name:   ref.Variable,
				Units:  a.EpochField.Units,
				Data:   counts(ref, coords, warming(scen, false), rng),
				Coords: coords,
			})
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			total++
			log.Printf("%s: epoch field %s", scen.Label(), path)
		}
	}
	log.Printf("total: %d files under %s", total, *dataDir)
	return nil
}

// counts returns [member, year, lat, lon] exceedance-day counts that grow
// with warming, capped to a 92-day season.
func counts(ref domain.DatasetRef, c domain.Coords, curve func(int) float64, rng *rand.Rand) *sparse.DenseArray {
	nYear, nLat, nLon := ref.Years(), len(c.Lats), len(c.Lons)
	out := sparse.ZerosDense(ref.Members, nYear, nLat, nLon)
	for m := 0; m < ref.Members; m++ {
		for y := 0; y < nYear; y++ {
			base := 9 + 12*curve(ref.FirstYear+y)
			for cell := 0; cell < nLat*nLon; cell++ {
				v := math.Round(base + 3*rng.NormFloat64())
				out.Elements[(m*nYear+y)*nLat*nLon+cell] = math.Max(0, math.Min(92, v))
			}
		}
	}
	return out
}

func grid(nLat, nLon int) domain.Coords {
	c := domain.Coords{Lats: make([]float64, nLat), Lons: make([]float64, nLon)}
	dLat, dLon := 180/float64(nLat), 360/float64(nLon)
	for i := range c.Lats {
		c.Lats[i] = -90 + dLat*(float64(i)+0.5)
	}
	for j := range c.Lons {
		c.Lons[j] = dLon * (float64(j) + 0.5)
	}
	return c
}

// warming returns the forced anomaly for a calendar year.
func warming(scen config.Scenario, historical bool) func(year int) float64 {
	if historical {
		return func(year int) float64 { return histRate * float64(year-scen.FirstYear) }
	}
	start := histRate * float64(scenarioStart-1921)
	rise := func(year int) float64 { return start + scenarioRate*float64(year-scenarioStart) }
	if scen.PivotYear == 0 {
		return rise
	}
	return func(year int) float64 {
		if year <= scen.PivotYear {
			return rise(year)
		}
		return rise(scen.PivotYear) - drawdownRate*float64(year-scen.PivotYear)
	}
}

func member(ref domain.DatasetRef, c domain.Coords, def varDef, curve func(int) float64, offset float64, rng *rand.Rand) ([]float64, int) {
	steps := 1
	if ref.Monthly {
		steps = 12
	}
	nTime := ref.Years() * steps
	cell := len(c.Lats) * len(c.Lons)
	data := make([]float64, nTime*cell)
	for t := 0; t < nTime; t++ {
		year := ref.FirstYear + t/steps
		month := -1
		if ref.Monthly {
			month = t % steps
		}
		anom := curve(year) + offset + 0.1*rng.NormFloat64()
		for i, lat := range c.Lats {
			// Polar amplification.
			amp := 1 + math.Abs(lat)/90
			for j := range c.Lons {
				data[t*cell+i*len(c.Lons)+j] = def.base(lat, month) + def.scale*amp*anom
			}
		}
	}
	return data, nTime
}
