package domain

import (
	"math"

	"github.com/ctessum/sparse"
)

// Fill values written by the model post-processing.
const (
	missingLow  = -999
	missingHigh = 1e20
)

// CleanMissing replaces fill values in place with NaN.
func CleanMissing(a *sparse.DenseArray) {
	for i, v := range a.Elements {
		if v <= missingLow || v >= missingHigh {
			a.Elements[i] = math.NaN()
		}
	}
}

// ConvertUnits converts raw model units in place to analysis units and
// returns the resulting unit label. Unknown variables are left unchanged.
func ConvertUnits(variable string, a *sparse.DenseArray) string {
	switch variable {
	case "T2M", "SST", "TMAX", "TMIN":
		for i := range a.Elements {
			a.Elements[i] -= 273.15
		}
		return "degC"
	case "PRECL", "PRECC", "PRECT", "WA", "EVAP", "SNOWRATE":
		for i := range a.Elements {
			a.Elements[i] *= 86400
		}
		return "mm/day"
	case "SNOW":
		for i := range a.Elements {
			a.Elements[i] /= 1000
		}
		return "m"
	}
	return ""
}
