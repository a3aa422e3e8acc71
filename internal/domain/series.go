package domain

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TimeSeries is one value per year over a contiguous, increasing year range.
type TimeSeries struct {
	Years  []int
	Values []float64
}

// NewTimeSeries builds a series whose years start at firstYear.
func NewTimeSeries(firstYear int, values []float64) TimeSeries {
	years := make([]int, len(values))
	for i := range years {
		years[i] = firstYear + i
	}
	return TimeSeries{Years: years, Values: values}
}

// Len returns the number of years in the series.
func (s TimeSeries) Len() int { return len(s.Values) }

// Validate checks that the series is non-empty and its years are contiguous.
func (s TimeSeries) Validate() error {
	if len(s.Values) == 0 {
		return shapeErr("empty time series", nil, nil)
	}
	if len(s.Years) != len(s.Values) {
		return shapeErr("years and values differ in length", []int{len(s.Values)}, []int{len(s.Years)})
	}
	for i := 1; i < len(s.Years); i++ {
		if s.Years[i] != s.Years[i-1]+1 {
			return shapeErr(fmt.Sprintf("years not contiguous at index %d (%d after %d)", i, s.Years[i], s.Years[i-1]), nil, nil)
		}
	}
	return nil
}

// IndexOfYear returns the position of year in the series.
func (s TimeSeries) IndexOfYear(year int) (int, error) {
	if len(s.Years) == 0 {
		return 0, shapeErr("empty time series", nil, nil)
	}
	i := year - s.Years[0]
	if i < 0 || i >= len(s.Years) || s.Years[i] != year {
		return 0, configErr("year", strconv.Itoa(year),
			fmt.Sprintf("outside series %d-%d", s.Years[0], s.Years[len(s.Years)-1]))
	}
	return i, nil
}

// NamedSeries holds per-member global-mean curves for one scenario. It is the
// persisted time-series artifact.
type NamedSeries struct {
	Name    string
	Years   []int
	Members [][]float64 // [member][year]
}

// Validate checks every member has one value per year.
func (n NamedSeries) Validate() error {
	if len(n.Members) == 0 {
		return shapeErr("series has no members", nil, nil)
	}
	for i, m := range n.Members {
		if len(m) != len(n.Years) {
			return shapeErr(fmt.Sprintf("member %d length", i), []int{len(n.Years)}, []int{len(m)})
		}
	}
	return nil
}

// EnsembleMean collapses members into one series, ignoring NaN.
func (n NamedSeries) EnsembleMean() TimeSeries {
	summary := EnsembleStats(n.Members)
	years := make([]int, len(n.Years))
	copy(years, n.Years)
	return TimeSeries{Years: years, Values: summary.Mean}
}

// EnsembleSummary is the per-year spread of an ensemble.
type EnsembleSummary struct {
	Mean []float64
	Min  []float64
	Max  []float64
}

// EnsembleStats reduces [member][year] curves to per-year mean, min and max.
// Years where every member is NaN reduce to NaN.
func EnsembleStats(members [][]float64) EnsembleSummary {
	if len(members) == 0 {
		return EnsembleSummary{}
	}
	n := len(members[0])
	out := EnsembleSummary{
		Mean: make([]float64, n),
		Min:  make([]float64, n),
		Max:  make([]float64, n),
	}
	vals := make([]float64, 0, len(members))
	for y := 0; y < n; y++ {
		vals = vals[:0]
		for _, m := range members {
			if y < len(m) && !math.IsNaN(m[y]) {
				vals = append(vals, m[y])
			}
		}
		if len(vals) == 0 {
			out.Mean[y], out.Min[y], out.Max[y] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		out.Mean[y] = stat.Mean(vals, nil)
		out.Min[y] = floats.Min(vals)
		out.Max[y] = floats.Max(vals)
	}
	return out
}
