package domain

import (
	"math"
	"strconv"
)

// Crossing is the year at which a series comes closest to a warming level.
type Crossing struct {
	Index    int
	Year     int
	Value    float64
	Distance float64 // |Value - level|; large values mean the level was not reached
}

// Crossings holds the rising and falling crossings of an overshoot scenario.
type Crossings struct {
	First  Crossing
	Second Crossing
}

// NearestIndex returns the index of the value closest to target. Ties go to
// the lowest index and NaN values never match.
func NearestIndex(values []float64, target float64) (int, error) {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		// Strict less-than keeps the first of equal distances.
		if d := math.Abs(v - target); d < bestDist || best < 0 {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, shapeErr("no finite values to search", nil, []int{len(values)})
	}
	return best, nil
}

// LocateLevel finds the single crossing of a monotonically warming series.
func LocateLevel(series TimeSeries, level float64) (Crossing, error) {
	if err := series.Validate(); err != nil {
		return Crossing{}, err
	}
	i, err := NearestIndex(series.Values, level)
	if err != nil {
		return Crossing{}, err
	}
	return newCrossing(series, i, level), nil
}

// PivotIndex maps a pivot year onto an index usable by DetectCrossings.
func PivotIndex(series TimeSeries, pivotYear int) (int, error) {
	i, err := series.IndexOfYear(pivotYear)
	if err != nil {
		return 0, configErr("pivot year", strconv.Itoa(pivotYear), err.Error())
	}
	return i, nil
}

// DetectCrossings searches series.Values[:pivot] for the first crossing and
// series.Values[pivot:] for the second. Both indices are in full-series
// coordinates.
func DetectCrossings(series TimeSeries, pivot int, level float64) (Crossings, error) {
	if err := series.Validate(); err != nil {
		return Crossings{}, err
	}
	n := series.Len()
	if pivot <= 0 || pivot >= n {
		return Crossings{}, &BoundsError{Start: pivot, End: pivot, Length: n}
	}

	early := series.Values[:pivot]
	late := series.Values[pivot:]

	first, err := NearestIndex(early, level)
	if err != nil {
		return Crossings{}, err
	}
	second, err := NearestIndex(late, level)
	if err != nil {
		return Crossings{}, err
	}
	second += len(early)

	return Crossings{
		First:  newCrossing(series, first, level),
		Second: newCrossing(series, second, level),
	}, nil
}

// AlignIndex converts an index into from into the index of the same year in
// to. Scenarios branching from history at different years have offset axes.
func AlignIndex(idx int, from, to TimeSeries) (int, error) {
	if idx < 0 || idx >= len(from.Years) {
		return 0, &BoundsError{Start: idx, End: idx + 1, Length: len(from.Years)}
	}
	return to.IndexOfYear(from.Years[idx])
}

func newCrossing(series TimeSeries, i int, level float64) Crossing {
	v := series.Values[i]
	return Crossing{
		Index:    i,
		Year:     series.Years[i],
		Value:    v,
		Distance: math.Abs(v - level),
	}
}
