package domain

import (
	"strconv"

	"github.com/ctessum/sparse"
)

// Period names a fixed range of simulation years.
type Period string

const (
	AllYears          Period = "all"
	HistoricalForcing Period = "historicalforcing"
	FutureForcing     Period = "futureforcing"
	AllDetection      Period = "alldet"
)

var periodYears = map[Period][2]int{
	HistoricalForcing: {1929, 2014},
	FutureForcing:     {2015, 2100},
	AllDetection:      {1929, 2100},
}

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if _, ok := periodYears[p]; ok || p == AllYears {
		return p, nil
	}
	return "", configErr("period", s, "unknown period")
}

// SelectPeriod keeps the years of data ([ensemble, year, spatial...]) that
// fall inside the period. years labels axis 1.
func SelectPeriod(data *sparse.DenseArray, years []int, period Period) (*sparse.DenseArray, []int, error) {
	if err := requireRank(data, 2, "period input"); err != nil {
		return nil, nil, err
	}
	if len(years) != data.Shape[1] {
		return nil, nil, shapeErr("year labels do not match year axis", []int{data.Shape[1]}, []int{len(years)})
	}
	if period == AllYears {
		return data, years, nil
	}
	span, ok := periodYears[period]
	if !ok {
		return nil, nil, configErr("period", string(period), "unknown period")
	}
	return SelectYears(data, years, span[0], span[1])
}

// SelectYears keeps the years of data within [first, last].
func SelectYears(data *sparse.DenseArray, years []int, first, last int) (*sparse.DenseArray, []int, error) {
	lo, hi := -1, -1
	for i, y := range years {
		if y >= first && y <= last {
			if lo < 0 {
				lo = i
			}
			hi = i + 1
		}
	}
	if lo < 0 {
		return nil, nil, configErr("year range", strconv.Itoa(first)+"-"+strconv.Itoa(last), "no overlap with data")
	}
	kept := make([]int, hi-lo)
	copy(kept, years[lo:hi])
	return sliceAxis1(data, lo, hi), kept, nil
}
