package domain

import (
	"math"
	"slices"

	"github.com/ctessum/sparse"
)

// Season selects which months of each year are averaged.
type Season string

const (
	Annual    Season = "annual"
	DJF       Season = "DJF"
	MAM       Season = "MAM"
	JJA       Season = "JJA"
	SON       Season = "SON"
	JFM       Season = "JFM"
	FMA       Season = "FMA"
	FM        Season = "FM"
	AMJ       Season = "AMJ"
	JAS       Season = "JAS"
	OND       Season = "OND"
	January   Season = "January"
	February  Season = "February"
	March     Season = "March"
	April     Season = "April"
	May       Season = "May"
	June      Season = "June"
	July      Season = "July"
	August    Season = "August"
	September Season = "September"
	October   Season = "October"
	November  Season = "November"
	December  Season = "December"
	AllMonths Season = "none"
)

// monthSpan is a 0-based, half-open month range within one calendar year.
type monthSpan struct{ start, end int }

var seasonMonths = map[Season]monthSpan{
	Annual:    {0, 12},
	MAM:       {2, 5},
	JJA:       {5, 8},
	SON:       {8, 11},
	JFM:       {0, 3},
	FMA:       {1, 4},
	FM:        {1, 3},
	AMJ:       {3, 6},
	JAS:       {6, 9},
	OND:       {9, 12},
	January:   {0, 1},
	February:  {1, 2},
	March:     {2, 3},
	April:     {3, 4},
	May:       {4, 5},
	June:      {5, 6},
	July:      {6, 7},
	August:    {7, 8},
	September: {8, 9},
	October:   {9, 10},
	November:  {10, 11},
	December:  {11, 12},
}

// ParseSeason validates a season name.
func ParseSeason(s string) (Season, error) {
	season := Season(s)
	if _, ok := seasonMonths[season]; ok || season == DJF || season == AllMonths {
		return season, nil
	}
	return "", configErr("season", s, "unknown season")
}

// YearOffset is how many leading years SeasonalMean drops. DJF loses the
// first year because its December belongs to the previous winter.
func (s Season) YearOffset() int {
	if s == DJF {
		return 1
	}
	return 0
}

// SeasonalMean reduces monthly data [ensemble, years*12, spatial...] to
// [ensemble, years, spatial...]. DJF yields years-1 winters, each averaging
// December of year i with January and February of year i+1. AllMonths
// returns the monthly data unchanged.
func SeasonalMean(monthly *sparse.DenseArray, season Season) (*sparse.DenseArray, error) {
	if err := requireRank(monthly, 2, "monthly input"); err != nil {
		return nil, err
	}
	if monthly.Shape[1]%12 != 0 {
		return nil, shapeErr("month axis is not a whole number of years", nil, monthly.Shape)
	}
	if season == AllMonths {
		return monthly, nil
	}

	var pick func(year int) []int
	years := monthly.Shape[1] / 12
	if season == DJF {
		years--
		if years < 1 {
			return nil, shapeErr("DJF needs at least two years", nil, monthly.Shape)
		}
		pick = func(y int) []int { return []int{y*12 + 11, (y+1)*12 + 0, (y+1)*12 + 1} }
	} else {
		span, ok := seasonMonths[season]
		if !ok {
			return nil, configErr("season", string(season), "unknown season")
		}
		pick = func(y int) []int {
			months := make([]int, 0, span.end-span.start)
			for m := span.start; m < span.end; m++ {
				months = append(months, y*12+m)
			}
			return months
		}
	}

	nEns := monthly.Shape[0]
	nMonths := monthly.Shape[1]
	rest := size(monthly.Shape[2:])
	shape := slices.Clone(monthly.Shape)
	shape[1] = years
	out := sparse.ZerosDense(shape...)

	count := make([]int, rest)
	for e := 0; e < nEns; e++ {
		for y := 0; y < years; y++ {
			dst := out.Elements[(e*years+y)*rest : (e*years+y+1)*rest]
			clear(count)
			for _, m := range pick(y) {
				src := monthly.Elements[(e*nMonths+m)*rest : (e*nMonths+m+1)*rest]
				for c, v := range src {
					if math.IsNaN(v) {
						continue
					}
					dst[c] += v
					count[c]++
				}
			}
			for c := range dst {
				if count[c] == 0 {
					dst[c] = math.NaN()
				} else {
					dst[c] /= float64(count[c])
				}
			}
		}
	}
	return out, nil
}
