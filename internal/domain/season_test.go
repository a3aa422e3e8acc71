package domain

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthRamp builds [1, years*12, 1, 1] where month m of year y holds y*100 + m+1.
func monthRamp(years int) *sparse.DenseArray {
	a := sparse.ZerosDense(1, years*12, 1, 1)
	for y := 0; y < years; y++ {
		for m := 0; m < 12; m++ {
			a.Elements[y*12+m] = float64(y*100 + m + 1)
		}
	}
	return a
}

func TestParseSeason(t *testing.T) {
	for _, s := range []string{"annual", "DJF", "JJA", "OND", "May", "December", "none"} {
		got, err := ParseSeason(s)
		require.NoError(t, err, s)
		assert.Equal(t, Season(s), got)
	}

	_, err := ParseSeason("summer")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSeasonalMean(t *testing.T) {
	cases := []struct {
		season Season
		year0  float64
		year1  float64
	}{
		{Annual, 6.5, 106.5},
		{JJA, 7, 107},
		{MAM, 4, 104},
		{SON, 10, 110},
		{OND, 11, 111},
		{FM, 2.5, 102.5},
		{January, 1, 101},
		{December, 12, 112},
	}
	for _, tc := range cases {
		t.Run(string(tc.season), func(t *testing.T) {
			got, err := SeasonalMean(monthRamp(2), tc.season)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 1, 1}, got.Shape)
			assert.InDelta(t, tc.year0, got.Elements[0], 1e-12)
			assert.InDelta(t, tc.year1, got.Elements[1], 1e-12)
		})
	}
}

func TestSeasonalMean_DJF(t *testing.T) {
	got, err := SeasonalMean(monthRamp(3), DJF)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1, 1}, got.Shape)
	// Dec of year 0 (12) with Jan/Feb of year 1 (101, 102).
	assert.InDelta(t, (12+101+102)/3.0, got.Elements[0], 1e-12)
	assert.InDelta(t, (112+201+202)/3.0, got.Elements[1], 1e-12)
	assert.Equal(t, 1, DJF.YearOffset())
	assert.Equal(t, 0, JJA.YearOffset())
}

func TestSeasonalMean_MissingMonths(t *testing.T) {
	a := monthRamp(1)
	a.Elements[5] = math.NaN() // June

	got, err := SeasonalMean(a, JJA)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, got.Elements[0], 1e-12)
}

func TestSeasonalMean_Errors(t *testing.T) {
	_, err := SeasonalMean(sparse.ZerosDense(1, 13, 1, 1), Annual)
	assert.ErrorIs(t, err, ErrDataShape)

	_, err = SeasonalMean(monthRamp(1), DJF)
	assert.ErrorIs(t, err, ErrDataShape)

	_, err = SeasonalMean(monthRamp(1), Season("winter"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSeasonalMean_AllMonthsPassThrough(t *testing.T) {
	a := monthRamp(2)
	got, err := SeasonalMean(a, AllMonths)
	require.NoError(t, err)
	assert.Same(t, a, got)
}
