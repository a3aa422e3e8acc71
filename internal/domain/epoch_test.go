package domain

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// yearRamp builds a [2, 10, 1, 1] array where member e, year y holds 10*e + y.
func yearRamp() *sparse.DenseArray {
	a := sparse.ZerosDense(2, 10, 1, 1)
	for e := 0; e < 2; e++ {
		for y := 0; y < 10; y++ {
			a.Elements[e*10+y] = float64(10*e + y)
		}
	}
	return a
}

func TestEpochMean_Window(t *testing.T) {
	got, err := EpochMean(yearRamp(), 5, 2)
	require.NoError(t, err)

	// Years 3..6 of both members: (3+4+5+6 + 13+14+15+16) / 8.
	assert.Equal(t, []int{1, 1}, got.Shape)
	assert.InDelta(t, 9.5, got.Elements[0], 1e-12)
}

func TestEpochMean_Isolation(t *testing.T) {
	base, err := EpochMean(yearRamp(), 5, 2)
	require.NoError(t, err)

	for _, y := range []int{0, 1, 2, 7, 8, 9} {
		for e := 0; e < 2; e++ {
			a := yearRamp()
			a.Elements[e*10+y] = 1e6
			got, err := EpochMean(a, 5, 2)
			require.NoError(t, err)
			assert.Equal(t, base.Elements, got.Elements, "changed member %d year %d", e, y)
		}
	}
}

func TestEpochMean_IgnoresNaN(t *testing.T) {
	a := yearRamp()
	a.Elements[4] = math.NaN() // member 0, year 4

	got, err := EpochMean(a, 5, 2)
	require.NoError(t, err)
	assert.InDelta(t, (3+5+6+13+14+15+16)/7.0, got.Elements[0], 1e-12)
}

func TestEpochMean_AllMissingCell(t *testing.T) {
	a := sparse.ZerosDense(1, 4, 1, 2)
	for i := range a.Elements {
		a.Elements[i] = math.NaN()
	}
	a.Elements[1] = 2 // year 0, second cell

	got, err := EpochMean(a, 2, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Elements[0]))
	assert.InDelta(t, 2.0, got.Elements[1], 1e-12)
}

func TestEpochMean_Bounds(t *testing.T) {
	cases := []struct {
		name           string
		center, yrplus int
	}{
		{"window starts before series", 1, 2},
		{"window ends after series", 9, 2},
		{"zero half width", 5, 0},
		{"negative center", -1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EpochMean(yearRamp(), tc.center, tc.yrplus)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBounds)
		})
	}

	t.Run("window touching both ends is valid", func(t *testing.T) {
		_, err := EpochMean(yearRamp(), 5, 5)
		require.NoError(t, err)
	})
}

func TestEpochMemberMeans(t *testing.T) {
	got, err := EpochMemberMeans(yearRamp(), 5, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 1}, got.Shape)
	assert.InDelta(t, 4.5, got.Elements[0], 1e-12)
	assert.InDelta(t, 14.5, got.Elements[1], 1e-12)

	_, err = EpochMemberMeans(yearRamp(), 8, 3)
	assert.ErrorIs(t, err, ErrBounds)
}

func TestDifference(t *testing.T) {
	a := sparse.ZerosDense(2, 3)
	b := sparse.ZerosDense(2, 3)
	for i := range a.Elements {
		a.Elements[i] = float64(i) * 1.5
		b.Elements[i] = float64(i)
	}

	t.Run("shape preserved", func(t *testing.T) {
		d, err := Difference(a, b)
		require.NoError(t, err)
		assert.Equal(t, a.Shape, d.Shape)
		assert.InDelta(t, 2.5, d.Elements[5], 1e-12)
	})

	t.Run("self difference is zero", func(t *testing.T) {
		d, err := Difference(a, a)
		require.NoError(t, err)
		for _, v := range d.Elements {
			assert.Zero(t, v)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := Difference(a, sparse.ZerosDense(3, 2))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDataShape)
	})
}
