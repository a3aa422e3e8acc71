package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var overshootValues = []float64{0, 1, 2, 3, 4, 5, 4, 3, 2, 1, 0}

func TestNearestIndex(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		i, err := NearestIndex([]float64{0.5, 1.0, 1.5, 2.0}, 1.5)
		require.NoError(t, err)
		assert.Equal(t, 2, i)
	})

	t.Run("closest approach when target above range", func(t *testing.T) {
		i, err := NearestIndex([]float64{0.1, 0.4, 0.9, 0.7}, 2.1)
		require.NoError(t, err)
		assert.Equal(t, 2, i)
	})

	t.Run("closest approach when target below range", func(t *testing.T) {
		i, err := NearestIndex([]float64{3, 2, 4}, -1)
		require.NoError(t, err)
		assert.Equal(t, 1, i)
	})

	t.Run("ties resolve to lowest index", func(t *testing.T) {
		i, err := NearestIndex([]float64{1, 3, 1, 3}, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, i)
	})

	t.Run("NaN never matches", func(t *testing.T) {
		i, err := NearestIndex([]float64{math.NaN(), 5, 2.2}, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, i)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NearestIndex(nil, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDataShape))
	})

	t.Run("all NaN", func(t *testing.T) {
		_, err := NearestIndex([]float64{math.NaN(), math.NaN()}, 1)
		assert.ErrorIs(t, err, ErrDataShape)
	})
}

func TestNearestIndex_GlobalMinimum(t *testing.T) {
	values := []float64{0.3, -1.2, 4.4, 2.05, 2.15, 9, 2.05, -3}
	for _, target := range []float64{-5, -1, 0, 1.9, 2.1, 2.2, 3, 7, 100} {
		got, err := NearestIndex(values, target)
		require.NoError(t, err)

		want := 0
		for i, v := range values {
			if math.Abs(v-target) < math.Abs(values[want]-target) {
				want = i
			}
		}
		assert.Equal(t, want, got, "target %v", target)
	}
}

func TestDetectCrossings_Overshoot(t *testing.T) {
	series := NewTimeSeries(2015, overshootValues)

	got, err := DetectCrossings(series, 5, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, got.First.Index)
	assert.Equal(t, 7, got.Second.Index)
	assert.Equal(t, 2018, got.First.Year)
	assert.Equal(t, 2022, got.Second.Year)
	assert.Zero(t, got.First.Distance)
	assert.Zero(t, got.Second.Distance)
}

func TestDetectCrossings_LevelNotAttained(t *testing.T) {
	series := NewTimeSeries(2015, overshootValues)

	got, err := DetectCrossings(series, 5, 8)
	require.NoError(t, err)

	// Closest approach on either side of the pivot is the peak region.
	assert.Equal(t, 4, got.First.Index)
	assert.Equal(t, 5, got.Second.Index)
	assert.InDelta(t, 3.0, got.Second.Distance, 1e-12)
}

func TestDetectCrossings_PivotOutOfRange(t *testing.T) {
	series := NewTimeSeries(2015, overshootValues)

	for _, pivot := range []int{-1, 0, len(overshootValues), 50} {
		_, err := DetectCrossings(series, pivot, 3)
		require.Error(t, err, "pivot %d", pivot)
		var be *BoundsError
		assert.True(t, errors.As(err, &be))
	}
}

func TestDetectCrossings_InvalidSeries(t *testing.T) {
	_, err := DetectCrossings(TimeSeries{Years: []int{2015, 2017}, Values: []float64{1, 2}}, 1, 1)
	assert.ErrorIs(t, err, ErrDataShape)
}

func TestPivotIndex(t *testing.T) {
	series := NewTimeSeries(2015, overshootValues)

	i, err := PivotIndex(series, 2020)
	require.NoError(t, err)
	assert.Equal(t, 5, i)

	_, err = PivotIndex(series, 1999)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLocateLevel(t *testing.T) {
	series := NewTimeSeries(2015, []float64{0.8, 1.1, 1.4, 1.9, 2.2, 2.6})

	c, err := LocateLevel(series, 2.1)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Index)
	assert.Equal(t, 2019, c.Year)
	assert.InDelta(t, 2.2, c.Value, 1e-12)
	assert.InDelta(t, 0.1, c.Distance, 1e-12)
}

func TestAlignIndex(t *testing.T) {
	future := NewTimeSeries(2015, make([]float64, 86))
	full := NewTimeSeries(1921, make([]float64, 180))

	i, err := AlignIndex(10, future, full)
	require.NoError(t, err)
	assert.Equal(t, 2025-1921, i)

	_, err = AlignIndex(100, future, full)
	assert.ErrorIs(t, err, ErrBounds)

	_, err = AlignIndex(10, full, future)
	assert.ErrorIs(t, err, ErrConfiguration)
}
