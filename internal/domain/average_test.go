package domain

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedAverage(t *testing.T) {
	// One member, one year, two latitudes (0° and 60°), one longitude.
	a := sparse.ZerosDense(1, 1, 2, 1)
	a.Elements[0] = 1
	a.Elements[1] = 4

	got, err := WeightedAverage(a, []float64{0, 60})
	require.NoError(t, err)

	// Weights 1 and 0.5: (1*1 + 0.5*4) / 1.5 = 2.
	assert.InDelta(t, 2.0, got[0][0], 1e-12)
}

func TestWeightedAverage_NaNAndEmpty(t *testing.T) {
	a := sparse.ZerosDense(1, 2, 2, 1)
	a.Elements[0] = math.NaN()
	a.Elements[1] = 4
	a.Elements[2] = math.NaN()
	a.Elements[3] = math.NaN()

	got, err := WeightedAverage(a, []float64{0, 60})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got[0][0], 1e-12)
	assert.True(t, math.IsNaN(got[0][1]))
}

func TestWeightedAverage_ShapeErrors(t *testing.T) {
	_, err := WeightedAverage(sparse.ZerosDense(1, 2, 3), []float64{0})
	assert.ErrorIs(t, err, ErrDataShape)

	_, err = WeightedAverage(sparse.ZerosDense(1, 1, 2, 2), []float64{0})
	assert.ErrorIs(t, err, ErrDataShape)
}

func TestClimatologyAndAnomalies(t *testing.T) {
	// Two members, four years (1921-1924), one cell.
	hist := sparse.ZerosDense(2, 4, 1, 1)
	copy(hist.Elements, []float64{1, 2, 3, 100, 3, 4, 5, 100})
	years := []int{1921, 1922, 1923, 1924}

	clim, err := Climatology(hist, years, 1921, 1923)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, clim.Shape)
	assert.InDelta(t, 3.0, clim.Elements[0], 1e-12)

	anom, err := Anomalies(hist, clim)
	require.NoError(t, err)
	want := []float64{-2, -1, 0, 97, 0, 1, 2, 97}
	if diff := cmp.Diff(want, anom.Elements, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("anomalies mismatch (-want +got):\n%s", diff)
	}

	_, err = Climatology(hist, years, 1800, 1850)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Anomalies(hist, sparse.ZerosDense(2, 1))
	assert.ErrorIs(t, err, ErrDataShape)
}

func TestEnsembleStats(t *testing.T) {
	got := EnsembleStats([][]float64{
		{1, 5, math.NaN()},
		{3, 1, math.NaN()},
		{2, math.NaN(), math.NaN()},
	})

	assert.Equal(t, []float64{2, 3}, got.Mean[:2])
	assert.Equal(t, []float64{1, 1}, got.Min[:2])
	assert.Equal(t, []float64{3, 5}, got.Max[:2])
	assert.True(t, math.IsNaN(got.Mean[2]))
}

func TestNamedSeries(t *testing.T) {
	s := NamedSeries{
		Name:    "SSP585",
		Years:   []int{2015, 2016},
		Members: [][]float64{{1, 2}, {3, 4}},
	}
	require.NoError(t, s.Validate())

	mean := s.EnsembleMean()
	assert.Equal(t, []float64{2, 3}, mean.Values)
	assert.Equal(t, []int{2015, 2016}, mean.Years)

	s.Members[1] = []float64{1}
	assert.ErrorIs(t, s.Validate(), ErrDataShape)
}
