package domain

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samples builds an [ensemble, points] array from per-point member values.
func samples(points ...[]float64) *sparse.DenseArray {
	nEns := len(points[0])
	a := sparse.ZerosDense(nEns, len(points))
	for c, vals := range points {
		for e, v := range vals {
			a.Elements[e*len(points)+c] = v
		}
	}
	return a
}

func TestTTestPValue(t *testing.T) {
	t.Run("matches reference value", func(t *testing.T) {
		// t = 2 with 8 degrees of freedom; scipy.stats.ttest_ind gives p = 0.0805.
		p := tTestPValue([]float64{1, 2, 3, 4, 5}, []float64{3, 4, 5, 6, 7})
		assert.InDelta(t, 0.08052, p, 1e-4)
	})

	t.Run("identical samples", func(t *testing.T) {
		p := tTestPValue([]float64{2, 2, 2}, []float64{2, 2, 2})
		assert.Equal(t, 1.0, p)
	})

	t.Run("constant but different samples", func(t *testing.T) {
		p := tTestPValue([]float64{1, 1, 1}, []float64{2, 2})
		assert.Equal(t, 0.0, p)
	})

	t.Run("too few values", func(t *testing.T) {
		p := tTestPValue([]float64{1}, []float64{2, 3, 4})
		assert.Equal(t, 1.0, p)
	})
}

func TestFDRReject(t *testing.T) {
	// Benjamini–Hochberg with m=5, alpha=0.05: thresholds 0.01..0.05.
	pvals := []float64{0.04, 0.001, 0.5, 0.011, 0.03}
	got := fdrReject(pvals, 0.05)
	// Sorted: 0.001 (<=0.01), 0.011 (<=0.02), 0.03 (<=0.03), 0.04 (<=0.04), 0.5 (>0.05).
	assert.Equal(t, []bool{true, true, false, true, true}, got)

	none := fdrReject([]float64{0.2, 0.6, 0.9}, 0.05)
	assert.Equal(t, []bool{false, false, false}, none)
}

func TestSignificance(t *testing.T) {
	x := samples(
		[]float64{1.0, 1.1, 0.9, 1.05, 0.95, 1.02},
		[]float64{0.2, 0.5, 0.1, 0.3, 0.4, 0.6},
	)
	y := samples(
		[]float64{3.0, 3.1, 2.9, 3.05, 2.95, 3.02},
		[]float64{0.3, 0.1, 0.5, 0.2, 0.6, 0.4},
	)

	mask, err := Significance(x, y, 0.05)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, mask.Shape)
	assert.Equal(t, []bool{true, false}, mask.Significant)
	assert.Equal(t, 1, mask.Count())
	assert.Less(t, mask.PValues[0], 1e-6)
	assert.Greater(t, mask.PValues[1], 0.5)

	hatch := mask.Hatch()
	assert.Equal(t, 1.0, hatch.Elements[0])
	assert.True(t, math.IsNaN(hatch.Elements[1]))
}

func TestSignificance_UnequalEnsembles(t *testing.T) {
	x := sparse.ZerosDense(30, 3, 2)
	y := sparse.ZerosDense(9, 3, 2)
	for i := range x.Elements {
		x.Elements[i] = float64(i % 7)
	}
	for i := range y.Elements {
		y.Elements[i] = float64(i%5) + 100
	}

	mask, err := Significance(x, y, 0.05)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, mask.Shape)
	assert.Equal(t, 6, mask.Count())
}

func TestSignificance_Errors(t *testing.T) {
	x := sparse.ZerosDense(4, 2, 2)

	_, err := Significance(x, sparse.ZerosDense(4, 2, 3), 0.05)
	assert.ErrorIs(t, err, ErrDataShape)

	for _, alpha := range []float64{0, 1, -0.1, math.NaN()} {
		_, err = Significance(x, x, alpha)
		assert.ErrorIs(t, err, ErrConfiguration, "alpha %v", alpha)
	}
}
