package domain

import (
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SignificanceMask is the per-point outcome of an FDR-corrected t-test.
type SignificanceMask struct {
	Shape       []int
	PValues     []float64
	Significant []bool
}

// Count returns the number of significant points.
func (m SignificanceMask) Count() int {
	n := 0
	for _, s := range m.Significant {
		if s {
			n++
		}
	}
	return n
}

// Hatch encodes the mask the way map overlays expect it: 1 where the
// difference is significant, NaN elsewhere.
func (m SignificanceMask) Hatch() *sparse.DenseArray {
	out := sparse.ZerosDense(m.Shape...)
	for i, s := range m.Significant {
		if s {
			out.Elements[i] = 1
		} else {
			out.Elements[i] = math.NaN()
		}
	}
	return out
}

// Significance compares two samples shaped [ensemble, spatial...] point by
// point with a pooled-variance two-sample t-test, then applies the
// Benjamini–Hochberg procedure at rate alpha across all points. The ensemble
// sizes may differ; the spatial shapes must not.
func Significance(x, y *sparse.DenseArray, alpha float64) (SignificanceMask, error) {
	if !(alpha > 0 && alpha < 1) {
		return SignificanceMask{}, configErr("alpha", strconv.FormatFloat(alpha, 'g', -1, 64), "must be in (0, 1)")
	}
	if err := requireRank(x, 2, "first sample"); err != nil {
		return SignificanceMask{}, err
	}
	if err := requireRank(y, 2, "second sample"); err != nil {
		return SignificanceMask{}, err
	}
	if !slices.Equal(x.Shape[1:], y.Shape[1:]) {
		return SignificanceMask{}, shapeErr("sample grids differ", x.Shape[1:], y.Shape[1:])
	}

	shape := slices.Clone(x.Shape[1:])
	points := size(shape)
	pvals := make([]float64, points)

	xs := make([]float64, 0, x.Shape[0])
	ys := make([]float64, 0, y.Shape[0])
	for c := 0; c < points; c++ {
		xs = column(xs[:0], x, c, points)
		ys = column(ys[:0], y, c, points)
		pvals[c] = tTestPValue(xs, ys)
	}

	return SignificanceMask{
		Shape:       shape,
		PValues:     pvals,
		Significant: fdrReject(pvals, alpha),
	}, nil
}

// column gathers the finite ensemble values at spatial point c.
func column(dst []float64, a *sparse.DenseArray, c, points int) []float64 {
	for e := 0; e < a.Shape[0]; e++ {
		if v := a.Elements[e*points+c]; !math.IsNaN(v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// tTestPValue is the two-sided p-value of Student's t-test with pooled
// variance. Fewer than two values in either sample yields 1.
func tTestPValue(xs, ys []float64) float64 {
	n1, n2 := float64(len(xs)), float64(len(ys))
	if n1 < 2 || n2 < 2 {
		return 1
	}
	m1, v1 := stat.MeanVariance(xs, nil)
	m2, v2 := stat.MeanVariance(ys, nil)
	dof := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / dof
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	if se == 0 {
		if m1 == m2 {
			return 1
		}
		return 0
	}
	t := math.Abs(m1-m2) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	return 2 * dist.Survival(t)
}

// fdrReject applies Benjamini–Hochberg at rate alpha.
func fdrReject(pvals []float64, alpha float64) []bool {
	m := len(pvals)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })

	cutoff := -1
	for rank, i := range order {
		if pvals[i] <= float64(rank+1)/float64(m)*alpha {
			cutoff = rank
		}
	}

	reject := make([]bool, m)
	for rank := 0; rank <= cutoff; rank++ {
		reject[order[rank]] = true
	}
	return reject
}
