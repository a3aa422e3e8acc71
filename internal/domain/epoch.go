package domain

import (
	"slices"

	"github.com/ctessum/sparse"
)

// Window is the half-open year range [center-yrplus, center+yrplus) of an
// epoch, checked against a series of the given length.
func Window(center, yrplus, length int) (lo, hi int, err error) {
	lo, hi = center-yrplus, center+yrplus
	if yrplus <= 0 || lo < 0 || hi > length {
		return 0, 0, &BoundsError{Start: lo, End: hi, Length: length}
	}
	return lo, hi, nil
}

// EpochMean averages data ([ensemble, year, spatial...]) over every member
// and the epoch window around center. The result has the spatial shape.
func EpochMean(data *sparse.DenseArray, center, yrplus int) (*sparse.DenseArray, error) {
	if err := requireRank(data, 2, "epoch input"); err != nil {
		return nil, err
	}
	lo, hi, err := Window(center, yrplus, data.Shape[1])
	if err != nil {
		return nil, err
	}
	return meanLeading(data, lo, hi), nil
}

// EpochMemberMeans averages data over the epoch window only, keeping the
// ensemble axis: [ensemble, spatial...].
func EpochMemberMeans(data *sparse.DenseArray, center, yrplus int) (*sparse.DenseArray, error) {
	if err := requireRank(data, 2, "epoch input"); err != nil {
		return nil, err
	}
	lo, hi, err := Window(center, yrplus, data.Shape[1])
	if err != nil {
		return nil, err
	}
	return meanAxis1(data, lo, hi), nil
}

// Difference returns a - b elementwise.
func Difference(a, b *sparse.DenseArray) (*sparse.DenseArray, error) {
	if a == nil || b == nil {
		return nil, shapeErr("difference of nil field", nil, nil)
	}
	if !slices.Equal(a.Shape, b.Shape) {
		return nil, shapeErr("difference operands differ", a.Shape, b.Shape)
	}
	out := sparse.ZerosDense(a.Shape...)
	for i, v := range a.Elements {
		out.Elements[i] = v - b.Elements[i]
	}
	return out, nil
}
