package domain

import (
	"math"
	"slices"

	"github.com/ctessum/sparse"
)

// Coords are the latitude and longitude centers of the trailing two axes of
// a field, in degrees (longitude 0–360).
type Coords struct {
	Lats []float64
	Lons []float64
}

// NamedField is a [lat, lon] (or [ensemble, lat, lon]) result ready to be
// written out.
type NamedField struct {
	Name   string
	Units  string
	Data   *sparse.DenseArray
	Coords Coords
	Attrs  map[string]string
}

func size(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func requireRank(a *sparse.DenseArray, rank int, what string) error {
	if a == nil {
		return shapeErr(what+" is nil", nil, nil)
	}
	if len(a.Shape) < rank {
		return shapeErr(what+" has too few axes", make([]int, rank), a.Shape)
	}
	return nil
}

// meanLeading averages a [n0, n1, rest...] array over n0 and n1[lo:hi],
// returning [rest...]. NaN entries are skipped.
func meanLeading(a *sparse.DenseArray, lo, hi int) *sparse.DenseArray {
	n0, n1 := a.Shape[0], a.Shape[1]
	restShape := slices.Clone(a.Shape[2:])
	rest := size(restShape)

	sum := make([]float64, rest)
	count := make([]int, rest)
	for e := 0; e < n0; e++ {
		for y := lo; y < hi; y++ {
			base := (e*n1 + y) * rest
			for c, v := range a.Elements[base : base+rest] {
				if math.IsNaN(v) {
					continue
				}
				sum[c] += v
				count[c]++
			}
		}
	}

	out := sparse.ZerosDense(restShape...)
	for c := range out.Elements {
		if count[c] == 0 {
			out.Elements[c] = math.NaN()
			continue
		}
		out.Elements[c] = sum[c] / float64(count[c])
	}
	return out
}

// meanAxis1 averages a [n0, n1, rest...] array over n1[lo:hi], keeping n0.
func meanAxis1(a *sparse.DenseArray, lo, hi int) *sparse.DenseArray {
	n0, n1 := a.Shape[0], a.Shape[1]
	rest := size(a.Shape[2:])

	outShape := append([]int{n0}, a.Shape[2:]...)
	out := sparse.ZerosDense(outShape...)
	count := make([]int, rest)
	for e := 0; e < n0; e++ {
		clear(count)
		dst := out.Elements[e*rest : (e+1)*rest]
		for y := lo; y < hi; y++ {
			base := (e*n1 + y) * rest
			for c, v := range a.Elements[base : base+rest] {
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
				continue
			}
			dst[c] /= float64(count[c])
		}
	}
	return out
}

// sliceAxis1 copies a[:, lo:hi, ...].
func sliceAxis1(a *sparse.DenseArray, lo, hi int) *sparse.DenseArray {
	n0, n1 := a.Shape[0], a.Shape[1]
	rest := size(a.Shape[2:])
	shape := slices.Clone(a.Shape)
	shape[1] = hi - lo
	out := sparse.ZerosDense(shape...)
	for e := 0; e < n0; e++ {
		src := a.Elements[(e*n1+lo)*rest : (e*n1+hi)*rest]
		copy(out.Elements[e*(hi-lo)*rest:], src)
	}
	return out
}
