package domain

import (
	"math"
	"slices"

	"github.com/ctessum/sparse"
)

// WeightedAverage reduces [ensemble, year, lat, lon] data to per-member
// area-weighted spatial means, [member][year]. Weights are cos(latitude);
// NaN cells drop out of both numerator and denominator.
func WeightedAverage(data *sparse.DenseArray, lats []float64) ([][]float64, error) {
	if err := requireRank(data, 4, "weighted average input"); err != nil {
		return nil, err
	}
	if len(data.Shape) != 4 {
		return nil, shapeErr("weighted average expects [ensemble, year, lat, lon]", nil, data.Shape)
	}
	nEns, nYears, nLat, nLon := data.Shape[0], data.Shape[1], data.Shape[2], data.Shape[3]
	if len(lats) != nLat {
		return nil, shapeErr("latitudes do not match grid", []int{nLat}, []int{len(lats)})
	}

	weights := make([]float64, nLat)
	for i, lat := range lats {
		weights[i] = math.Cos(lat * math.Pi / 180)
	}

	cell := nLat * nLon
	out := make([][]float64, nEns)
	for e := range out {
		out[e] = make([]float64, nYears)
		for y := 0; y < nYears; y++ {
			grid := data.Elements[(e*nYears+y)*cell : (e*nYears+y+1)*cell]
			var sum, wsum float64
			for i := 0; i < nLat; i++ {
				w := weights[i]
				for _, v := range grid[i*nLon : (i+1)*nLon] {
					if math.IsNaN(v) {
						continue
					}
					sum += w * v
					wsum += w
				}
			}
			if wsum == 0 {
				out[e][y] = math.NaN()
				continue
			}
			out[e][y] = sum / wsum
		}
	}
	return out, nil
}

// Climatology averages historical data over members and the baseline years
// [first, last], giving a spatial field.
func Climatology(hist *sparse.DenseArray, years []int, first, last int) (*sparse.DenseArray, error) {
	if err := requireRank(hist, 2, "climatology input"); err != nil {
		return nil, err
	}
	if len(years) != hist.Shape[1] {
		return nil, shapeErr("year labels do not match year axis", []int{hist.Shape[1]}, []int{len(years)})
	}
	base, _, err := SelectYears(hist, years, first, last)
	if err != nil {
		return nil, err
	}
	return meanLeading(base, 0, base.Shape[1]), nil
}

// Anomalies subtracts a spatial climatology from every member and year of
// data.
func Anomalies(data, clim *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := requireRank(data, 2, "anomaly input"); err != nil {
		return nil, err
	}
	if clim == nil || !slices.Equal(data.Shape[2:], clim.Shape) {
		var got []int
		if clim != nil {
			got = clim.Shape
		}
		return nil, shapeErr("climatology grid differs from data", data.Shape[2:], got)
	}
	rest := len(clim.Elements)
	out := sparse.ZerosDense(data.Shape...)
	for i, v := range data.Elements {
		out.Elements[i] = v - clim.Elements[i%rest]
	}
	return out, nil
}
