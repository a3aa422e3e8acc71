package domain

import (
	"slices"

	"github.com/ctessum/sparse"
)

// Region is a latitude/longitude box. Longitudes run 0–360.
type Region struct {
	Name   string
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

var regions = map[string]Region{
	"Globe":         {Name: "Globe", LatMin: -90, LatMax: 90, LonMin: 0, LonMax: 360},
	"NH":            {Name: "NH", LatMin: 0, LatMax: 90, LonMin: 0, LonMax: 360},
	"SH":            {Name: "SH", LatMin: -90, LatMax: 0, LonMin: 0, LonMax: 360},
	"Arctic":        {Name: "Arctic", LatMin: 67, LatMax: 90, LonMin: 0, LonMax: 360},
	"Antarctic":     {Name: "Antarctic", LatMin: -90, LatMax: -60, LonMin: 0, LonMax: 360},
	"Tropics":       {Name: "Tropics", LatMin: -30, LatMax: 30, LonMin: 0, LonMax: 360},
	"US":            {Name: "US", LatMin: 24, LatMax: 60, LonMin: 235, LonMax: 295},
	"CentralAfrica": {Name: "CentralAfrica", LatMin: 0, LatMax: 15, LonMin: 0, LonMax: 40},
	"NorthAtlantic": {Name: "NorthAtlantic", LatMin: 40, LatMax: 70, LonMin: 290, LonMax: 360},
}

// LookupRegion returns the named region.
func LookupRegion(name string) (Region, error) {
	r, ok := regions[name]
	if !ok {
		return Region{}, configErr("region", name, "unknown region")
	}
	return r, nil
}

// RegionSubset crops the trailing [lat, lon] axes of data to the region.
func RegionSubset(data *sparse.DenseArray, coords Coords, r Region) (*sparse.DenseArray, Coords, error) {
	if err := requireRank(data, 2, "region input"); err != nil {
		return nil, Coords{}, err
	}
	nd := len(data.Shape)
	nLat, nLon := data.Shape[nd-2], data.Shape[nd-1]
	if nLat != len(coords.Lats) || nLon != len(coords.Lons) {
		return nil, Coords{}, shapeErr("coordinates do not match grid",
			[]int{len(coords.Lats), len(coords.Lons)}, []int{nLat, nLon})
	}

	var latIdx, lonIdx []int
	for i, lat := range coords.Lats {
		if lat >= r.LatMin && lat <= r.LatMax {
			latIdx = append(latIdx, i)
		}
	}
	for j, lon := range coords.Lons {
		if lon >= r.LonMin && lon <= r.LonMax {
			lonIdx = append(lonIdx, j)
		}
	}
	if len(latIdx) == 0 || len(lonIdx) == 0 {
		return nil, Coords{}, configErr("region", r.Name, "no grid points inside region")
	}

	shape := slices.Clone(data.Shape)
	shape[nd-2], shape[nd-1] = len(latIdx), len(lonIdx)
	out := sparse.ZerosDense(shape...)

	lead := size(data.Shape[:nd-2])
	k := 0
	for l := 0; l < lead; l++ {
		base := l * nLat * nLon
		for _, i := range latIdx {
			for _, j := range lonIdx {
				out.Elements[k] = data.Elements[base+i*nLon+j]
				k++
			}
		}
	}

	sub := Coords{Lats: make([]float64, len(latIdx)), Lons: make([]float64, len(lonIdx))}
	for n, i := range latIdx {
		sub.Lats[n] = coords.Lats[i]
	}
	for n, j := range lonIdx {
		sub.Lons[n] = coords.Lons[j]
	}
	return out, sub, nil
}
