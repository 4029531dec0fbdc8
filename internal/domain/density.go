package domain

import (
	"math"
	"sort"
)

// WeightMode selects how much heat a single incident contributes.
type WeightMode string

const (
	// WeightUniform gives every incident a weight of 1.
	WeightUniform WeightMode = "uniform"
	// WeightFatality scales weight as 1 + fatalities, so deadly incidents
	// burn brighter.
	WeightFatality WeightMode = "fatality"
)

// GridSpec parameterizes the density surface. Zero bounds mean "derive from
// the working set, padded by the kernel radius".
type GridSpec struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64

	// CellSizeDeg is the edge length of a grid cell in degrees.
	CellSizeDeg float64

	// KernelRadiusKm bounds how far a single incident's weight spreads.
	KernelRadiusKm float64

	Weighting WeightMode
}

// DensityCell is one grid cell of the heat surface: a bounding box and a
// non-negative weight. Cells are ephemeral — regenerated wholesale each
// recompute cycle and never compared across cycles.
type DensityCell struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
	Weight float64 `json:"weight"`
}

// EstimateDensity computes the sparse heat surface for a working set. Each
// incident's weight is spread over the cells whose centers fall within the
// kernel radius using linear distance decay, normalized so the incident's
// total contribution is conserved rather than stepped. Cells that end up
// with zero weight are omitted; output is sorted by (row, col).
func EstimateDensity(ws WorkingSet, spec GridSpec) []DensityCell {
	if len(ws) == 0 || spec.CellSizeDeg <= 0 || spec.KernelRadiusKm <= 0 {
		return nil
	}
	spec = spec.withAutoBounds(ws)

	rows := int(math.Ceil((spec.MaxLat - spec.MinLat) / spec.CellSizeDeg))
	cols := int(math.Ceil((spec.MaxLon - spec.MinLon) / spec.CellSizeDeg))
	if rows <= 0 || cols <= 0 {
		return nil
	}

	// Kernel reach in whole cells, using the latitude degree as the coarser
	// bound; per-cell membership is still decided by true distance.
	reach := int(math.Ceil(spec.KernelRadiusKm/kmPerDegreeLat/spec.CellSizeDeg)) + 1

	type cellKey struct{ row, col int }
	weights := make(map[cellKey]float64)

	for _, in := range ws {
		w := 1.0
		if spec.Weighting == WeightFatality {
			w = 1.0 + float64(in.Fatalities)
		}

		homeRow := int((in.Geo.Lat - spec.MinLat) / spec.CellSizeDeg)
		homeCol := int((in.Geo.Lon - spec.MinLon) / spec.CellSizeDeg)

		type contribution struct {
			key    cellKey
			kernel float64
		}
		var contribs []contribution
		var kernelSum float64

		for dr := -reach; dr <= reach; dr++ {
			for dc := -reach; dc <= reach; dc++ {
				row, col := homeRow+dr, homeCol+dc
				if row < 0 || row >= rows || col < 0 || col >= cols {
					continue
				}
				center := Geo{
					Lat: spec.MinLat + (float64(row)+0.5)*spec.CellSizeDeg,
					Lon: spec.MinLon + (float64(col)+0.5)*spec.CellSizeDeg,
				}
				d := HaversineKm(in.Geo, center)
				if d > spec.KernelRadiusKm {
					continue
				}
				k := 1 - d/spec.KernelRadiusKm
				if k <= 0 {
					continue
				}
				contribs = append(contribs, contribution{key: cellKey{row, col}, kernel: k})
				kernelSum += k
			}
		}

		if kernelSum == 0 {
			continue
		}
		for _, c := range contribs {
			weights[c.key] += w * c.kernel / kernelSum
		}
	}

	cells := make([]DensityCell, 0, len(weights))
	for key, weight := range weights {
		if weight <= 0 {
			continue
		}
		cells = append(cells, DensityCell{
			Row:    key.row,
			Col:    key.col,
			MinLat: spec.MinLat + float64(key.row)*spec.CellSizeDeg,
			MinLon: spec.MinLon + float64(key.col)*spec.CellSizeDeg,
			MaxLat: spec.MinLat + float64(key.row+1)*spec.CellSizeDeg,
			MaxLon: spec.MinLon + float64(key.col+1)*spec.CellSizeDeg,
			Weight: weight,
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells
}

// withAutoBounds fills zero bounds from the working-set extent, padded by the
// kernel radius so edge incidents keep their full spread.
func (s GridSpec) withAutoBounds(ws WorkingSet) GridSpec {
	if s.MinLat != 0 || s.MaxLat != 0 || s.MinLon != 0 || s.MaxLon != 0 {
		return s
	}

	minLat, maxLat := ws[0].Geo.Lat, ws[0].Geo.Lat
	minLon, maxLon := ws[0].Geo.Lon, ws[0].Geo.Lon
	for _, in := range ws[1:] {
		minLat = math.Min(minLat, in.Geo.Lat)
		maxLat = math.Max(maxLat, in.Geo.Lat)
		minLon = math.Min(minLon, in.Geo.Lon)
		maxLon = math.Max(maxLon, in.Geo.Lon)
	}

	padDeg := s.KernelRadiusKm / kmPerDegreeLat
	s.MinLat = minLat - padDeg
	s.MaxLat = maxLat + padDeg + s.CellSizeDeg
	s.MinLon = minLon - padDeg
	s.MaxLon = maxLon + padDeg + s.CellSizeDeg
	return s
}
