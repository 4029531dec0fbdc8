package domain

// Region is a static Region Catalog entry: a stable identifier, a display
// name, and a boundary polygon (single closed ring, vertices in order).
// Loaded once per session and treated as read-only.
type Region struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Boundary []Geo  `json:"boundary"`
}

// ValidGeometry reports whether the boundary is a usable ring: at least three
// vertices, all within coordinate range. Entries failing this are excluded
// from the catalog and fall back to no-data styling downstream.
func (r Region) ValidGeometry() bool {
	if len(r.Boundary) < 3 {
		return false
	}
	for _, p := range r.Boundary {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return false
		}
	}
	return true
}

// Contains reports whether a point falls inside the boundary ring, using the
// even-odd ray casting rule. Points exactly on an edge may land either way;
// catalog boundaries are coarse administrative outlines, so that is
// acceptable.
func (r Region) Contains(p Geo) bool {
	n := len(r.Boundary)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r.Boundary[i], r.Boundary[j]
		if (a.Lat > p.Lat) == (b.Lat > p.Lat) {
			continue
		}
		crossLon := (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
		if p.Lon < crossLon {
			inside = !inside
		}
	}
	return inside
}

// RegionAggregate is one region's per-cycle rollup: matching incident and
// fatality counts plus the derived severity bucket.
type RegionAggregate struct {
	RegionID   string         `json:"region_id"`
	Incidents  int            `json:"incidents"`
	Fatalities int            `json:"fatalities"`
	Bucket     SeverityBucket `json:"bucket"`
}

// AggregateRegions produces one aggregate per catalog entry, in catalog
// order, including regions with no matching incidents (BucketNoData).
// Incidents are attributed by region ID when geocoded; ungeocoded incidents
// fall back to point-in-polygon against the catalog.
func AggregateRegions(catalog []Region, ws WorkingSet, t SeverityThresholds) []RegionAggregate {
	index := make(map[string]int, len(catalog))
	aggs := make([]RegionAggregate, len(catalog))
	for i, region := range catalog {
		index[region.ID] = i
		aggs[i] = RegionAggregate{RegionID: region.ID}
	}

	for _, in := range ws {
		i, ok := index[in.RegionID]
		if !ok {
			i = locateRegion(catalog, in.Geo)
			if i < 0 {
				continue
			}
		}
		aggs[i].Incidents++
		aggs[i].Fatalities += in.Fatalities
	}

	for i := range aggs {
		aggs[i].Bucket = Classify(t, aggs[i].Incidents, aggs[i].Fatalities)
	}
	return aggs
}

// locateRegion returns the index of the first catalog region containing the
// point, or -1. Catalog order breaks ties on overlapping boundaries.
func locateRegion(catalog []Region, p Geo) int {
	for i, region := range catalog {
		if region.Contains(p) {
			return i
		}
	}
	return -1
}
