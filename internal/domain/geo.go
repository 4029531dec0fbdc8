package domain

import "math"

const (
	earthRadiusKm = 6371.0

	// kmPerDegreeLat is the great-circle distance of one degree of latitude.
	// Longitude degrees shrink with latitude; latitude degrees do not, which
	// makes this a safe sweep bound for the clusterer.
	kmPerDegreeLat = 111.195
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is inside WGS-84 range and not the
// (0,0) null-island sentinel used upstream for ungeocoded records.
func (g Geo) Valid() bool {
	if g.Lat == 0 && g.Lon == 0 {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// HaversineKm returns the great-circle distance between two points in
// kilometres.
func HaversineKm(a, b Geo) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
