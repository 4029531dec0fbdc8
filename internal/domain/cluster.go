package domain

import (
	"math"
	"sort"
)

// Cluster is a proximity grouping of incidents at a given resolution. The
// centroid is the unweighted mean of member coordinates; Fatalities is the
// arithmetic sum over members. Members keep working-set order.
type Cluster struct {
	Centroid   Geo        `json:"centroid"`
	Count      int        `json:"count"`
	Fatalities int        `json:"fatalities"`
	Members    []Incident `json:"members"`
}

// ResolutionForZoom derives the clusterer's distance threshold from a map
// zoom level: the base radius halves with each zoom step, clamped below by
// minKm so deep zooms degrade to one marker per incident rather than a
// zero threshold.
func ResolutionForZoom(baseKm, minKm, zoom float64) float64 {
	if zoom < 0 {
		zoom = 0
	}
	r := baseKm / math.Pow(2, zoom)
	return math.Max(r, minKm)
}

// ClusterIncidents groups a working set by proximity. Two incidents share a
// cluster iff their great-circle distance is within resolutionKm, applied
// transitively. The pass is deterministic: members are sorted by latitude,
// longitude, then ID, swept once, and unioned; output clusters are sorted by
// centroid. The result partitions the working set — every incident lands in
// exactly one cluster.
func ClusterIncidents(ws WorkingSet, resolutionKm float64) []Cluster {
	if len(ws) == 0 {
		return nil
	}

	order := make([]int, len(ws))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := ws[order[a]], ws[order[b]]
		if pa.Geo.Lat != pb.Geo.Lat {
			return pa.Geo.Lat < pb.Geo.Lat
		}
		if pa.Geo.Lon != pb.Geo.Lon {
			return pa.Geo.Lon < pb.Geo.Lon
		}
		return pa.ID < pb.ID
	})

	parent := make([]int, len(ws))
	for i := range parent {
		parent[i] = i
	}

	if resolutionKm > 0 {
		// Sweep in latitude order. Once the latitude gap alone exceeds the
		// threshold no later candidate can merge, so the inner loop breaks
		// early and typical inputs stay far from quadratic.
		for a := 0; a < len(order); a++ {
			ia := order[a]
			for b := a + 1; b < len(order); b++ {
				ib := order[b]
				latGapKm := (ws[ib].Geo.Lat - ws[ia].Geo.Lat) * kmPerDegreeLat
				if latGapKm > resolutionKm {
					break
				}
				if HaversineKm(ws[ia].Geo, ws[ib].Geo) <= resolutionKm {
					union(parent, ia, ib)
				}
			}
		}
	}

	groups := make(map[int][]int)
	for i := range ws {
		root := find(parent, i)
		groups[root] = append(groups[root], i)
	}

	clusters := make([]Cluster, 0, len(groups))
	for _, members := range groups {
		c := Cluster{Count: len(members), Members: make([]Incident, 0, len(members))}
		for _, i := range members {
			c.Members = append(c.Members, ws[i])
			c.Centroid.Lat += ws[i].Geo.Lat
			c.Centroid.Lon += ws[i].Geo.Lon
			c.Fatalities += ws[i].Fatalities
		}
		c.Centroid.Lat /= float64(c.Count)
		c.Centroid.Lon /= float64(c.Count)
		clusters = append(clusters, c)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Centroid.Lat != clusters[j].Centroid.Lat {
			return clusters[i].Centroid.Lat < clusters[j].Centroid.Lat
		}
		if clusters[i].Centroid.Lon != clusters[j].Centroid.Lon {
			return clusters[i].Centroid.Lon < clusters[j].Centroid.Lon
		}
		return clusters[i].Members[0].ID < clusters[j].Members[0].ID
	})
	return clusters
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, a, b int) {
	ra, rb := find(parent, a), find(parent, b)
	if ra == rb {
		return
	}
	// Smaller root wins so merge order cannot influence group identity.
	if ra < rb {
		parent[rb] = ra
	} else {
		parent[ra] = rb
	}
}
