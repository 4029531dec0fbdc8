package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterTestSet(points []Geo) WorkingSet {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ws := make(WorkingSet, len(points))
	for i, p := range points {
		ws[i] = Incident{
			ID:         fmt.Sprintf("inc-%02d", i),
			Geo:        p,
			Timestamp:  ts.Add(time.Duration(i) * time.Minute),
			Fatalities: i % 3,
		}
	}
	return ws
}

func TestClusterIncidents(t *testing.T) {
	t.Run("empty working set yields no clusters", func(t *testing.T) {
		assert.Empty(t, ClusterIncidents(nil, 5))
		assert.Empty(t, ClusterIncidents(WorkingSet{}, 5))
	})

	t.Run("tight group at coarse resolution is one cluster", func(t *testing.T) {
		// 25 incidents inside a ~1 km square; resolution 5 km.
		var points []Geo
		for i := 0; i < 25; i++ {
			points = append(points, Geo{
				Lat: 9.0 + float64(i%5)*0.002,
				Lon: 7.0 + float64(i/5)*0.002,
			})
		}
		ws := clusterTestSet(points)

		clusters := ClusterIncidents(ws, 5)

		require.Len(t, clusters, 1)
		assert.Equal(t, 25, clusters[0].Count)
		assert.Len(t, clusters[0].Members, 25)
	})

	t.Run("far apart incidents stay separate", func(t *testing.T) {
		ws := clusterTestSet([]Geo{{Lat: 9, Lon: 7}, {Lat: 12, Lon: 10}})
		clusters := ClusterIncidents(ws, 5)
		assert.Len(t, clusters, 2)
	})

	t.Run("merge is transitive along a chain", func(t *testing.T) {
		// Consecutive points ~3 km apart; endpoints ~12 km apart. With a 4 km
		// threshold the chain still collapses into one cluster.
		ws := clusterTestSet([]Geo{
			{Lat: 9.00, Lon: 7},
			{Lat: 9.027, Lon: 7},
			{Lat: 9.054, Lon: 7},
			{Lat: 9.081, Lon: 7},
			{Lat: 9.108, Lon: 7},
		})

		clusters := ClusterIncidents(ws, 4)

		require.Len(t, clusters, 1)
		assert.Equal(t, 5, clusters[0].Count)
	})

	t.Run("partitions the working set", func(t *testing.T) {
		var points []Geo
		for i := 0; i < 40; i++ {
			points = append(points, Geo{
				Lat: 9.0 + float64(i%7)*0.05,
				Lon: 7.0 + float64(i%11)*0.07,
			})
		}
		ws := clusterTestSet(points)

		clusters := ClusterIncidents(ws, 3)

		seen := make(map[string]int)
		total := 0
		for _, c := range clusters {
			assert.Len(t, c.Members, c.Count)
			total += c.Count
			for _, m := range c.Members {
				seen[m.ID]++
			}
		}
		assert.Equal(t, len(ws), total)
		for id, n := range seen {
			assert.Equal(t, 1, n, "incident %s appears in %d clusters", id, n)
		}
	})

	t.Run("deterministic across repeated calls", func(t *testing.T) {
		var points []Geo
		for i := 0; i < 30; i++ {
			points = append(points, Geo{
				Lat: 9.0 + float64(i%6)*0.03,
				Lon: 7.0 + float64(i%9)*0.04,
			})
		}
		ws := clusterTestSet(points)

		first := ClusterIncidents(ws, 4)
		second := ClusterIncidents(ws, 4)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("cluster output differs between identical calls (-first +second):\n%s", diff)
		}
	})

	t.Run("centroid and fatality sum aggregate the members", func(t *testing.T) {
		ws := WorkingSet{
			testIncident("a", 9.0, 7.0, time.Now(), "", 2),
			testIncident("b", 9.02, 7.02, time.Now(), "", 5),
		}

		clusters := ClusterIncidents(ws, 10)

		require.Len(t, clusters, 1)
		assert.InDelta(t, 9.01, clusters[0].Centroid.Lat, 1e-9)
		assert.InDelta(t, 7.01, clusters[0].Centroid.Lon, 1e-9)
		assert.Equal(t, 7, clusters[0].Fatalities)
	})
}

func TestResolutionForZoom(t *testing.T) {
	tests := []struct {
		name     string
		zoom     float64
		expected float64
	}{
		{"zoomed out", 0, 400},
		{"one step halves", 1, 200},
		{"four steps", 4, 25},
		{"negative clamps to base", -3, 400},
		{"deep zoom clamps to floor", 12, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, ResolutionForZoom(400, 0.5, tc.zoom), 1e-9)
		})
	}
}

func TestHaversineKm(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Zero(t, HaversineKm(Geo{Lat: 9, Lon: 7}, Geo{Lat: 9, Lon: 7}))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := HaversineKm(Geo{Lat: 9, Lon: 7}, Geo{Lat: 10, Lon: 7})
		assert.InDelta(t, 111.2, d, 0.5)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := Geo{Lat: 9.3, Lon: 7.1}, Geo{Lat: 10.8, Lon: 8.9}
		assert.InDelta(t, HaversineKm(a, b), HaversineKm(b, a), 1e-9)
	})
}
