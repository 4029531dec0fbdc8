package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func densitySpec() GridSpec {
	return GridSpec{
		CellSizeDeg:    0.1,
		KernelRadiusKm: 30,
		Weighting:      WeightUniform,
	}
}

func TestEstimateDensity(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty working set yields no cells", func(t *testing.T) {
		assert.Empty(t, EstimateDensity(nil, densitySpec()))
	})

	t.Run("degenerate spec yields no cells", func(t *testing.T) {
		ws := WorkingSet{testIncident("a", 9, 7, ts, "", 0)}
		assert.Empty(t, EstimateDensity(ws, GridSpec{}))
	})

	t.Run("per-incident weight is conserved", func(t *testing.T) {
		ws := WorkingSet{
			testIncident("a", 9.0, 7.0, ts, "", 0),
			testIncident("b", 9.5, 7.5, ts, "", 0),
			testIncident("c", 10.1, 8.2, ts, "", 0),
		}

		cells := EstimateDensity(ws, densitySpec())

		require.NotEmpty(t, cells)
		var total float64
		for _, c := range cells {
			assert.Positive(t, c.Weight)
			total += c.Weight
		}
		// Uniform weighting: 1 per incident, spread but conserved.
		assert.InDelta(t, float64(len(ws)), total, 1e-9)
	})

	t.Run("fatality weighting scales contributions", func(t *testing.T) {
		ws := WorkingSet{testIncident("a", 9, 7, ts, "", 4)}
		spec := densitySpec()
		spec.Weighting = WeightFatality

		cells := EstimateDensity(ws, spec)

		var total float64
		for _, c := range cells {
			total += c.Weight
		}
		assert.InDelta(t, 5.0, total, 1e-9) // 1 + 4 fatalities
	})

	t.Run("weight decays away from the incident", func(t *testing.T) {
		ws := WorkingSet{testIncident("a", 9.05, 7.05, ts, "", 0)}

		cells := EstimateDensity(ws, densitySpec())
		require.NotEmpty(t, cells)

		var peak DensityCell
		for _, c := range cells {
			if c.Weight > peak.Weight {
				peak = c
			}
		}
		// Peak cell contains the incident itself.
		assert.LessOrEqual(t, peak.MinLat, 9.05)
		assert.Greater(t, peak.MaxLat, 9.05)
		assert.LessOrEqual(t, peak.MinLon, 7.05)
		assert.Greater(t, peak.MaxLon, 7.05)
	})

	t.Run("output is sorted and deterministic", func(t *testing.T) {
		ws := WorkingSet{
			testIncident("a", 9.0, 7.0, ts, "", 1),
			testIncident("b", 9.4, 7.6, ts, "", 2),
		}

		first := EstimateDensity(ws, densitySpec())
		second := EstimateDensity(ws, densitySpec())
		assert.Equal(t, first, second)

		for i := 1; i < len(first); i++ {
			prev, cur := first[i-1], first[i]
			ordered := prev.Row < cur.Row || (prev.Row == cur.Row && prev.Col < cur.Col)
			assert.True(t, ordered, "cells out of order at %d", i)
		}
	})

	t.Run("explicit bounds drop incidents outside the grid", func(t *testing.T) {
		ws := WorkingSet{
			testIncident("inside", 9.05, 7.05, ts, "", 0),
			testIncident("outside", 40.0, 40.0, ts, "", 0),
		}
		spec := densitySpec()
		spec.MinLat, spec.MaxLat = 8.5, 9.5
		spec.MinLon, spec.MaxLon = 6.5, 7.5

		cells := EstimateDensity(ws, spec)

		var total float64
		for _, c := range cells {
			total += c.Weight
		}
		assert.InDelta(t, 1.0, total, 1e-9)
	})
}
