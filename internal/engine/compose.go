package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
)

// Frame is the immutable layer set handed to the rendering collaborator: the
// cluster markers, the heat surface, the choropleth styles, and the pulse
// states, stamped with the result's sequence number.
type Frame struct {
	ID          string    `json:"id"`
	Seq         uint64    `json:"seq"`
	GeneratedAt time.Time `json:"generated_at"`

	// Unavailable marks a feed failure. Distinct from an empty frame so the
	// renderer can show a retry affordance instead of an empty map.
	Unavailable bool `json:"unavailable"`

	Criteria   domain.FilterCriteria    `json:"criteria"`
	Clusters   []domain.Cluster         `json:"clusters"`
	Density    []domain.DensityCell     `json:"density"`
	Styles     []domain.RegionStyle     `json:"styles"`
	Aggregates []domain.RegionAggregate `json:"aggregates"`
	Pulses     map[string]PulseState    `json:"pulses"`

	WorkingSetSize   int `json:"working_set_size"`
	SkippedIncidents int `json:"skipped_incidents"`
}

// SelectionKind tags what a click resolved to.
type SelectionKind string

const (
	SelectionNone     SelectionKind = "none"
	SelectionIncident SelectionKind = "incident"
	SelectionCluster  SelectionKind = "cluster"
	SelectionRegion   SelectionKind = "region"
)

// SelectionResult is the single value the Detail Panel collaborator consumes.
// A click matching nothing yields Kind == SelectionNone, not an error.
type SelectionResult struct {
	Kind     SelectionKind           `json:"kind"`
	Incident *domain.Incident        `json:"incident,omitempty"`
	Cluster  *domain.Cluster         `json:"cluster,omitempty"`
	Region   *domain.RegionAggregate `json:"region,omitempty"`
}

// ClusterKey derives a stable-enough pulse key for a cluster from its first
// member. Cluster identity does not persist across cycles, but the first
// member of a surviving hotspot usually does, which keeps pulses from
// restarting on every recompute.
func ClusterKey(c domain.Cluster) EntityKey {
	return EntityKey{Kind: EntityCluster, ID: c.Members[0].ID}
}

// Composer subscribes to controller results, feeds the pulse controller, and
// assembles frames for the rendering collaborator.
type Composer struct {
	palette    domain.Palette
	thresholds domain.SeverityThresholds
	catalog    []domain.Region
	pulse      *PulseController

	mu        sync.Mutex
	frame     Frame
	haveFrame bool
}

// NewComposer wires the composer to its pulse controller and static inputs.
func NewComposer(palette domain.Palette, thresholds domain.SeverityThresholds, catalog []domain.Region, pulse *PulseController) *Composer {
	return &Composer{
		palette:    palette,
		thresholds: thresholds,
		catalog:    catalog,
		pulse:      pulse,
	}
}

// OnResult builds the frame for a completed result and stores it as current.
// Intended as the controller's SetOnResult callback. Callbacks run on the
// controller's compute goroutines and may arrive out of order, so a result
// whose sequence number does not exceed the current frame's is dropped and
// the current frame returned unchanged.
func (c *Composer) OnResult(res Result) Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveFrame && res.Seq <= c.frame.Seq {
		return c.frame
	}

	severities := make(map[EntityKey]domain.SeverityBucket, len(res.Aggregates)+len(res.Clusters))
	for _, agg := range res.Aggregates {
		severities[EntityKey{Kind: EntityRegion, ID: agg.RegionID}] = agg.Bucket
	}
	for _, cluster := range res.Clusters {
		severities[ClusterKey(cluster)] = domain.Classify(c.thresholds, cluster.Count, cluster.Fatalities)
	}
	c.pulse.Apply(severities)

	pulses := make(map[string]PulseState)
	for key, state := range c.pulse.Snapshot() {
		pulses[key.String()] = state
	}

	frame := Frame{
		ID:               uuid.NewString(),
		Seq:              res.Seq,
		GeneratedAt:      res.ComputedAt,
		Unavailable:      res.Unavailable,
		Criteria:         res.Criteria,
		Clusters:         res.Clusters,
		Density:          res.Density,
		Styles:           domain.MapRegions(res.Aggregates, c.palette),
		Aggregates:       res.Aggregates,
		Pulses:           pulses,
		WorkingSetSize:   len(res.WorkingSet),
		SkippedIncidents: res.Skipped,
	}

	c.frame = frame
	c.haveFrame = true
	return frame
}

// CurrentFrame returns the latest composed frame, if any.
func (c *Composer) CurrentFrame() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame, c.haveFrame
}

// Legend exposes the bucket → color → label entries for the UI chrome.
func (c *Composer) Legend() []domain.LegendEntry {
	return domain.Legend(c.palette)
}

// Select resolves a click against the current frame. The nearest cluster
// within toleranceKm wins; a one-member cluster resolves to its incident.
// Otherwise the containing catalog region's aggregate is returned, and a
// click over nothing yields an explicit empty selection.
func (c *Composer) Select(p domain.Geo, toleranceKm float64) SelectionResult {
	c.mu.Lock()
	frame, ok := c.frame, c.haveFrame
	c.mu.Unlock()
	if !ok || frame.Unavailable {
		return SelectionResult{Kind: SelectionNone}
	}

	bestIdx := -1
	bestDist := toleranceKm
	for i, cluster := range frame.Clusters {
		d := domain.HaversineKm(p, cluster.Centroid)
		if d <= bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		cluster := frame.Clusters[bestIdx]
		if cluster.Count == 1 {
			incident := cluster.Members[0]
			return SelectionResult{Kind: SelectionIncident, Incident: &incident}
		}
		return SelectionResult{Kind: SelectionCluster, Cluster: &cluster}
	}

	for i, region := range c.catalog {
		if !region.Contains(p) {
			continue
		}
		for j := range frame.Aggregates {
			if frame.Aggregates[j].RegionID == c.catalog[i].ID {
				agg := frame.Aggregates[j]
				return SelectionResult{Kind: SelectionRegion, Region: &agg}
			}
		}
	}

	return SelectionResult{Kind: SelectionNone}
}
