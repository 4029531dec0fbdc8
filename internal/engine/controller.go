// Package engine orchestrates recomputation of the map layers: a debounced,
// sequence-numbered filter controller, the alert pulse state machine, and the
// render layer composer.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
	"github.com/couchcryptid/incident-map-engine/internal/observability"
)

// ErrUnavailable marks a result produced while the incident feed is down. It
// lets the composer distinguish "filtered to zero" from "no data at all".
var ErrUnavailable = errors.New("incident data unavailable")

// Result is one completed computation. The controller only ever exposes whole
// results — never a partially applied one.
type Result struct {
	Seq        uint64
	Criteria   domain.FilterCriteria
	WorkingSet domain.WorkingSet
	Clusters   []domain.Cluster
	Density    []domain.DensityCell
	Aggregates []domain.RegionAggregate

	Skipped     int
	Unavailable bool
	ComputedAt  time.Time
}

// ControllerConfig carries the engine tunables. All values come from
// configuration; see internal/config for defaults.
type ControllerConfig struct {
	DebounceWindow   time.Duration
	BaseResolutionKm float64
	MinResolutionKm  float64
	Grid             domain.GridSpec
	Thresholds       domain.SeverityThresholds
}

// Controller owns the current filter criteria, derives the working set, and
// re-runs the clusterer, density estimator, and region aggregation whenever
// criteria, zoom, or the base collection change. Rapid filter changes are
// absorbed by a debounce window; overlapping computations are cancelled and
// results are applied strictly in submission order via sequence numbers.
type Controller struct {
	cfg     ControllerConfig
	catalog []domain.Region
	logger  *slog.Logger
	metrics *observability.Metrics
	clk     clockwork.Clock

	mu         sync.Mutex
	base       []domain.Incident
	feedErr    error
	criteria   domain.FilterCriteria
	zoom       float64
	debounce   clockwork.Timer
	seq        uint64 // sequence number of the most recently dispatched computation
	cancel     context.CancelFunc
	result     Result
	haveResult bool
	onResult   func(Result)
	ready      atomic.Bool
	closed     bool
}

// NewController creates a Controller over a static region catalog. The clock
// drives the debounce window; pass a fake in tests.
func NewController(cfg ControllerConfig, catalog []domain.Region, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
		clk:     clk,
	}
}

// SetOnResult registers a callback invoked with each newly published result.
// Must be called before the first SetFilter/SetBaseCollection.
func (c *Controller) SetOnResult(fn func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// SetFilter updates the filter criteria. Equal criteria are a no-op; anything
// else restarts the debounce window, so slider drags collapse into a single
// recompute once input settles.
func (c *Controller) SetFilter(criteria domain.FilterCriteria) {
	criteria = criteria.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || criteria.Equal(c.criteria) {
		return
	}
	c.criteria = criteria
	c.scheduleLocked()
}

// SetZoom updates the zoom signal feeding the clusterer's resolution. Debounced
// like filter changes since zoom arrives in bursts while the user scrolls.
func (c *Controller) SetZoom(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || zoom == c.zoom {
		return
	}
	c.zoom = zoom
	c.scheduleLocked()
}

// SetBaseCollection replaces the base incident collection (a feed refresh)
// and clears any feed failure. Refreshes dispatch immediately: they are not
// UI bursts, and the working set must be re-derived against current criteria.
func (c *Controller) SetBaseCollection(incidents []domain.Incident) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.base = incidents
	c.feedErr = nil
	c.dispatchLocked()
}

// SetUnavailable records a feed failure. The next published result is an
// explicit unavailable one, distinct from an empty-but-valid result.
func (c *Controller) SetUnavailable(err error) {
	if err == nil {
		err = ErrUnavailable
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.feedErr = err
	c.dispatchLocked()
}

// Result returns the latest completed computation. The boolean is false until
// the first computation finishes.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.haveResult
}

// CheckReadiness returns nil once the controller has published at least one
// result.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no computation has completed yet")
	}
	return nil
}

// Close stops the debounce timer and cancels any in-flight computation. The
// controller accepts no further updates.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// scheduleLocked (re)arms the debounce timer. Caller holds c.mu.
func (c *Controller) scheduleLocked() {
	if c.cfg.DebounceWindow <= 0 {
		c.dispatchLocked()
		return
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = c.clk.AfterFunc(c.cfg.DebounceWindow, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.dispatchLocked()
	})
}

// dispatchLocked starts a new computation under the next sequence number,
// cancelling whatever is in flight. Caller holds c.mu.
func (c *Controller) dispatchLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.seq++
	seq := c.seq

	// Snapshot inputs under the lock; the computation itself runs outside it.
	base := c.base
	criteria := c.criteria
	zoom := c.zoom
	feedErr := c.feedErr

	c.metrics.RecomputesStarted.Inc()
	go c.compute(ctx, seq, base, criteria, zoom, feedErr)
}

// compute runs the heavy stages off the caller's goroutine. Cancellation is
// cooperative: the result of a superseded computation is discarded on
// arrival, never merged.
func (c *Controller) compute(ctx context.Context, seq uint64, base []domain.Incident, criteria domain.FilterCriteria, zoom float64, feedErr error) {
	start := c.clk.Now()

	res := Result{Seq: seq, Criteria: criteria, ComputedAt: start}
	if feedErr != nil {
		res.Unavailable = true
		c.publish(ctx, seq, res)
		return
	}

	ws, skipped := domain.DeriveWorkingSet(base, criteria)
	res.WorkingSet = ws
	res.Skipped = skipped
	if ctx.Err() != nil {
		c.discard(seq)
		return
	}

	resolution := domain.ResolutionForZoom(c.cfg.BaseResolutionKm, c.cfg.MinResolutionKm, zoom)
	res.Clusters = domain.ClusterIncidents(ws, resolution)
	if ctx.Err() != nil {
		c.discard(seq)
		return
	}

	res.Density = domain.EstimateDensity(ws, c.cfg.Grid)
	if ctx.Err() != nil {
		c.discard(seq)
		return
	}

	res.Aggregates = domain.AggregateRegions(c.catalog, ws, c.cfg.Thresholds)
	c.publish(ctx, seq, res)
}

// publish applies a completed result if it is still the newest computation.
func (c *Controller) publish(ctx context.Context, seq uint64, res Result) {
	c.mu.Lock()
	if c.closed || ctx.Err() != nil || seq != c.seq {
		c.mu.Unlock()
		c.discard(seq)
		return
	}
	c.result = res
	c.haveResult = true
	c.ready.Store(true)
	onResult := c.onResult
	c.mu.Unlock()

	c.metrics.RecomputesCompleted.Inc()
	c.metrics.RecomputeDuration.Observe(c.clk.Since(res.ComputedAt).Seconds())
	c.metrics.WorkingSetSize.Observe(float64(len(res.WorkingSet)))
	c.metrics.SkippedIncidents.Add(float64(res.Skipped))
	c.metrics.ClusterCount.Set(float64(len(res.Clusters)))

	c.logger.Debug("recompute published",
		"seq", seq,
		"working_set", len(res.WorkingSet),
		"clusters", len(res.Clusters),
		"density_cells", len(res.Density),
		"skipped", res.Skipped,
		"unavailable", res.Unavailable,
	)

	if onResult != nil {
		onResult(res)
	}
}

func (c *Controller) discard(seq uint64) {
	c.metrics.RecomputesDiscarded.Inc()
	c.logger.Debug("stale recompute discarded", "seq", seq)
}
