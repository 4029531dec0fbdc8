package engine

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
	"github.com/couchcryptid/incident-map-engine/internal/observability"
)

// EntityKind distinguishes the two kinds of monitored entities.
type EntityKind string

const (
	EntityRegion  EntityKind = "region"
	EntityCluster EntityKind = "cluster"
)

// EntityKey identifies a monitored entity across recompute cycles.
type EntityKey struct {
	Kind EntityKind
	ID   string
}

// String renders the key in "kind:id" form, used as the frame's map key.
func (k EntityKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// PulseState is one entity's animation state. Only pulsing entities carry a
// state; an absent entry means inactive.
type PulseState struct {
	Bucket    domain.SeverityBucket `json:"bucket"`
	Intensity float64               `json:"intensity"` // 0..1, triangle wave over the bucket's period
}

// PulseConfig sets the tick granularity and the per-bucket wave periods.
// Critical entities pulse on a shorter period and a higher ceiling than high
// ones.
type PulseConfig struct {
	TickInterval   time.Duration
	HighPeriod     time.Duration
	CriticalPeriod time.Duration
}

// PulseController drives periodic visual emphasis for entities classified
// HIGH or CRITICAL. It owns a phase clock that runs independently of
// recompute cycles; the hosting view must call Release when it unmounts so
// the ticker never outlives its owner.
type PulseController struct {
	cfg     PulseConfig
	clk     clockwork.Clock
	metrics *observability.Metrics

	mu       sync.Mutex
	entities map[EntityKey]domain.SeverityBucket
	elapsed  time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPulseController starts the phase clock immediately.
func NewPulseController(cfg PulseConfig, clk clockwork.Clock, metrics *observability.Metrics) *PulseController {
	p := &PulseController{
		cfg:      cfg,
		clk:      clk,
		metrics:  metrics,
		entities: make(map[EntityKey]domain.SeverityBucket),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *PulseController) run() {
	defer close(p.done)
	ticker := p.clk.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.Chan():
			p.mu.Lock()
			p.elapsed += p.cfg.TickInterval
			p.mu.Unlock()
		}
	}
}

// Apply reconciles the monitored set against a fresh severity classification.
// Entities at HIGH or CRITICAL start (or keep) pulsing; everything else,
// including entities that vanished from the result set, drops to inactive
// and is destroyed.
func (p *PulseController) Apply(severities map[EntityKey]domain.SeverityBucket) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range p.entities {
		if b, ok := severities[key]; !ok || b < domain.BucketHigh {
			delete(p.entities, key)
		}
	}
	for key, b := range severities {
		if b >= domain.BucketHigh {
			p.entities[key] = b
		}
	}
	p.metrics.PulsingEntities.Set(float64(len(p.entities)))
}

// Snapshot returns the current pulse state of every pulsing entity, with
// intensity evaluated at the current phase.
func (p *PulseController) Snapshot() map[EntityKey]PulseState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[EntityKey]PulseState, len(p.entities))
	for key, bucket := range p.entities {
		out[key] = PulseState{Bucket: bucket, Intensity: p.intensityLocked(bucket)}
	}
	return out
}

// intensityLocked evaluates the triangle wave for a bucket at the current
// phase. Caller holds p.mu.
func (p *PulseController) intensityLocked(bucket domain.SeverityBucket) float64 {
	period := p.cfg.HighPeriod
	ceiling := 0.6
	if bucket == domain.BucketCritical {
		period = p.cfg.CriticalPeriod
		ceiling = 1.0
	}
	if period <= 0 {
		return ceiling
	}

	cycle := p.elapsed.Seconds() / period.Seconds()
	frac := cycle - math.Floor(cycle)
	wave := 2 * frac
	if frac >= 0.5 {
		wave = 2 * (1 - frac)
	}
	return ceiling * wave
}

// Release tears down the phase clock. Idempotent; blocks until the tick
// goroutine has exited.
func (p *PulseController) Release() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}
