// Package feed consumes incident records from Kafka and maintains the base
// incident collection the engine filters against. The feed is the data-fetch
// collaborator boundary: it refreshes on its own schedule, and each refresh
// is handed to the controller as a new base collection.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/incident-map-engine/internal/config"
	"github.com/couchcryptid/incident-map-engine/internal/domain"
	"github.com/couchcryptid/incident-map-engine/internal/observability"
)

// Controller is the engine-side sink for base-collection refreshes and feed
// failures.
type Controller interface {
	SetBaseCollection(incidents []domain.Incident)
	SetUnavailable(err error)
}

// messageReader abstracts the Kafka consumer for tests.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// KafkaFeed reads incident messages, dedupes them by ID into the base
// collection, and flushes refreshes to the controller on an interval so a
// busy topic does not trigger a recompute per message.
type KafkaFeed struct {
	reader        messageReader
	controller    Controller
	logger        *slog.Logger
	metrics       *observability.Metrics
	clk           clockwork.Clock
	flushInterval time.Duration

	mu        sync.Mutex
	incidents map[string]domain.Incident
	dirty     bool
}

// NewKafkaFeed creates a consumer for the configured incident topic.
func NewKafkaFeed(cfg *config.Config, controller Controller, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *KafkaFeed {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaIncidentTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newFeed(reader, cfg.FeedFlushInterval, controller, clk, logger, metrics)
}

func newFeed(reader messageReader, flushInterval time.Duration, controller Controller, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *KafkaFeed {
	return &KafkaFeed{
		reader:        reader,
		controller:    controller,
		logger:        logger,
		metrics:       metrics,
		clk:           clk,
		flushInterval: flushInterval,
		incidents:     make(map[string]domain.Incident),
	}
}

// Run consumes until the context is cancelled. Read failures mark the feed
// unavailable and retry with exponential backoff; recovery flushes the
// collection and clears the unavailable state.
func (f *KafkaFeed) Run(ctx context.Context) error {
	go f.flushLoop(ctx)

	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Error("feed read failed", "error", err)
			f.metrics.FeedAvailable.Set(0)
			f.controller.SetUnavailable(err)
			if !sleepWithContext(ctx, f.clk, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond
		f.metrics.FeedAvailable.Set(1)
		f.metrics.FeedMessagesConsumed.Inc()
		f.ingest(msg)
	}
}

func (f *KafkaFeed) ingest(msg kafkago.Message) {
	incident, err := domain.ParseIncident(msg.Value)
	if err != nil {
		f.metrics.FeedParseErrors.Inc()
		f.logger.Warn("skipping unparseable incident message",
			"error", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return
	}

	f.mu.Lock()
	f.incidents[incident.ID] = incident
	f.dirty = true
	f.mu.Unlock()
}

// flushLoop pushes a refreshed base collection to the controller whenever new
// incidents arrived since the last flush.
func (f *KafkaFeed) flushLoop(ctx context.Context) {
	ticker := f.clk.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			f.flush()
		}
	}
}

func (f *KafkaFeed) flush() {
	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return
	}
	f.dirty = false
	base := make([]domain.Incident, 0, len(f.incidents))
	for _, in := range f.incidents {
		base = append(base, in)
	}
	f.mu.Unlock()

	// The controller re-sorts working sets, but a stable base keeps logs and
	// diffs sane.
	sort.Slice(base, func(i, j int) bool { return base[i].ID < base[j].ID })
	f.controller.SetBaseCollection(base)
}

// Close shuts the underlying consumer down.
func (f *KafkaFeed) Close() error {
	return f.reader.Close()
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clk clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
