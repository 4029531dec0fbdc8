package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// recompute engine and its adapters.
type Metrics struct {
	RecomputesStarted   prometheus.Counter
	RecomputesCompleted prometheus.Counter
	RecomputesDiscarded prometheus.Counter // stale or cancelled completions
	RecomputeDuration   prometheus.Histogram
	WorkingSetSize      prometheus.Histogram
	SkippedIncidents    prometheus.Counter
	ClusterCount        prometheus.Gauge
	PulsingEntities     prometheus.Gauge

	// Feed metrics.
	FeedMessagesConsumed prometheus.Counter
	FeedParseErrors      prometheus.Counter
	FeedAvailable        prometheus.Gauge

	// Catalog metrics.
	CatalogRegions        prometheus.Gauge
	CatalogInvalidRegions prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecomputesStarted,
		m.RecomputesCompleted,
		m.RecomputesDiscarded,
		m.RecomputeDuration,
		m.WorkingSetSize,
		m.SkippedIncidents,
		m.ClusterCount,
		m.PulsingEntities,
		m.FeedMessagesConsumed,
		m.FeedParseErrors,
		m.FeedAvailable,
		m.CatalogRegions,
		m.CatalogInvalidRegions,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecomputesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "recomputes_started_total",
			Help:      "Total recompute cycles dispatched.",
		}),
		RecomputesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "recomputes_completed_total",
			Help:      "Total recompute cycles whose result was published.",
		}),
		RecomputesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "recomputes_discarded_total",
			Help:      "Total stale or cancelled computations discarded on arrival.",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_map",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of a complete recompute cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		WorkingSetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_map",
			Name:      "working_set_size",
			Help:      "Incidents in the working set per recompute.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		SkippedIncidents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "skipped_incidents_total",
			Help:      "Malformed incident records excluded from working sets.",
		}),
		ClusterCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "cluster_count",
			Help:      "Clusters in the latest published result.",
		}),
		PulsingEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "pulsing_entities",
			Help:      "Entities currently in the pulsing state.",
		}),
		FeedMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "feed_messages_consumed_total",
			Help:      "Total messages read from the incident topic.",
		}),
		FeedParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "feed_parse_errors_total",
			Help:      "Incident messages that failed to parse.",
		}),
		FeedAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "feed_available",
			Help:      "1 when the incident feed is healthy, 0 after a failure.",
		}),
		CatalogRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "catalog_regions",
			Help:      "Valid regions loaded into the catalog.",
		}),
		CatalogInvalidRegions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "catalog_invalid_regions_total",
			Help:      "Catalog entries rejected for malformed geometry.",
		}),
	}
}
