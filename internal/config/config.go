// Package config defines the service configuration and its layered loading:
// defaults, then an optional YAML file, then MAPENGINE_* environment
// variables. Every engine tunable (severity thresholds, cluster resolution,
// density kernel, debounce window, pulse periods) lives here so no call site
// hardcodes them.
package config

import (
	"errors"
	"time"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
)

// Config holds all service settings.
type Config struct {
	KafkaBrokers       []string `koanf:"kafka_brokers"`
	KafkaIncidentTopic string   `koanf:"kafka_incident_topic"`
	KafkaGroupID       string   `koanf:"kafka_group_id"`

	HTTPAddr        string        `koanf:"http_addr"`
	LogLevel        string        `koanf:"log_level"`
	LogFormat       string        `koanf:"log_format"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CatalogSource is a local file path or an http(s) URL holding the region
	// catalog JSON.
	CatalogSource  string        `koanf:"catalog_source"`
	CatalogTimeout time.Duration `koanf:"catalog_timeout"`

	// FeedFlushInterval bounds how often the feed pushes a refreshed base
	// collection into the controller.
	FeedFlushInterval time.Duration `koanf:"feed_flush_interval"`

	Engine   EngineConfig              `koanf:"engine"`
	Severity domain.SeverityThresholds `koanf:"severity"`
	Palette  domain.Palette            `koanf:"palette"`
	Pulse    PulseConfig               `koanf:"pulse"`
}

// EngineConfig carries the recompute tunables.
type EngineConfig struct {
	DebounceWindow   time.Duration `koanf:"debounce_window"`
	BaseResolutionKm float64       `koanf:"base_resolution_km"`
	MinResolutionKm  float64       `koanf:"min_resolution_km"`

	DensityCellSizeDeg    float64 `koanf:"density_cell_size_deg"`
	DensityKernelRadiusKm float64 `koanf:"density_kernel_radius_km"`
	DensityWeighting      string  `koanf:"density_weighting"` // uniform | fatality

	// SelectToleranceKm bounds how far a click may land from a cluster
	// centroid and still select it.
	SelectToleranceKm float64 `koanf:"select_tolerance_km"`
}

// PulseConfig carries the alert-pulse timing tunables.
type PulseConfig struct {
	TickInterval   time.Duration `koanf:"tick_interval"`
	HighPeriod     time.Duration `koanf:"high_period"`
	CriticalPeriod time.Duration `koanf:"critical_period"`
}

// New returns the configuration defaults.
func New() *Config {
	return &Config{
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaIncidentTopic: "conflict-incidents",
		KafkaGroupID:       "incident-map-engine",
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		LogFormat:          "json",
		ShutdownTimeout:    10 * time.Second,
		CatalogSource:      "data/regions.json",
		CatalogTimeout:     5 * time.Second,
		FeedFlushInterval:  500 * time.Millisecond,
		Engine: EngineConfig{
			DebounceWindow:        250 * time.Millisecond,
			BaseResolutionKm:      400,
			MinResolutionKm:       0.5,
			DensityCellSizeDeg:    0.25,
			DensityKernelRadiusKm: 50,
			DensityWeighting:      string(domain.WeightFatality),
			SelectToleranceKm:     25,
		},
		Severity: domain.DefaultSeverityThresholds(),
		Palette:  domain.DefaultPalette(),
		Pulse: PulseConfig{
			TickInterval:   100 * time.Millisecond,
			HighPeriod:     2 * time.Second,
			CriticalPeriod: time.Second,
		},
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("kafka_brokers is required")
	}
	if c.KafkaIncidentTopic == "" {
		return errors.New("kafka_incident_topic is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr is required")
	}
	if c.CatalogSource == "" {
		return errors.New("catalog_source is required")
	}
	if c.Engine.BaseResolutionKm <= 0 {
		return errors.New("engine.base_resolution_km must be positive")
	}
	if c.Engine.DensityCellSizeDeg <= 0 || c.Engine.DensityKernelRadiusKm <= 0 {
		return errors.New("engine density grid parameters must be positive")
	}
	switch domain.WeightMode(c.Engine.DensityWeighting) {
	case domain.WeightUniform, domain.WeightFatality:
	default:
		return errors.New("engine.density_weighting must be uniform or fatality")
	}
	if c.Pulse.TickInterval <= 0 || c.Pulse.HighPeriod <= 0 || c.Pulse.CriticalPeriod <= 0 {
		return errors.New("pulse intervals must be positive")
	}
	return c.Severity.Validate()
}

// GridSpec builds the density grid spec from the engine settings. Bounds are
// left zero so the estimator derives them from each working set.
func (c *Config) GridSpec() domain.GridSpec {
	return domain.GridSpec{
		CellSizeDeg:    c.Engine.DensityCellSizeDeg,
		KernelRadiusKm: c.Engine.DensityKernelRadiusKm,
		Weighting:      domain.WeightMode(c.Engine.DensityWeighting),
	}
}
