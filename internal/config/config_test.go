package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "conflict-incidents", cfg.KafkaIncidentTopic)
	assert.Equal(t, "incident-map-engine", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/regions.json", cfg.CatalogSource)
	assert.Equal(t, 500*time.Millisecond, cfg.FeedFlushInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.DebounceWindow)
	assert.Equal(t, 400.0, cfg.Engine.BaseResolutionKm)
	assert.Equal(t, 0.5, cfg.Engine.MinResolutionKm)
	assert.Equal(t, string(domain.WeightFatality), cfg.Engine.DensityWeighting)
	assert.Equal(t, 25.0, cfg.Engine.SelectToleranceKm)
	assert.Equal(t, domain.DefaultSeverityThresholds(), cfg.Severity)
	assert.Equal(t, domain.DefaultPalette(), cfg.Palette)
	assert.Equal(t, 100*time.Millisecond, cfg.Pulse.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Pulse.HighPeriod)
	assert.Equal(t, time.Second, cfg.Pulse.CriticalPeriod)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("MAPENGINE_KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("MAPENGINE_KAFKA_INCIDENT_TOPIC", "custom-incidents")
	t.Setenv("MAPENGINE_HTTP_ADDR", ":9090")
	t.Setenv("MAPENGINE_LOG_LEVEL", "debug")
	t.Setenv("MAPENGINE_LOG_FORMAT", "text")
	t.Setenv("MAPENGINE_CATALOG_SOURCE", "https://example.com/regions.json")
	t.Setenv("MAPENGINE_ENGINE__DEBOUNCE_WINDOW", "100ms")
	t.Setenv("MAPENGINE_ENGINE__BASE_RESOLUTION_KM", "200")
	t.Setenv("MAPENGINE_ENGINE__DENSITY_WEIGHTING", "uniform")
	t.Setenv("MAPENGINE_PULSE__HIGH_PERIOD", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-incidents", cfg.KafkaIncidentTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "https://example.com/regions.json", cfg.CatalogSource)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.DebounceWindow)
	assert.Equal(t, 200.0, cfg.Engine.BaseResolutionKm)
	assert.Equal(t, "uniform", cfg.Engine.DensityWeighting)
	assert.Equal(t, 3*time.Second, cfg.Pulse.HighPeriod)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":7070"
engine:
  base_resolution_km: 300
severity:
  critical_fatalities: 50
`), 0o644))
	t.Setenv("MAPENGINE_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 300.0, cfg.Engine.BaseResolutionKm)
	assert.Equal(t, 50, cfg.Severity.CriticalFatalities)
	// Untouched keys keep their defaults.
	assert.Equal(t, "conflict-incidents", cfg.KafkaIncidentTopic)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7070\"\n"), 0o644))
	t.Setenv("MAPENGINE_CONFIG", path)
	t.Setenv("MAPENGINE_HTTP_ADDR", ":6060")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.HTTPAddr)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("MAPENGINE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoad_InvalidWeighting(t *testing.T) {
	t.Setenv("MAPENGINE_ENGINE__DENSITY_WEIGHTING", "squared")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "density_weighting")
}

func TestLoad_InvalidSeverityBands(t *testing.T) {
	t.Setenv("MAPENGINE_SEVERITY__HIGH_FATALITIES", "100")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critical thresholds")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no brokers", func(c *Config) { c.KafkaBrokers = nil }},
		{"no topic", func(c *Config) { c.KafkaIncidentTopic = "" }},
		{"no http addr", func(c *Config) { c.HTTPAddr = "" }},
		{"no catalog source", func(c *Config) { c.CatalogSource = "" }},
		{"zero resolution", func(c *Config) { c.Engine.BaseResolutionKm = 0 }},
		{"zero cell size", func(c *Config) { c.Engine.DensityCellSizeDeg = 0 }},
		{"bad weighting", func(c *Config) { c.Engine.DensityWeighting = "squared" }},
		{"zero pulse tick", func(c *Config) { c.Pulse.TickInterval = 0 }},
		{"inverted severity bands", func(c *Config) { c.Severity.MediumFatalities = 99 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGridSpec(t *testing.T) {
	cfg := New()
	spec := cfg.GridSpec()

	assert.Equal(t, cfg.Engine.DensityCellSizeDeg, spec.CellSizeDeg)
	assert.Equal(t, cfg.Engine.DensityKernelRadiusKm, spec.KernelRadiusKm)
	assert.Equal(t, domain.WeightFatality, spec.Weighting)
	assert.Zero(t, spec.MinLat)
	assert.Zero(t, spec.MaxLat)
}
