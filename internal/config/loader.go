package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the engine's environment variables, e.g.
// MAPENGINE_HTTP_ADDR or MAPENGINE_ENGINE__DEBOUNCE_WINDOW.
const envPrefix = "MAPENGINE_"

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Precedence (low → high):
//  1. defaults (New)
//  2. YAML file named by MAPENGINE_CONFIG
//  3. env vars with the MAPENGINE_ prefix
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// MAPENGINE_LOG_LEVEL -> log_level. Single underscores are preserved to
	// match the koanf tags; a double underscore nests, so
	// MAPENGINE_ENGINE__DEBOUNCE_WINDOW -> engine.debounce_window.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
