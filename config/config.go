// Package config loads the optimizer settings from a YAML or JSON file
// with COGEN_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cogendispatch/core/cost"
	"github.com/kilianp07/cogendispatch/core/dispatch"
	"github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/monitoring"
	"github.com/kilianp07/cogendispatch/core/physics"
	"github.com/kilianp07/cogendispatch/core/recommend"
	"github.com/kilianp07/cogendispatch/core/reportlog"
	"github.com/kilianp07/cogendispatch/core/telemetry"
	"github.com/kilianp07/cogendispatch/infra/logger"
	"github.com/kilianp07/cogendispatch/infra/mqtt"
)

// EnvPrefix marks environment overrides, e.g. COGEN_SOLVER__TIMEOUT_MS=500.
const EnvPrefix = "COGEN_"

type Config struct {
	Plant     physics.Config    `json:"plant"`
	Tariff    cost.Config       `json:"tariff"`
	Limits    dispatch.Limits   `json:"limits"`
	Solver    dispatch.Config   `json:"solver"`
	Recommend recommend.Config  `json:"recommend"`
	Telemetry telemetry.Config  `json:"telemetry"`
	MQTT      mqtt.Config       `json:"mqtt"`
	Metrics   metrics.Config    `json:"metrics"`
	Logging   logger.Config     `json:"logging"`
	Sentry    monitoring.Config `json:"sentry"`
	ReportLog reportlog.Config  `json:"reportlog"`
}

// Default returns the site configuration with every section defaulted.
func Default() Config {
	cfg := Config{
		Plant:     physics.DefaultConfig(),
		Tariff:    cost.DefaultConfig(),
		Limits:    dispatch.DefaultLimits(),
		Solver:    dispatch.DefaultConfig(),
		Recommend: recommend.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
	cfg.SetDefaults()
	return cfg
}

// Load reads path (YAML or JSON by extension) over the defaults and applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	// The log path default depends on the backend, so it is derived after unmarshalling.
	cfg.ReportLog = reportlog.Config{}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults fills zero values in every section.
func (c *Config) SetDefaults() {
	c.Plant.SetDefaults()
	c.Tariff.SetDefaults()
	c.Limits.SetDefaults()
	c.Solver.SetDefaults()
	c.Recommend.SetDefaults()
	c.Telemetry.SetDefaults()
	c.MQTT.SetDefaults()
	c.ReportLog.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section. MQTT settings are only checked when a
// broker is configured or telemetry is read from MQTT.
func (c Config) Validate() error {
	checks := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"plant", c.Plant},
		{"tariff", c.Tariff},
		{"limits", c.Limits},
		{"solver", c.Solver},
		{"recommend", c.Recommend},
		{"telemetry", c.Telemetry},
		{"logging", c.Logging},
		{"reportlog", c.ReportLog},
	}
	if c.MQTT.Broker != "" || c.Telemetry.Source == telemetry.SourceMQTT {
		checks = append(checks, struct {
			name string
			v    interface{ Validate() error }
		}{"mqtt", c.MQTT})
	}
	for _, chk := range checks {
		if err := chk.v.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", chk.name, err)
		}
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		return fmt.Errorf("config sentry: traces_sample_rate must be within [0,1]")
	}
	return nil
}
