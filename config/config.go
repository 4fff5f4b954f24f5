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

	"github.com/kilianp07/offboard/core/dispatch"
	"github.com/kilianp07/offboard/core/dispatch/logging"
	"github.com/kilianp07/offboard/core/metrics"
	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/infra/mqtt"
)

// EnvPrefix marks environment overrides; "__" separates nested keys, so
// OFFBOARD_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "OFFBOARD_"

type Config struct {
	Namespace string          `json:"namespace"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Setpoint  dispatch.Config `json:"setpoint"`
	Metrics   metrics.Config  `json:"metrics"`
	Audit     logging.Config  `json:"audit"`
	Sentry    SentryConfig    `json:"sentry"`
}

// Load reads the optional file at path, applies environment overrides and
// defaults, then validates the result. An empty path uses defaults and the
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Namespace = coremqtt.Namespace(c.Namespace)
	c.MQTT.SetDefaults()
	c.Setpoint.SetDefaults()
	c.Audit.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Setpoint.Validate(); err != nil {
		return fmt.Errorf("setpoint: %w", err)
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}
