package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// CALLISTO_* environment variable overrides (e.g. CALLISTO_SENSOR_MAX_ENTITIES).
// Environment variables take precedence over file values.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString("CALLISTO_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("CALLISTO_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("CALLISTO_LOGGING_ADD_SOURCE", &cfg.Logging.AddSource)

	setBool("CALLISTO_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("CALLISTO_METRICS_LISTEN_ADDRESS", &cfg.Metrics.ListenAddress)
	setString("CALLISTO_METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	setString("CALLISTO_SENSOR_TICK_SCHEDULE", &cfg.Sensor.TickSchedule)
	setInt("CALLISTO_SENSOR_MAX_ENTITIES", &cfg.Sensor.MaxEntities)
	setBool("CALLISTO_SENSOR_ALLOW_CUSTOM_CONDITIONS", &cfg.Sensor.AllowCustomConditions)
	setInt("CALLISTO_SENSOR_MAX_PARALLEL", &cfg.Sensor.MaxParallel)
	setBool("CALLISTO_SENSOR_OUTBOX_ENABLED", &cfg.Sensor.Outbox.Enabled)
	setString("CALLISTO_SENSOR_OUTBOX_PATH", &cfg.Sensor.Outbox.Path)

	if v, ok := os.LookupEnv("CALLISTO_HISTORY_BACKEND"); ok {
		cfg.History.Backend = HistoryBackend(v)
	}
	setString("CALLISTO_HISTORY_PATH", &cfg.History.Path)
	setDuration("CALLISTO_HISTORY_BUSY_TIMEOUT", &cfg.History.BusyTimeout)

	setString("CALLISTO_DEFINITIONS_PATH", &cfg.Definitions.Path)
	setBool("CALLISTO_DEFINITIONS_WATCH", &cfg.Definitions.Watch)
	setDuration("CALLISTO_DEFINITIONS_DEBOUNCE_INTERVAL", &cfg.Definitions.DebounceInterval)
}

func setString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func setBool(name string, dst *bool) {
	if v, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(name string, dst *int) {
	if v, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(name string, dst *time.Duration) {
	if v, ok := os.LookupEnv(name); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
