package config

import (
	"fmt"

	"mercator-hq/callisto/pkg/partition"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Validate checks the configuration for invalid or inconsistent values.
// It is called automatically by Load but can also be used on configurations
// constructed in code.
func Validate(cfg *Config) error {
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level %q (must be debug, info, warn or error)", cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format %q (must be json or text)", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			return fmt.Errorf("metrics listen address must be set when metrics are enabled")
		}
		if cfg.Metrics.Namespace == "" {
			return fmt.Errorf("metrics namespace must be set when metrics are enabled")
		}
	}

	if _, err := partition.ParseCron(cfg.Sensor.TickSchedule, ""); err != nil {
		return fmt.Errorf("invalid sensor tick schedule %q: %w", cfg.Sensor.TickSchedule, err)
	}
	if cfg.Sensor.MaxEntities <= 0 {
		return fmt.Errorf("sensor max entities must be positive, got %d", cfg.Sensor.MaxEntities)
	}
	if cfg.Sensor.MaxParallel <= 0 {
		return fmt.Errorf("sensor max parallel must be positive, got %d", cfg.Sensor.MaxParallel)
	}
	if cfg.Sensor.Outbox.Enabled && cfg.Sensor.Outbox.Path == "" {
		return fmt.Errorf("sensor outbox path must be set when the outbox is enabled")
	}

	switch cfg.History.Backend {
	case HistoryMemory:
	case HistorySQLite:
		if cfg.History.Path == "" {
			return fmt.Errorf("history path must be set for the sqlite backend")
		}
		if cfg.History.BusyTimeout <= 0 {
			return fmt.Errorf("history busy timeout must be positive, got %v", cfg.History.BusyTimeout)
		}
	default:
		return fmt.Errorf("invalid history backend %q (must be memory or sqlite)", cfg.History.Backend)
	}

	if cfg.Definitions.Path == "" {
		return fmt.Errorf("definitions path must be set")
	}
	if cfg.Definitions.Watch && cfg.Definitions.DebounceInterval <= 0 {
		return fmt.Errorf("definitions debounce interval must be positive when watching, got %v", cfg.Definitions.DebounceInterval)
	}

	return nil
}
