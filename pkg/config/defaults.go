package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsAddress   = ":9102"
	DefaultMetricsNamespace = "callisto"
	DefaultTickSchedule     = "* * * * *"
	DefaultMaxEntities      = 500
	DefaultMaxParallel      = 8
	DefaultHistoryPath      = "data/history.db"
	DefaultOutboxPath       = "data/outbox.db"
	DefaultDefinitionsPath  = "definitions.yaml"
	DefaultBusyTimeout      = 5 * time.Second
	DefaultDebounceInterval = 100 * time.Millisecond
)

// ApplyDefaults fills unset fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsAddress
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Sensor.TickSchedule == "" {
		cfg.Sensor.TickSchedule = DefaultTickSchedule
	}
	if cfg.Sensor.MaxEntities == 0 {
		cfg.Sensor.MaxEntities = DefaultMaxEntities
	}
	if cfg.Sensor.MaxParallel == 0 {
		cfg.Sensor.MaxParallel = DefaultMaxParallel
	}
	if cfg.Sensor.Outbox.Path == "" {
		cfg.Sensor.Outbox.Path = DefaultOutboxPath
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = HistoryMemory
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultBusyTimeout
	}

	if cfg.Definitions.Path == "" {
		cfg.Definitions.Path = DefaultDefinitionsPath
	}
	if cfg.Definitions.DebounceInterval == 0 {
		cfg.Definitions.DebounceInterval = DefaultDebounceInterval
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
