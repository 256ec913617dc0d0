package config

import "time"

// Config is the root configuration of the callisto daemon.
type Config struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Sensor configures the evaluation tick loop.
	Sensor SensorConfig `yaml:"sensor"`

	// History configures evaluation record storage.
	History HistoryConfig `yaml:"history"`

	// Definitions configures asset definition loading.
	Definitions DefinitionsConfig `yaml:"definitions"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics HTTP endpoint on.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address the metrics server binds to.
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`
}

// SensorConfig configures the evaluation tick loop.
type SensorConfig struct {
	// TickSchedule is the cron expression driving evaluation ticks.
	TickSchedule string `yaml:"tick_schedule"`

	// MaxEntities caps the targets covered by one evaluation pass.
	MaxEntities int `yaml:"max_entities"`

	// AllowCustomConditions permits externally registered operand
	// evaluators. Targets with custom conditions are skipped when false.
	AllowCustomConditions bool `yaml:"allow_custom_conditions"`

	// MaxParallel bounds intra-tick evaluation concurrency.
	MaxParallel int `yaml:"max_parallel"`

	// Outbox configures the durable request outbox sink.
	Outbox OutboxConfig `yaml:"outbox"`
}

// HistoryBackend selects the evaluation record store.
type HistoryBackend string

const (
	// HistoryMemory keeps records in memory; history is lost on restart.
	HistoryMemory HistoryBackend = "memory"
	// HistorySQLite stores records in a SQLite database.
	HistorySQLite HistoryBackend = "sqlite"
)

// HistoryConfig configures evaluation record storage.
type HistoryConfig struct {
	// Backend is "memory" or "sqlite".
	Backend HistoryBackend `yaml:"backend"`

	// Path is the SQLite database file path (sqlite backend only).
	Path string `yaml:"path"`

	// BusyTimeout is the SQLite lock wait duration.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DefinitionsConfig configures asset definition loading.
type DefinitionsConfig struct {
	// Path is the YAML asset definitions file.
	Path string `yaml:"path"`

	// Watch reloads definitions when the file changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the wait after a file change before reloading,
	// collapsing editor write bursts into one reload.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// OutboxConfig configures the durable request outbox.
type OutboxConfig struct {
	// Enabled turns the SQLite outbox sink on.
	Enabled bool `yaml:"enabled"`

	// Path is the outbox database file path.
	Path string `yaml:"path"`
}
