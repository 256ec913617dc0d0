package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
  format: "text"

metrics:
  enabled: true
  listen_address: ":9200"

sensor:
  tick_schedule: "*/5 * * * *"
  max_entities: 100
  max_parallel: 4

history:
  backend: "sqlite"
  path: "./history.db"
  busy_timeout: "10s"

definitions:
  path: "./defs.yaml"
  watch: true
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected logging format %q, got %q", "text", cfg.Logging.Format)
	}
	if cfg.Metrics.ListenAddress != ":9200" {
		t.Errorf("expected metrics address %q, got %q", ":9200", cfg.Metrics.ListenAddress)
	}
	if cfg.Sensor.TickSchedule != "*/5 * * * *" {
		t.Errorf("expected tick schedule %q, got %q", "*/5 * * * *", cfg.Sensor.TickSchedule)
	}
	if cfg.Sensor.MaxEntities != 100 {
		t.Errorf("expected max entities 100, got %d", cfg.Sensor.MaxEntities)
	}
	if cfg.History.Backend != HistorySQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.History.Backend)
	}
	if cfg.History.BusyTimeout != 10*time.Second {
		t.Errorf("expected busy timeout %v, got %v", 10*time.Second, cfg.History.BusyTimeout)
	}
	if !cfg.Definitions.Watch {
		t.Error("expected definitions watch to be enabled")
	}

	// Defaults fill in the fields the file omits.
	if cfg.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("expected default namespace %q, got %q", DefaultMetricsNamespace, cfg.Metrics.Namespace)
	}
	if cfg.Definitions.DebounceInterval != DefaultDebounceInterval {
		t.Errorf("expected default debounce %v, got %v", DefaultDebounceInterval, cfg.Definitions.DebounceInterval)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	malformedContent := `
logging:
  level: "info"
  invalid yaml here: [
`

	if err := os.WriteFile(configPath, []byte(malformedContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default configuration should validate: %v", err)
	}
	if cfg.Sensor.MaxEntities != DefaultMaxEntities {
		t.Errorf("expected default max entities %d, got %d", DefaultMaxEntities, cfg.Sensor.MaxEntities)
	}
	if cfg.History.Backend != HistoryMemory {
		t.Errorf("expected default backend %q, got %q", HistoryMemory, cfg.History.Backend)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantSub string
	}{
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantSub: "logging level",
		},
		{
			name:    "invalid log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantSub: "logging format",
		},
		{
			name:    "invalid tick schedule",
			mutate:  func(cfg *Config) { cfg.Sensor.TickSchedule = "not a cron" },
			wantSub: "tick schedule",
		},
		{
			name:    "zero max entities",
			mutate:  func(cfg *Config) { cfg.Sensor.MaxEntities = -1 },
			wantSub: "max entities",
		},
		{
			name:    "zero max parallel",
			mutate:  func(cfg *Config) { cfg.Sensor.MaxParallel = -1 },
			wantSub: "max parallel",
		},
		{
			name:    "unknown history backend",
			mutate:  func(cfg *Config) { cfg.History.Backend = "postgres" },
			wantSub: "history backend",
		},
		{
			name: "sqlite backend without path",
			mutate: func(cfg *Config) {
				cfg.History.Backend = HistorySQLite
				cfg.History.Path = ""
			},
			wantSub: "history path",
		},
		{
			name: "outbox enabled without path",
			mutate: func(cfg *Config) {
				cfg.Sensor.Outbox.Enabled = true
				cfg.Sensor.Outbox.Path = ""
			},
			wantSub: "outbox path",
		},
		{
			name:    "missing definitions path",
			mutate:  func(cfg *Config) { cfg.Definitions.Path = "" },
			wantSub: "definitions path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error containing %q, got: %v", tt.wantSub, err)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "info"
sensor:
  max_entities: 100
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CALLISTO_LOGGING_LEVEL", "warn")
	t.Setenv("CALLISTO_SENSOR_MAX_ENTITIES", "250")
	t.Setenv("CALLISTO_DEFINITIONS_WATCH", "true")

	cfg, err := LoadWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env-overridden level %q, got %q", "warn", cfg.Logging.Level)
	}
	if cfg.Sensor.MaxEntities != 250 {
		t.Errorf("expected env-overridden max entities 250, got %d", cfg.Sensor.MaxEntities)
	}
	if !cfg.Definitions.Watch {
		t.Error("expected env-overridden watch to be true")
	}
}

func TestLoadWithEnvOverrides_InvalidOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CALLISTO_HISTORY_BACKEND", "etcd")

	if _, err := LoadWithEnvOverrides(configPath); err == nil {
		t.Error("expected validation error for invalid backend override")
	}
}
