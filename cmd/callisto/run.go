package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/sensor"
	"mercator-hq/callisto/pkg/telemetry/health"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	facts    string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the evaluation daemon",
	Long: `Start the evaluation daemon with the specified configuration.

The daemon loads asset definitions, evaluates automation conditions on the
configured tick schedule, and dispatches requested partitions to the
configured sinks.

Examples:
  # Start with default config
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/config.yaml

  # Serve snapshots from a static facts file (useful for local testing)
  callisto run --facts facts.yaml

  # Validate config without starting the daemon
  callisto run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.facts, "facts", "", "static facts file served on every tick")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Metrics and probes
	var collector *metrics.Collector
	checker := health.New(0)
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics, nil)
		go serveTelemetry(cfg, collector, checker, logger)
		fmt.Printf("✓ Telemetry listening on %s\n", cfg.Metrics.ListenAddress)
	}

	// History store
	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()
	if collector != nil {
		store = history.Instrument(store, collector.History())
	}
	fmt.Printf("✓ History store ready (%s)\n", cfg.History.Backend)

	// Definitions
	defs, err := sensor.LoadDefinitions(cfg.Definitions.Path)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Printf("✓ Definitions loaded (%d assets, %d conditions)\n",
		defs.Graph.Len(), len(defs.Conditions))

	engineConfig := engine.DefaultConfig().
		WithMaxEntities(cfg.Sensor.MaxEntities).
		WithCustomConditions(cfg.Sensor.AllowCustomConditions).
		WithMaxParallel(cfg.Sensor.MaxParallel)
	registry := engine.NewRegistry()

	eng, err := engine.New(engineConfig, defs.Graph, defs.Conditions, store, registry, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Sinks
	sinks := []sensor.RequestSink{sensor.NewLogSink(logger)}
	if cfg.Sensor.Outbox.Enabled {
		outbox, err := sensor.NewSQLiteOutbox(cfg.Sensor.Outbox.Path, cfg.History.BusyTimeout)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer outbox.Close()
		sinks = append(sinks, outbox)
		fmt.Printf("✓ Request outbox ready (%s)\n", cfg.Sensor.Outbox.Path)
	}

	// Fact source
	source, err := buildFactSource(runFlags.facts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	opts := sensor.Options{
		Schedule: cfg.Sensor.TickSchedule,
		Engine:   eng,
		Source:   source,
		Sinks:    sinks,
		Logger:   logger,
	}
	if collector != nil {
		opts.Metrics = collector.Evaluation()
	}
	sens, err := sensor.New(opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	checker.Register("definitions", func(ctx context.Context) error {
		_, err := sensor.LoadDefinitions(cfg.Definitions.Path)
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sens.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer sens.Stop()

	// Definitions hot reload
	if cfg.Definitions.Watch {
		watcher, err := sensor.NewWatcher(cfg.Definitions.Path, cfg.Definitions.DebounceInterval, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go watcher.Watch(ctx, func() error {
			reloaded, err := sensor.LoadDefinitions(cfg.Definitions.Path)
			if err != nil {
				return err
			}
			replacement, err := engine.New(engineConfig, reloaded.Graph, reloaded.Conditions, store, registry, logger.Slog())
			if err != nil {
				return err
			}
			sens.SwapEngine(replacement)
			logger.Info("definitions reloaded",
				"assets", reloaded.Graph.Len(),
				"conditions", len(reloaded.Conditions),
			)
			return nil
		})
		defer watcher.Stop()
		fmt.Printf("✓ Watching %s for changes\n", cfg.Definitions.Path)
	}

	if next, ok := sens.NextTick(); ok {
		fmt.Printf("\n✓ Sensor running (schedule %q, next tick %s)\n",
			cfg.Sensor.TickSchedule, next.Format(time.RFC3339))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sig := <-cli.WaitForShutdown()
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
	return nil
}

func openStore(cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case config.HistorySQLite:
		sqliteConfig := history.DefaultSQLiteConfig()
		sqliteConfig.Path = cfg.History.Path
		sqliteConfig.BusyTimeout = cfg.History.BusyTimeout
		return history.NewSQLiteStore(sqliteConfig)
	case config.HistoryMemory:
		return history.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}
}

// buildFactSource returns the static facts file source when one is given,
// otherwise an empty source: every partition reads as never materialized
// until a real facts integration feeds the daemon.
func buildFactSource(factsPath string) (sensor.FactSource, error) {
	if factsPath != "" {
		return sensor.LoadFactsFile(factsPath)
	}
	return sensor.FactSourceFunc(func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
		return facts.NewBuilder(evaluationTime).Build(), nil
	}), nil
}

func serveTelemetry(cfg *config.Config, collector *metrics.Collector, checker *health.Checker, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(Version, GitCommit, BuildDate))

	server := &http.Server{
		Addr:         cfg.Metrics.ListenAddress,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("telemetry server failed", "error", err)
	}
}
