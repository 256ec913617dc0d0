// Package telemetry provides observability for the callisto daemon.
//
// # Components
//
//   - logging: Structured logging via log/slog with tick and asset context
//   - metrics: Prometheus metrics for the tick loop and history store
//   - health: Liveness and readiness probe endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	collector.Evaluation().RecordTick("success", elapsed, entities, partitions, warnings)
//
//	checker := health.New(0)
//	http.Handle("/healthz", checker.LivenessHandler())
//	http.Handle("/readyz", checker.ReadinessHandler())
//	http.Handle("/metrics", collector.Handler())
package telemetry
