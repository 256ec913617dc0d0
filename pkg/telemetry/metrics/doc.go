// Package metrics provides Prometheus metrics for the evaluation daemon.
//
// # Overview
//
// The metrics package tracks the behavior of the evaluation tick loop and
// the history store:
//
//   - Tick counts, durations, and abandonments
//   - Entities evaluated and skipped
//   - Partitions requested per tick
//   - Contained evaluation warnings
//   - History store operation latency
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//
//	// Record a completed tick
//	collector.Evaluation().RecordTick("success", elapsed, entities, partitions, warnings)
//
//	// Expose the endpoint
//	http.Handle("/metrics", collector.Handler())
//
// All metrics are registered on a private registry so tests can create
// collectors without global registration conflicts.
package metrics
