package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// HistoryMetrics tracks metrics for the evaluation history store.
//
// Metrics:
//   - callisto_history_operations_total: Store operations by type and status
//   - callisto_history_operation_duration_seconds: Store operation latency
//   - callisto_history_records_committed_total: Records persisted
type HistoryMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	recordsCommitted  prometheus.Counter
}

// NewHistoryMetrics creates and registers history store metrics with the
// provided registry.
func NewHistoryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HistoryMetrics {
	hm := &HistoryMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "history_operations_total",
				Help:      "Total number of history store operations by type and status",
			},
			[]string{"operation", "status"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "history_operation_duration_seconds",
				Help:      "Duration of history store operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"operation"},
		),

		recordsCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "history_records_committed_total",
				Help:      "Total number of evaluation records persisted",
			},
		),
	}

	registry.MustRegister(
		hm.operationsTotal,
		hm.operationDuration,
		hm.recordsCommitted,
	)

	return hm
}

// RecordOperation records a history store operation.
//
// Parameters:
//   - operation: Operation name ("commit", "latest", "query")
//   - status: Operation status ("success", "error")
//   - duration: Operation duration
func (hm *HistoryMetrics) RecordOperation(operation, status string, duration time.Duration) {
	hm.operationsTotal.WithLabelValues(operation, status).Inc()
	hm.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCommitted adds to the count of persisted evaluation records.
func (hm *HistoryMetrics) RecordCommitted(count int) {
	hm.recordsCommitted.Add(float64(count))
}
