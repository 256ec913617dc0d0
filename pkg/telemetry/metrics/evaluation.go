package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// EvaluationMetrics tracks metrics for the evaluation tick loop.
//
// Metrics:
//   - callisto_ticks_total: Total tick count by status
//   - callisto_tick_duration_seconds: Tick duration histogram
//   - callisto_entities_evaluated_total: Total entities evaluated
//   - callisto_entities_skipped_total: Entities skipped by reason
//   - callisto_partitions_requested_total: Partitions requested per tick
//   - callisto_evaluation_warnings_total: Contained operand warnings
//   - callisto_cap_rejections_total: Ticks rejected by the entity cap
type EvaluationMetrics struct {
	ticksTotal          *prometheus.CounterVec
	tickDuration        prometheus.Histogram
	entitiesEvaluated   prometheus.Counter
	entitiesSkipped     *prometheus.CounterVec
	partitionsRequested prometheus.Counter
	warningsTotal       prometheus.Counter
	capRejections       prometheus.Counter
}

// NewEvaluationMetrics creates and registers evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "ticks_total",
				Help:      "Total number of evaluation ticks by status",
			},
			[]string{"status"},
		),

		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "tick_duration_seconds",
				Help:      "Duration of evaluation ticks in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
		),

		entitiesEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "entities_evaluated_total",
				Help:      "Total number of entities evaluated across all ticks",
			},
		),

		entitiesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "entities_skipped_total",
				Help:      "Total number of entities skipped by reason",
			},
			[]string{"reason"},
		),

		partitionsRequested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "partitions_requested_total",
				Help:      "Total number of partitions requested across all ticks",
			},
		),

		warningsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluation_warnings_total",
				Help:      "Total number of contained evaluation warnings",
			},
		),

		capRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cap_rejections_total",
				Help:      "Total number of ticks rejected by the entity cap",
			},
		),
	}

	registry.MustRegister(
		em.ticksTotal,
		em.tickDuration,
		em.entitiesEvaluated,
		em.entitiesSkipped,
		em.partitionsRequested,
		em.warningsTotal,
		em.capRejections,
	)

	return em
}

// RecordTick records metrics for a completed evaluation tick.
//
// Parameters:
//   - status: Tick status ("success", "error", "abandoned")
//   - duration: Tick duration
//   - entities: Number of entities evaluated
//   - partitions: Number of partitions requested
//   - warnings: Number of contained warnings
func (em *EvaluationMetrics) RecordTick(status string, duration time.Duration, entities, partitions, warnings int) {
	em.ticksTotal.WithLabelValues(status).Inc()
	em.tickDuration.Observe(duration.Seconds())
	em.entitiesEvaluated.Add(float64(entities))
	em.partitionsRequested.Add(float64(partitions))
	em.warningsTotal.Add(float64(warnings))
}

// RecordSkipped records an entity skipped for the given reason
// (e.g. "custom_condition_disabled").
func (em *EvaluationMetrics) RecordSkipped(reason string) {
	em.entitiesSkipped.WithLabelValues(reason).Inc()
}

// RecordCapRejection records a tick rejected by the entity cap.
func (em *EvaluationMetrics) RecordCapRejection() {
	em.capRejections.Inc()
}
