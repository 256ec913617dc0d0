package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// Collector owns the Prometheus registry and the metric families of the
// evaluation daemon. It provides a unified interface for recording metrics
// across all components.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Evaluation tick metrics
	evaluationMetrics *EvaluationMetrics

	// History store metrics
	historyMetrics *HistoryMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a private
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		config:            cfg,
		registry:          registry,
		evaluationMetrics: NewEvaluationMetrics(cfg, registry),
		historyMetrics:    NewHistoryMetrics(cfg, registry),
	}
}

// Evaluation returns the evaluation tick metrics.
func (c *Collector) Evaluation() *EvaluationMetrics {
	return c.evaluationMetrics
}

// History returns the history store metrics.
func (c *Collector) History() *HistoryMetrics {
	return c.historyMetrics
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
