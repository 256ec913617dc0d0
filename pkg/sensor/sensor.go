package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// FactSource captures a point-in-time fact snapshot for one evaluation tick:
// which partitions are materialized, in progress, or failed, and the
// materialization sequence numbers.
type FactSource interface {
	Snapshot(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error)
}

// FactSourceFunc adapts a function to the FactSource interface.
type FactSourceFunc func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error)

// Snapshot calls f.
func (f FactSourceFunc) Snapshot(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
	return f(ctx, evaluationTime)
}

// Options configures a Sensor.
type Options struct {
	// Schedule is the cron expression driving ticks (e.g. "* * * * *").
	Schedule string

	// Engine runs the evaluation passes. Replaceable at runtime via
	// SwapEngine when definitions reload.
	Engine *engine.Engine

	// Source captures fact snapshots.
	Source FactSource

	// Sinks receive the requested partitions of each tick. When empty,
	// requests are only visible through evaluation records.
	Sinks []RequestSink

	// Logger is required.
	Logger *logging.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.EvaluationMetrics
}

// Sensor drives evaluation ticks on a cron schedule. Each tick captures a
// fact snapshot, runs one engine evaluation pass, and dispatches the
// requested partitions to the configured sinks.
type Sensor struct {
	schedule string
	source   FactSource
	sinks    []RequestSink
	logger   *logging.Logger
	metrics  *metrics.EvaluationMetrics

	cron *cron.Cron

	mu      sync.Mutex
	engine  *engine.Engine
	running bool
}

// New creates a sensor from options.
func New(opts Options) (*Sensor, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("fact source cannot be nil")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid tick schedule %q: %w", opts.Schedule, err)
	}

	return &Sensor{
		schedule: opts.Schedule,
		source:   opts.Source,
		sinks:    opts.Sinks,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		cron:     cron.New(),
		engine:   opts.Engine,
	}, nil
}

// Start begins scheduled evaluation. The loop stops when ctx is cancelled or
// Stop is called.
func (s *Sensor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sensor already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunTick(ctx, time.Now().UTC())
	}); err != nil {
		return fmt.Errorf("failed to schedule ticks: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("sensor started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the schedule and waits for a running tick to finish. The mutex
// is released before the drain wait: a tick dispatched in the shutdown window
// still needs it to read the engine.
func (s *Sensor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCtx := s.cron.Stop()
	s.mu.Unlock()

	<-stopCtx.Done()
	s.logger.Info("sensor stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Sensor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextTick returns the next scheduled tick time, or false when not running.
func (s *Sensor) NextTick() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Next, true
}

// SwapEngine replaces the engine, typically after a definitions reload. The
// next tick uses the new engine; a tick already in flight finishes on the
// old one.
func (s *Sensor) SwapEngine(e *engine.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = e
}

// RunTick runs a single evaluation tick at the given evaluation time and
// returns its result. Scheduled ticks call this internally; it is also the
// entry point for one-shot command line evaluation.
func (s *Sensor) RunTick(ctx context.Context, evaluationTime time.Time) (*engine.Result, error) {
	s.mu.Lock()
	eng := s.engine
	s.mu.Unlock()

	start := time.Now()

	snapshot, err := s.source.Snapshot(ctx, evaluationTime)
	if err != nil {
		s.logger.ErrorContext(ctx, "fact snapshot failed", "error", err)
		s.recordTick("error", time.Since(start), nil)
		return nil, fmt.Errorf("capturing fact snapshot: %w", err)
	}

	result, err := eng.Evaluate(ctx, snapshot)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrTickAbandoned):
			s.logger.WarnContext(ctx, "tick abandoned", "error", err)
			s.recordTick("abandoned", time.Since(start), nil)
		default:
			var cfgErr *engine.ConfigurationError
			if errors.As(err, &cfgErr) && s.metrics != nil {
				s.metrics.RecordCapRejection()
			}
			s.logger.ErrorContext(ctx, "tick failed", "error", err)
			s.recordTick("error", time.Since(start), nil)
		}
		return nil, err
	}

	s.recordTick("success", time.Since(start), result)

	for _, sink := range s.sinks {
		if err := sink.Dispatch(ctx, result); err != nil {
			// Records are already committed; a sink failure loses only
			// this delivery, not evaluation state.
			s.logger.ErrorContext(ctx, "request sink dispatch failed",
				"tick_id", result.TickID,
				"error", err,
			)
		}
	}

	return result, nil
}

func (s *Sensor) recordTick(status string, elapsed time.Duration, result *engine.Result) {
	if s.metrics == nil {
		return
	}
	var entities, partitions, warnings int
	if result != nil {
		entities = len(result.Records)
		warnings = len(result.Warnings)
		for _, subset := range result.Requests {
			partitions += subset.Len()
		}
		for range result.Skipped {
			s.metrics.RecordSkipped("custom_condition_disabled")
		}
	}
	s.metrics.RecordTick(status, elapsed, entities, partitions, warnings)
}
