package sensor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

type captureSink struct {
	mu      sync.Mutex
	results []*engine.Result
	fail    bool
}

func (s *captureSink) Dispatch(ctx context.Context, result *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.results = append(s.results, result)
	return nil
}

func (s *captureSink) Close() error { return nil }

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()

	graph, err := asset.NewGraph([]*asset.Def{
		{Key: "reports/daily"},
	})
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	conditions := map[asset.Key]*ast.Condition{
		"reports/daily": ast.Missing(),
	}

	logger, err := logging.New(logging.Config{Level: "error"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	eng, err := engine.New(engine.DefaultConfig(), graph, conditions, history.NewMemoryStore(), engine.NewRegistry(), logger.Slog())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "error"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func emptySource() FactSource {
	return FactSourceFunc(func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
		return facts.NewBuilder(evaluationTime).Build(), nil
	})
}

func TestNew_Validation(t *testing.T) {
	eng := testEngine(t)
	logger := testLogger(t)

	tests := []struct {
		name string
		opts Options
	}{
		{
			name: "nil engine",
			opts: Options{Schedule: "* * * * *", Source: emptySource(), Logger: logger},
		},
		{
			name: "nil source",
			opts: Options{Schedule: "* * * * *", Engine: eng, Logger: logger},
		},
		{
			name: "nil logger",
			opts: Options{Schedule: "* * * * *", Engine: eng, Source: emptySource()},
		},
		{
			name: "bad schedule",
			opts: Options{Schedule: "often", Engine: eng, Source: emptySource(), Logger: logger},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("expected constructor error")
			}
		})
	}
}

func TestRunTick_DispatchesRequests(t *testing.T) {
	sink := &captureSink{}
	s, err := New(Options{
		Schedule: "* * * * *",
		Engine:   testEngine(t),
		Source:   emptySource(),
		Sinks:    []RequestSink{sink},
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	evalTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result, err := s.RunTick(context.Background(), evalTime)
	if err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	// The only target is missing, so its implicit partition is requested.
	if len(result.Requests) != 1 {
		t.Fatalf("expected 1 requested target, got %d", len(result.Requests))
	}
	if _, ok := result.Requests["reports/daily"]; !ok {
		t.Fatalf("expected reports/daily to be requested, got %v", result.Requests)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.results) != 1 {
		t.Fatalf("expected 1 dispatched result, got %d", len(sink.results))
	}
	if sink.results[0].TickID != result.TickID {
		t.Errorf("sink received a different tick: %q vs %q", sink.results[0].TickID, result.TickID)
	}
}

func TestRunTick_SinkFailureDoesNotFailTick(t *testing.T) {
	sink := &captureSink{fail: true}
	s, err := New(Options{
		Schedule: "* * * * *",
		Engine:   testEngine(t),
		Source:   emptySource(),
		Sinks:    []RequestSink{sink},
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	if _, err := s.RunTick(context.Background(), time.Now().UTC()); err != nil {
		t.Errorf("tick should succeed despite sink failure, got: %v", err)
	}
}

func TestRunTick_SourceError(t *testing.T) {
	failing := FactSourceFunc(func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
		return nil, errors.New("facts unavailable")
	})

	s, err := New(Options{
		Schedule: "* * * * *",
		Engine:   testEngine(t),
		Source:   failing,
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	if _, err := s.RunTick(context.Background(), time.Now().UTC()); err == nil {
		t.Error("expected tick to fail when the fact source fails")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(Options{
		Schedule: "* * * * *",
		Engine:   testEngine(t),
		Source:   emptySource(),
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected sensor to be running")
	}
	if _, ok := s.NextTick(); !ok {
		t.Error("expected a next tick time while running")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("expected sensor to be stopped")
	}
	// Stop is idempotent.
	s.Stop()
}

func TestRunTick_RecordsSkippedTargets(t *testing.T) {
	graph, err := asset.NewGraph([]*asset.Def{{Key: "a"}})
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	logger := testLogger(t)
	// Custom conditions are disabled by default, so the target is skipped.
	eng, err := engine.New(engine.DefaultConfig(), graph,
		map[asset.Key]*ast.Condition{"a": ast.Custom("external")},
		history.NewMemoryStore(), engine.NewRegistry(), logger.Slog())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	collector := metrics.NewCollector(&config.MetricsConfig{Namespace: "test"}, nil)
	s, err := New(Options{
		Schedule: "* * * * *",
		Engine:   eng,
		Source:   emptySource(),
		Logger:   logger,
		Metrics:  collector.Evaluation(),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	if _, err := s.RunTick(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	expected := `
# HELP test_entities_skipped_total Total number of entities skipped by reason
# TYPE test_entities_skipped_total counter
test_entities_skipped_total{reason="custom_condition_disabled"} 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"test_entities_skipped_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestStop_ReturnsWithTickInFlight(t *testing.T) {
	replacement := testEngine(t)

	inFlight := make(chan struct{})
	release := make(chan struct{})

	var s *Sensor
	source := FactSourceFunc(func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
		select {
		case inFlight <- struct{}{}:
		default:
		}
		<-release
		// A reload landing mid-tick takes the sensor mutex; it must not
		// block against a concurrent Stop waiting for this tick.
		s.SwapEngine(replacement)
		return facts.NewBuilder(evaluationTime).Build(), nil
	})

	s, err := New(Options{
		Schedule: "@every 10ms",
		Engine:   testEngine(t),
		Source:   source,
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Wait for a scheduled tick to be pinned inside its snapshot.
	<-inFlight

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Let Stop reach its drain wait before the tick proceeds.
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a tick was in flight")
	}
	if s.IsRunning() {
		t.Error("expected sensor to be stopped")
	}
}

func TestSwapEngine(t *testing.T) {
	s, err := New(Options{
		Schedule: "* * * * *",
		Engine:   testEngine(t),
		Source:   emptySource(),
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}

	// Second engine with an unpartitioned target already materialized: the
	// swapped-in graph requests nothing.
	graph, err := asset.NewGraph([]*asset.Def{{Key: "other"}})
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	logger := testLogger(t)
	replacement, err := engine.New(engine.DefaultConfig(), graph,
		map[asset.Key]*ast.Condition{"other": ast.Missing()},
		history.NewMemoryStore(), engine.NewRegistry(), logger.Slog())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	s.SwapEngine(replacement)

	result, err := s.RunTick(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if _, ok := result.Requests["other"]; !ok {
		t.Errorf("expected swapped engine to evaluate its own targets, got %v", result.Requests)
	}
}
