package sensor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/partition"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

func testResult() *engine.Result {
	return &engine.Result{
		TickID:         "tick-1",
		TickIndex:      3,
		EvaluationTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Requests: map[asset.Key]partition.Subset{
			"reports/daily": partition.NewSubset("2026-02-28", "2026-02-27"),
			"raw/events":    partition.Single(partition.DefaultKey),
		},
	}
}

func TestLogSink_Dispatch(t *testing.T) {
	logger, err := logging.New(logging.Config{Level: "debug"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	sink := NewLogSink(logger)
	if err := sink.Dispatch(context.Background(), testResult()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestSQLiteOutbox_DispatchAndDrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	outbox, err := NewSQLiteOutbox(path, time.Second)
	if err != nil {
		t.Fatalf("failed to open outbox: %v", err)
	}
	defer outbox.Close()

	ctx := context.Background()
	if err := outbox.Dispatch(ctx, testResult()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	pending, err := outbox.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending requests, got %d", len(pending))
	}

	// Rows are ordered by insertion; targets are inserted in sorted key
	// order so raw/events comes first.
	if pending[0].AssetKey != "raw/events" {
		t.Errorf("expected raw/events first, got %q", pending[0].AssetKey)
	}
	if pending[0].TickID != "tick-1" || pending[0].TickIndex != 3 {
		t.Errorf("unexpected tick identity: %+v", pending[0])
	}
	if !pending[0].RequestedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected requested_at: %v", pending[0].RequestedAt)
	}

	// Mark two dispatched and verify only one remains pending.
	if err := outbox.MarkDispatched(ctx, pending[0].ID, pending[1].ID); err != nil {
		t.Fatalf("mark dispatched failed: %v", err)
	}
	remaining, err := outbox.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(remaining))
	}

	// Prune removes dispatched rows older than the cutoff.
	deleted, err := outbox.Prune(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 pruned rows, got %d", deleted)
	}
}

func TestSQLiteOutbox_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	outbox, err := NewSQLiteOutbox(path, 0)
	if err != nil {
		t.Fatalf("failed to open outbox: %v", err)
	}
	defer outbox.Close()

	ctx := context.Background()
	result := &engine.Result{TickID: "tick-2", EvaluationTime: time.Now()}
	if err := outbox.Dispatch(ctx, result); err != nil {
		t.Fatalf("dispatch of empty result failed: %v", err)
	}

	pending, err := outbox.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending requests, got %d", len(pending))
	}
}

func TestSQLiteOutbox_ClosedRejectsDispatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	outbox, err := NewSQLiteOutbox(path, 0)
	if err != nil {
		t.Fatalf("failed to open outbox: %v", err)
	}
	if err := outbox.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := outbox.Dispatch(context.Background(), testResult()); err == nil {
		t.Error("expected error dispatching to closed outbox")
	}
}

func TestSQLiteOutbox_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteOutbox("", 0); err == nil {
		t.Error("expected error for empty outbox path")
	}
}
