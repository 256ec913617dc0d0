package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/partition"
)

// ErrStoreClosed indicates an operation on a closed store.
var ErrStoreClosed = errors.New("history store closed")

// Record is the durable outcome of evaluating one target on one tick: the
// request subset produced, plus the sub-results and fact cursors the next
// tick's temporal operators need.
type Record struct {
	// ID uniquely identifies the record.
	ID string

	// TickID identifies the evaluation tick that produced the record.
	TickID string

	// TickIndex is the monotone tick counter, shared by all records of a
	// tick. Later ticks have strictly larger indexes.
	TickIndex uint64

	// AssetKey is the evaluated target.
	AssetKey asset.Key

	// EvaluationTime is the tick's snapshot time.
	EvaluationTime time.Time

	// ConditionFingerprint is the structural hash of the condition tree the
	// record was produced by. A mismatch on the next tick means the
	// condition was edited and temporal state must not be reused.
	ConditionFingerprint uint64

	// CodeVersion is the target's code version at evaluation time.
	CodeVersion string

	// RequestSubset is the root result: the partitions requested this tick.
	RequestSubset partition.Subset

	// SubResults holds per-node true-subsets needed by the next tick,
	// keyed by node state key (node id, qualified by parent for
	// dependency-mapped sub-evaluations).
	SubResults map[string]partition.Subset

	// UpdateSeqs are the materialization sequence numbers observed this
	// tick, keyed by asset: the target itself plus the ancestors its
	// condition watches. The comparison point for newly_updated on the
	// next tick.
	UpdateSeqs map[asset.Key]map[partition.Key]uint64

	// Warnings are non-fatal evaluation problems attached to this target's
	// tick (contained operand failures, skipped custom conditions, ...).
	Warnings []string
}

// StorageError wraps a backend failure with the backend name and operation.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("history %s: %s: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Query filters records for history display.
type Query struct {
	// AssetKey restricts to a single target when non-empty.
	AssetKey asset.Key

	// StartTime / EndTime bound EvaluationTime when non-nil.
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the number of returned records; zero means no cap.
	Limit int
}

// Store persists evaluation records across ticks.
//
// Latest returns the most recent record for a target, or nil when the target
// has never been evaluated. Commit atomically appends all records of one
// completed tick; a tick that does not commit leaves no trace.
type Store interface {
	Latest(ctx context.Context, key asset.Key) (*Record, error)
	Commit(ctx context.Context, records []*Record) error
	Query(ctx context.Context, q *Query) ([]*Record, error)
	Close() error
}
