// Package facts provides the immutable per-tick snapshot of external state
// consulted by operand evaluators: run statuses, materialization sequence
// numbers and code versions. Snapshots are assembled before a tick begins so
// the evaluation phase itself performs no external lookups.
package facts

import (
	"time"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/partition"
)

// Snapshot is a read-only view of run/materialization state at one point in
// time. It is safe for concurrent use.
type Snapshot struct {
	evaluationTime time.Time
	materialized   map[asset.Key]partition.Subset
	inProgress     map[asset.Key]partition.Subset
	failed         map[asset.Key]partition.Subset
	updateSeqs     map[asset.Key]map[partition.Key]uint64
}

// EvaluationTime returns the snapshot's evaluation time.
func (s *Snapshot) EvaluationTime() time.Time {
	return s.evaluationTime
}

// Materialized returns the partitions of key with at least one completed
// successful materialization.
func (s *Snapshot) Materialized(key asset.Key) partition.Subset {
	return s.materialized[key]
}

// InProgress returns the partitions of key included in an unfinished run.
func (s *Snapshot) InProgress(key asset.Key) partition.Subset {
	return s.inProgress[key]
}

// Failed returns the partitions of key whose latest completed run failed.
func (s *Snapshot) Failed(key asset.Key) partition.Subset {
	return s.failed[key]
}

// UpdateSeq returns the monotone materialization sequence number of a single
// partition of key, or zero if it has never been materialized. Sequence
// numbers order materialization events across ticks without comparing
// wall-clock timestamps.
func (s *Snapshot) UpdateSeq(key asset.Key, p partition.Key) uint64 {
	return s.updateSeqs[key][p]
}

// UpdateSeqs returns a copy of the per-partition materialization sequence
// numbers of key, for recording into the tick's evaluation record.
func (s *Snapshot) UpdateSeqs(key asset.Key) map[partition.Key]uint64 {
	src := s.updateSeqs[key]
	if len(src) == 0 {
		return nil
	}
	out := make(map[partition.Key]uint64, len(src))
	for p, seq := range src {
		out[p] = seq
	}
	return out
}

// NewlyUpdatedSince returns the partitions of key whose materialization
// sequence advanced beyond the given prior sequence numbers. A nil prior map
// yields the empty subset: with nothing recorded to compare against, nothing
// counts as newly updated.
func (s *Snapshot) NewlyUpdatedSince(key asset.Key, prior map[partition.Key]uint64) partition.Subset {
	if prior == nil {
		return partition.Empty()
	}
	var keys []partition.Key
	for p, seq := range s.updateSeqs[key] {
		if seq > prior[p] {
			keys = append(keys, p)
		}
	}
	return partition.NewSubset(keys...)
}

// Builder assembles a Snapshot. Not safe for concurrent use; the built
// snapshot is.
type Builder struct {
	snapshot Snapshot
}

// NewBuilder creates a snapshot builder with the given evaluation time.
func NewBuilder(evaluationTime time.Time) *Builder {
	return &Builder{snapshot: Snapshot{
		evaluationTime: evaluationTime,
		materialized:   make(map[asset.Key]partition.Subset),
		inProgress:     make(map[asset.Key]partition.Subset),
		failed:         make(map[asset.Key]partition.Subset),
		updateSeqs:     make(map[asset.Key]map[partition.Key]uint64),
	}}
}

// WithMaterialized records a completed successful materialization of the
// given partitions at the given sequence number.
func (b *Builder) WithMaterialized(key asset.Key, seq uint64, parts ...partition.Key) *Builder {
	b.snapshot.materialized[key] = b.snapshot.materialized[key].Union(partition.NewSubset(parts...))
	seqs := b.snapshot.updateSeqs[key]
	if seqs == nil {
		seqs = make(map[partition.Key]uint64)
		b.snapshot.updateSeqs[key] = seqs
	}
	for _, p := range parts {
		if seq > seqs[p] {
			seqs[p] = seq
		}
	}
	return b
}

// WithInProgress records the given partitions as included in an unfinished
// run.
func (b *Builder) WithInProgress(key asset.Key, parts ...partition.Key) *Builder {
	b.snapshot.inProgress[key] = b.snapshot.inProgress[key].Union(partition.NewSubset(parts...))
	return b
}

// WithFailed records the given partitions as having a failed latest run.
func (b *Builder) WithFailed(key asset.Key, parts ...partition.Key) *Builder {
	b.snapshot.failed[key] = b.snapshot.failed[key].Union(partition.NewSubset(parts...))
	return b
}

// Build finalizes the snapshot. The builder must not be reused afterwards.
func (b *Builder) Build() *Snapshot {
	s := b.snapshot
	return &s
}
