// Package engine evaluates automation conditions across the asset dependency
// graph, one tick at a time, and produces the request subsets: the partitions
// of each target to materialize or check as a result of the tick.
//
// # Architecture
//
// The engine is an interpreter over condition trees (package ast) with three
// layers:
//
//  1. Operand evaluators: pure leaf predicates over the tick's immutable
//     fact snapshot and the previous tick's record
//  2. Operator combinators: boolean and temporal operators, including
//     candidate narrowing with short-circuit for AND
//  3. Driver: orchestrates one tick across the graph in condition-reference
//     order, memoizes per-entity results, and commits records at completion
//
// # Evaluation Flow
//
//	facts.Snapshot (prefetched, immutable)
//	       ↓
//	For each wave of the condition-reference schedule:
//	  For each target in the wave (parallel, bounded):
//	    pending → evaluating → done(subset)
//	    evaluate condition root against the full partition space
//	       ↓
//	Commit history records (atomic, only on completed ticks)
//	       ↓
//	Result: request subsets + records + warnings
//
// # Candidate Narrowing
//
// Evaluation passes a candidate subset down the tree. AND evaluates its
// children in order against the running intersection and skips the rest
// outright once it is empty, so expensive sub-conditions (custom user
// operands in particular) are never invoked for partitions that already
// failed an earlier conjunct. NOT complements within the candidate, never
// the full partition space.
//
// # Error Containment
//
// A failing operand (a custom evaluator returning an error or panicking,
// an unparsable cron expression) is contained at its node: the node yields
// the empty subset and a warning is attached to the target's record.
// Node-level failures never cross the target boundary. Fatal for the whole
// pass are only: a cycle in the condition-reference graph (detected at
// construction), and the per-pass entity cap.
//
// # Cross-Tick State
//
// Temporal operators (newly_true, since) and comparison operands
// (newly_updated, newly_requested, code_version_changed, cron_tick_passed,
// initial_evaluation) read the previous tick's record from the history
// store. Records are committed only when a tick completes; an abandoned
// tick leaves the previous record in place, keeping temporal operators
// consistent.
package engine
