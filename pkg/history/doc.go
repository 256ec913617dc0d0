// Package history stores per-target evaluation records across ticks.
//
// The store is the cross-tick memory of the automation engine: each tick
// reads the latest record per target to serve temporal operators
// (newly_true, since, newly_updated, ...) and commits a fresh batch of
// records only when the tick completes. Records are append-only
// and superseded rather than mutated; an abandoned tick commits nothing, so
// a partially evaluated tick can never leak into the next tick's view.
//
// Two backends are provided: MemoryStore for tests and single-process use,
// and SQLiteStore for durable history that survives daemon restarts.
package history
