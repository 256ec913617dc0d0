// Package asset models the directed dependency graph that automation
// conditions are evaluated over: asset/check keys, partition definitions,
// dependency edges with partition mappings, and allow/ignore selections.
//
// The graph is static for the duration of an evaluation tick. It must be
// acyclic; Graph.TopoOrder detects cycles up front so a tick never begins
// against a cyclic configuration.
package asset
