// Package ast defines the automation condition tree: the boolean/temporal
// expression attached to an asset or check that decides, per partition and
// per evaluation tick, whether the target should be requested.
//
// Conditions are built with combinators (Missing, And, Or, Not, NewlyTrue,
// Since, AnyDepsMatch, ...) and are immutable once built. The tree is stored
// as an arena of nodes indexed by NodeID rather than by nested ownership, so
// evaluators can key memoized sub-results and cross-tick temporal state by
// node id cheaply. Combining two conditions copies their nodes into the new
// arena: structurally identical subtrees are distinct evaluation instances.
//
// The package describes only what to evaluate. Evaluation itself lives in
// the engine package.
package ast
