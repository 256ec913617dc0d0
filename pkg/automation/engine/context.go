package engine

import (
	"strconv"
	"time"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/partition"
)

// Context is the evaluation context of a single condition node: the target
// it is evaluated against, the candidate subset still under consideration,
// and read-only access to the tick snapshot and the previous tick's record.
//
// Contexts are derived top-down as evaluation descends the tree. The
// candidate subset only ever narrows along AND branches, never widens.
type Context struct {
	run    *tickRun
	entity *entityEval

	// cond is the condition tree the node belongs to; the tree of the
	// entity being evaluated, even when def is a dependency.
	cond *ast.Condition
	node ast.Node

	// def is the target the node is evaluated against. Dependency-mapping
	// operators switch it to the parent while keeping the owning entity's
	// record as state sink.
	def *asset.Def

	// prior is the owning entity's previous-tick record, nil on the first
	// evaluation or after the condition tree changed.
	prior *history.Record

	candidate partition.Subset

	// scope qualifies node state keys when evaluating dependency-mapped
	// sub-conditions, so the same node holds distinct cross-tick state per
	// parent.
	scope string

	// stack is the chain of entity keys being evaluated on demand, used to
	// refuse self-referential current-tick lookups.
	stack []asset.Key
}

// Target returns the asset or check the node is evaluated against.
func (c *Context) Target() *asset.Def {
	return c.def
}

// Candidate returns the candidate subset under consideration. Node results
// must be subsets of it.
func (c *Context) Candidate() partition.Subset {
	return c.candidate
}

// EvaluationTime returns the tick's snapshot time.
func (c *Context) EvaluationTime() time.Time {
	return c.run.snapshot.EvaluationTime()
}

// Snapshot returns the tick's immutable fact snapshot.
func (c *Context) Snapshot() *facts.Snapshot {
	return c.run.snapshot
}

// IsInitialEvaluation reports whether the owning entity has no usable
// previous-tick record.
func (c *Context) IsInitialEvaluation() bool {
	return c.prior == nil
}

// PriorEvaluationTime returns the previous tick's evaluation time, or false
// on the first evaluation.
func (c *Context) PriorEvaluationTime() (time.Time, bool) {
	if c.prior == nil {
		return time.Time{}, false
	}
	return c.prior.EvaluationTime, true
}

// stateKey returns the cross-tick state key of the current node.
func (c *Context) stateKey() string {
	return c.stateKeyFor(c.node.ID)
}

func (c *Context) stateKeyFor(id ast.NodeID) string {
	if c.scope == "" {
		return strconv.Itoa(int(id))
	}
	return c.scope + "#" + strconv.Itoa(int(id))
}

// priorSubResult returns the previous tick's recorded subset for the current
// node, or false when no usable prior state exists. Missing prior state is
// not an error: temporal operators degrade to their first-evaluation
// behavior.
func (c *Context) priorSubResult() (partition.Subset, bool) {
	if c.prior == nil {
		return partition.Empty(), false
	}
	subset, ok := c.prior.SubResults[c.stateKey()]
	return subset, ok
}

// recordSubResult persists the current node's result for the next tick.
func (c *Context) recordSubResult(result partition.Subset) {
	c.entity.subResults[c.stateKey()] = result
}

// addWarning attaches a non-fatal evaluation problem to the owning entity's
// tick record.
func (c *Context) addWarning(msg string) {
	c.entity.addWarning(msg)
}

// child derives the context for evaluating a child node with the given
// candidate.
func (c *Context) child(id ast.NodeID, candidate partition.Subset) *Context {
	out := *c
	out.node = c.cond.Node(id)
	out.candidate = candidate
	return &out
}

// forDependency derives the context for evaluating a child node against a
// parent target. The owning entity's record remains the state sink; state
// keys are qualified by the parent key.
func (c *Context) forDependency(id ast.NodeID, parent *asset.Def, candidate partition.Subset) *Context {
	out := *c
	out.node = c.cond.Node(id)
	out.def = parent
	out.candidate = candidate
	if out.scope == "" {
		out.scope = string(parent.Key)
	} else {
		out.scope = out.scope + "@" + string(parent.Key)
	}
	return &out
}
