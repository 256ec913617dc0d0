package ast

import (
	"time"

	"mercator-hq/callisto/pkg/asset"
)

// operand builds a single-leaf condition.
func operand(n Node) *Condition {
	n.Type = NodeOperand
	c := &Condition{}
	c.root = c.add(n)
	return c
}

// Missing is true for a partition iff it has no completed materialization
// and is not currently in progress.
func Missing() *Condition {
	return operand(Node{Operand: OperandMissing})
}

// InProgress is true for a partition iff it is included in an unfinished run.
func InProgress() *Condition {
	return operand(Node{Operand: OperandInProgress})
}

// Failed is true for a partition iff its latest completed run failed.
func Failed() *Condition {
	return operand(Node{Operand: OperandFailed})
}

// NewlyUpdated is true for a partition iff it was materialized since the
// previous evaluation tick. Empty on the first evaluation.
func NewlyUpdated() *Condition {
	return operand(Node{Operand: OperandNewlyUpdated})
}

// NewlyRequested is true for a partition iff it was requested by the
// previous evaluation tick. Empty on the first evaluation.
func NewlyRequested() *Condition {
	return operand(Node{Operand: OperandNewlyRequested})
}

// CodeVersionChanged is true iff the target's code version differs from the
// version recorded on the previous evaluation tick. Empty on the first
// evaluation.
func CodeVersionChanged() *Condition {
	return operand(Node{Operand: OperandCodeVersionChanged})
}

// CronTickPassed is true iff a tick of the given cron schedule occurred
// since the previous evaluation. Empty on the first evaluation.
func CronTickPassed(cronExpr, timezone string) *Condition {
	return operand(Node{Operand: OperandCronTickPassed, CronExpr: cronExpr, CronTimezone: timezone})
}

// InLatestTimeWindow restricts to partitions in the latest time window of a
// time-window partitioned target, widened by lookback when non-zero. For
// targets without time-window partitions it passes the candidate through.
func InLatestTimeWindow(lookback time.Duration) *Condition {
	return operand(Node{Operand: OperandInLatestTimeWindow, Lookback: lookback})
}

// WillBeRequested is true for a partition iff it is in the target's request
// subset for the current tick.
func WillBeRequested() *Condition {
	return operand(Node{Operand: OperandWillBeRequested})
}

// InitialEvaluation is true exactly on the first evaluation of the condition
// against a target.
func InitialEvaluation() *Condition {
	return operand(Node{Operand: OperandInitialEvaluation})
}

// Custom dispatches to an externally registered operand evaluator. Whether
// custom evaluators are permitted is controlled by engine configuration.
func Custom(name string) *Condition {
	return operand(Node{Operand: OperandCustom, Custom: name})
}

// compose builds an operator node over copies of the given children.
func compose(t NodeType, selection *asset.Selection, children ...*Condition) *Condition {
	c := &Condition{}
	ids := make([]NodeID, len(children))
	for i, child := range children {
		ids[i] = c.graft(child)
	}
	c.root = c.add(Node{Type: t, Children: ids, Selection: selection})
	return c
}

// Not complements a condition within the candidate subset under evaluation.
func Not(child *Condition) *Condition {
	return compose(NodeNot, nil, child)
}

// And conjoins conditions with candidate narrowing: each child is evaluated
// against the intersection of the incoming candidate and the results of the
// children before it, and is skipped outright once that candidate is empty.
func And(children ...*Condition) *Condition {
	return compose(NodeAnd, nil, children...)
}

// Or disjoins conditions; every child sees the unrestricted incoming
// candidate and results are unioned.
func Or(children ...*Condition) *Condition {
	return compose(NodeOr, nil, children...)
}

// NewlyTrue is true for a partition iff the child is true now and was false
// on the previous tick. With no previous tick it reduces to the child.
func NewlyTrue(child *Condition) *Condition {
	return compose(NodeNewlyTrue, nil, child)
}

// Since is true for a partition iff trigger has become true more recently
// than reset. False when neither has ever been true.
func Since(trigger, reset *Condition) *Condition {
	return compose(NodeSince, nil, trigger, reset)
}

// AnyDepsMatch is true for a partition iff some participating parent has a
// corresponding partition satisfying child.
func AnyDepsMatch(child *Condition) *Condition {
	return compose(NodeAnyDepsMatch, nil, child)
}

// AllDepsMatch is true for a partition iff every participating parent has a
// corresponding partition satisfying child. Empty when no parent
// participates.
func AllDepsMatch(child *Condition) *Condition {
	return compose(NodeAllDepsMatch, nil, child)
}

// AnyDownstreamCondition is true for a partition iff any condition declared
// on a downstream target evaluates true this tick for a corresponding
// partition. Only downstream results already computed within the tick are
// consulted, so it never recurses into its own evaluation.
func AnyDownstreamCondition() *Condition {
	c := &Condition{}
	c.root = c.add(Node{Type: NodeAnyDownstream})
	return c
}

// Eager is the standard eager-materialization policy: request when missing,
// or when some dependency was newly updated and no dependency is missing or
// still in progress.
func Eager() *Condition {
	return Or(
		Missing(),
		And(
			AnyDepsMatch(NewlyUpdated()),
			Not(AnyDepsMatch(Missing())),
			Not(AnyDepsMatch(InProgress())),
		),
	)
}

// And narrows the receiver by other, in order.
func (c *Condition) And(other *Condition) *Condition {
	return And(c, other)
}

// Or unions the receiver with other.
func (c *Condition) Or(other *Condition) *Condition {
	return Or(c, other)
}

// Not complements the receiver.
func (c *Condition) Not() *Condition {
	return Not(c)
}

// NewlyTrue wraps the receiver in a newly-true operator.
func (c *Condition) NewlyTrue() *Condition {
	return NewlyTrue(c)
}

// Since wraps the receiver as trigger with the given reset condition.
func (c *Condition) Since(reset *Condition) *Condition {
	return Since(c, reset)
}

// WithSelection returns a copy of the condition with the allow/ignore
// selection set on its root. Only meaningful on dependency-mapping roots.
func (c *Condition) WithSelection(selection *asset.Selection) *Condition {
	out := &Condition{}
	out.root = out.graft(c)
	out.nodes[out.root].Selection = selection
	return out
}

// WithLabel returns a copy of the condition with a human-readable label on
// its root. Labels are display metadata only.
func (c *Condition) WithLabel(label string) *Condition {
	out := &Condition{}
	out.root = out.graft(c)
	out.nodes[out.root].Label = label
	return out
}
