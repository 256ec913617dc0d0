package ast

import (
	"fmt"
	"time"

	"mercator-hq/callisto/pkg/asset"
)

// NodeID indexes a node within a condition's arena. IDs are dense and stable
// for the lifetime of the condition; cross-tick state is keyed by them.
type NodeID int

// NodeType is the variant tag of a condition node.
type NodeType string

const (
	NodeOperand       NodeType = "operand"        // leaf predicate
	NodeNot           NodeType = "not"            // complement within candidate
	NodeAnd           NodeType = "and"            // narrowing conjunction
	NodeOr            NodeType = "or"             // union disjunction
	NodeNewlyTrue     NodeType = "newly_true"     // true now, false on previous tick
	NodeSince         NodeType = "since"          // trigger more recent than reset
	NodeAnyDepsMatch  NodeType = "any_deps_match" // some parent satisfies child
	NodeAllDepsMatch  NodeType = "all_deps_match" // every parent satisfies child
	NodeAnyDownstream NodeType = "any_downstream" // some downstream condition fired
)

// OperandKind identifies a leaf predicate.
type OperandKind string

const (
	OperandMissing            OperandKind = "missing"
	OperandInProgress         OperandKind = "in_progress"
	OperandFailed             OperandKind = "failed"
	OperandNewlyUpdated       OperandKind = "newly_updated"
	OperandNewlyRequested     OperandKind = "newly_requested"
	OperandCodeVersionChanged OperandKind = "code_version_changed"
	OperandCronTickPassed     OperandKind = "cron_tick_passed"
	OperandInLatestTimeWindow OperandKind = "in_latest_time_window"
	OperandWillBeRequested    OperandKind = "will_be_requested"
	OperandInitialEvaluation  OperandKind = "initial_evaluation"
	OperandCustom             OperandKind = "custom"
)

// Node is a single condition tree node. Fields beyond Type are populated per
// variant: Operand/Custom/CronExpr/CronTimezone/Lookback for operand leaves,
// Children for operators, Selection for dependency-mapping operators. Label
// is pass-through display metadata on any node and has no evaluation effect.
type Node struct {
	ID       NodeID
	Type     NodeType
	Operand  OperandKind
	Children []NodeID

	// Custom is the registered evaluator name for OperandCustom leaves.
	Custom string

	// CronExpr and CronTimezone configure OperandCronTickPassed leaves.
	CronExpr     string
	CronTimezone string

	// Lookback widens OperandInLatestTimeWindow leaves beyond the single
	// latest window. Zero selects only the latest window.
	Lookback time.Duration

	// Selection filters the participating parents of dependency-mapping
	// operators. Nil admits all parents.
	Selection *asset.Selection

	Label string
}

// Condition is an immutable condition tree stored as a node arena. The zero
// value is not valid; use the package combinators.
type Condition struct {
	nodes []Node
	root  NodeID
}

// Root returns the root node id.
func (c *Condition) Root() NodeID {
	return c.root
}

// Node returns the node with the given id. It panics on an id that does not
// belong to this condition, which always indicates a programming error.
func (c *Condition) Node(id NodeID) Node {
	if int(id) < 0 || int(id) >= len(c.nodes) {
		panic(fmt.Sprintf("ast: node id %d out of range (arena size %d)", id, len(c.nodes)))
	}
	return c.nodes[id]
}

// Len returns the number of nodes in the arena.
func (c *Condition) Len() int {
	return len(c.nodes)
}

// Walk visits every node reachable from the root in depth-first pre-order.
// Returning false from fn stops the walk.
func (c *Condition) Walk(fn func(Node) bool) {
	c.walk(c.root, fn)
}

func (c *Condition) walk(id NodeID, fn func(Node) bool) bool {
	node := c.Node(id)
	if !fn(node) {
		return false
	}
	for _, child := range node.Children {
		if !c.walk(child, fn) {
			return false
		}
	}
	return true
}

// HasOperand reports whether any node in the tree is an operand of the given
// kind.
func (c *Condition) HasOperand(kind OperandKind) bool {
	found := false
	c.Walk(func(n Node) bool {
		if n.Type == NodeOperand && n.Operand == kind {
			found = true
			return false
		}
		return true
	})
	return found
}

// add appends a node to the arena and returns its id.
func (c *Condition) add(n Node) NodeID {
	id := NodeID(len(c.nodes))
	n.ID = id
	c.nodes = append(c.nodes, n)
	return id
}

// graft copies every node of other into this arena, remapping child ids, and
// returns the id of other's root in this arena. Grafting copies: the source
// condition is left untouched and shared subtrees become distinct instances.
func (c *Condition) graft(other *Condition) NodeID {
	offset := NodeID(len(c.nodes))
	for _, n := range other.nodes {
		copied := n
		copied.ID = n.ID + offset
		if len(n.Children) > 0 {
			children := make([]NodeID, len(n.Children))
			for i, child := range n.Children {
				children[i] = child + offset
			}
			copied.Children = children
		}
		c.nodes = append(c.nodes, copied)
	}
	return other.root + offset
}
