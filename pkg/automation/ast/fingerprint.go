package ast

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"
)

// Fingerprint returns a structural hash of the condition tree. Two
// conditions with the same operators, operands, parameters and selections
// have the same fingerprint; labels are excluded so relabeling a node does
// not invalidate cross-tick temporal state.
func (c *Condition) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeStr := func(s string) {
		writeInt(int64(len(s)))
		h.Write([]byte(s))
	}

	c.Walk(func(n Node) bool {
		writeStr(string(n.Type))
		writeStr(string(n.Operand))
		writeStr(n.Custom)
		writeStr(n.CronExpr)
		writeStr(n.CronTimezone)
		writeInt(int64(n.Lookback))
		writeInt(int64(len(n.Children)))
		if n.Selection != nil {
			writeStr(string(n.Selection.Mode))
			for _, k := range n.Selection.Keys {
				writeStr(string(k))
			}
		}
		return true
	})
	return h.Sum64()
}

// String renders the condition in expression form, e.g.
// "(missing | (any_deps_match(newly_updated) & ~any_deps_match(missing)))".
// Labeled nodes render their label instead of their structure.
func (c *Condition) String() string {
	return c.describe(c.root)
}

func (c *Condition) describe(id NodeID) string {
	n := c.Node(id)
	if n.Label != "" {
		return n.Label
	}
	switch n.Type {
	case NodeOperand:
		switch n.Operand {
		case OperandCustom:
			return "custom(" + n.Custom + ")"
		case OperandCronTickPassed:
			return "cron_tick_passed(" + strconv.Quote(n.CronExpr) + ")"
		default:
			return string(n.Operand)
		}
	case NodeNot:
		return "~" + c.describe(n.Children[0])
	case NodeAnd:
		return c.joinChildren(n, " & ")
	case NodeOr:
		return c.joinChildren(n, " | ")
	case NodeNewlyTrue:
		return "newly_true(" + c.describe(n.Children[0]) + ")"
	case NodeSince:
		return "since(" + c.describe(n.Children[0]) + ", " + c.describe(n.Children[1]) + ")"
	case NodeAnyDepsMatch:
		return "any_deps_match(" + c.describe(n.Children[0]) + ")" + selectionSuffix(n)
	case NodeAllDepsMatch:
		return "all_deps_match(" + c.describe(n.Children[0]) + ")" + selectionSuffix(n)
	case NodeAnyDownstream:
		return "any_downstream_condition()"
	default:
		return string(n.Type)
	}
}

func (c *Condition) joinChildren(n Node, sep string) string {
	out := "("
	for i, child := range n.Children {
		if i > 0 {
			out += sep
		}
		out += c.describe(child)
	}
	return out + ")"
}

func selectionSuffix(n Node) string {
	if n.Selection == nil {
		return ""
	}
	out := "." + string(n.Selection.Mode) + "("
	for i, k := range n.Selection.Keys {
		if i > 0 {
			out += ", "
		}
		out += string(k)
	}
	return out + ")"
}
