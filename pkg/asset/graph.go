package asset

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is the static dependency graph over asset and check definitions.
// It is immutable after construction and safe for concurrent reads.
type Graph struct {
	defs     map[Key]*Def
	children map[Key][]Key
	order    []Key
}

// CycleError reports a dependency cycle in the graph. A cyclic graph is a
// fatal configuration error: no evaluation tick may begin against it.
type CycleError struct {
	Members []Key
}

// Error returns the error message.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Members))
	for i, k := range e.Members {
		parts[i] = string(k)
	}
	return fmt.Sprintf("dependency cycle among assets: %s", strings.Join(parts, ", "))
}

// UnknownParentError reports a dependency edge on an undefined asset.
type UnknownParentError struct {
	Child  Key
	Parent Key
}

// Error returns the error message.
func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("asset %q depends on undefined asset %q", e.Child, e.Parent)
}

// NewGraph builds a graph from the given definitions, validates that every
// dependency edge targets a defined asset, and computes a topological order.
// A cycle or a dangling edge is returned as an error.
func NewGraph(defs []*Def) (*Graph, error) {
	g := &Graph{
		defs:     make(map[Key]*Def, len(defs)),
		children: make(map[Key][]Key),
	}
	for _, def := range defs {
		if def.Key == "" {
			return nil, fmt.Errorf("asset definition has empty key")
		}
		if _, exists := g.defs[def.Key]; exists {
			return nil, fmt.Errorf("duplicate asset definition %q", def.Key)
		}
		if def.Kind == "" {
			def.Kind = KindAsset
		}
		g.defs[def.Key] = def
	}

	for _, def := range g.defs {
		for _, dep := range def.Deps {
			if _, ok := g.defs[dep.Parent]; !ok {
				return nil, &UnknownParentError{Child: def.Key, Parent: dep.Parent}
			}
			g.children[dep.Parent] = append(g.children[dep.Parent], def.Key)
		}
	}
	for k := range g.children {
		sortKeys(g.children[k])
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// Def returns the definition for key, or nil if key is not in the graph.
func (g *Graph) Def(key Key) *Def {
	return g.defs[key]
}

// Len returns the number of definitions in the graph.
func (g *Graph) Len() int {
	return len(g.defs)
}

// Keys returns all asset keys in sorted order.
func (g *Graph) Keys() []Key {
	keys := make([]Key, 0, len(g.defs))
	for k := range g.defs {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Parents returns the dependency edges of key in declared order.
func (g *Graph) Parents(key Key) []Dep {
	def := g.defs[key]
	if def == nil {
		return nil
	}
	return def.Deps
}

// Children returns the keys of assets that depend on key, in sorted order.
func (g *Graph) Children(key Key) []Key {
	return g.children[key]
}

// TopoOrder returns the asset keys in dependency order: every parent appears
// before all of its children. The order is deterministic.
func (g *Graph) TopoOrder() []Key {
	out := make([]Key, len(g.order))
	copy(out, g.order)
	return out
}

// topoSort runs Kahn's algorithm with a sorted frontier for determinism.
// Remaining nodes after the sort are members of at least one cycle.
func (g *Graph) topoSort() ([]Key, error) {
	inDegree := make(map[Key]int, len(g.defs))
	for k, def := range g.defs {
		inDegree[k] += 0
		for range def.Deps {
			inDegree[k]++
		}
	}

	var frontier []Key
	for k, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, k)
		}
	}
	sortKeys(frontier)

	order := make([]Key, 0, len(g.defs))
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, next)

		var released []Key
		for _, child := range g.children[next] {
			inDegree[child]--
			if inDegree[child] == 0 {
				released = append(released, child)
			}
		}
		if len(released) > 0 {
			frontier = append(frontier, released...)
			sortKeys(frontier)
		}
	}

	if len(order) != len(g.defs) {
		var cycle []Key
		for k, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, k)
			}
		}
		sortKeys(cycle)
		return nil, &CycleError{Members: cycle}
	}

	return order, nil
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
