package engine

import (
	"context"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/partition"
)

// evaluateDepsMatch projects the child condition across the target's
// dependency edges. For each participating parent the child is evaluated
// against the parent's partitions corresponding to the candidate, and the
// parent-side result is mapped back downstream. any_deps_match unions the
// mapped results; all_deps_match intersects them, so a partition qualifies
// only when every participating parent contributed it. With no participating
// parents both yield the empty subset.
func (r *tickRun) evaluateDepsMatch(ctx context.Context, ectx *Context) partition.Subset {
	def := ectx.def
	deps := ectx.node.Selection.Filter(def.Deps)
	if len(deps) == 0 {
		return partition.Empty()
	}

	childID := ectx.node.Children[0]
	asOf := ectx.EvaluationTime()
	all := ectx.node.Type == ast.NodeAllDepsMatch

	var result partition.Subset
	if all {
		result = ectx.candidate
	}

	for _, dep := range deps {
		parent := r.engine.graph.Def(dep.Parent)
		mapping := asset.MappingFor(dep, parent, def)

		parentCandidate := mapping.ToUpstream(ectx.candidate, parent, asOf)
		parentResult := r.evaluateNode(ctx, ectx.forDependency(childID, parent, parentCandidate))
		mapped := mapping.ToDownstream(parentResult, def, asOf).Intersect(ectx.candidate)

		if all {
			result = result.Intersect(mapped)
			if result.IsEmpty() {
				// No partition can satisfy every remaining parent either.
				return partition.Empty()
			}
		} else {
			result = result.Union(mapped)
		}
	}
	return result
}

// evaluateAnyDownstream holds for partitions with a corresponding partition
// in some downstream target's request subset this tick. It consumes only
// results that are already computed: the evaluation schedule places
// downstream-looking targets after their children, and anything still
// unfinished here would mean a reference back into this very evaluation, so
// it is skipped rather than recursed into.
func (r *tickRun) evaluateAnyDownstream(ctx context.Context, ectx *Context) partition.Subset {
	def := ectx.def
	asOf := ectx.EvaluationTime()

	result := partition.Empty()
	for _, childKey := range r.engine.graph.Children(def.Key) {
		childResult, ok := r.completedResult(childKey)
		if !ok || childResult.IsEmpty() {
			continue
		}
		child := r.engine.graph.Def(childKey)
		dep, ok := child.DepOn(def.Key)
		if !ok {
			continue
		}
		mapping := asset.MappingFor(dep, def, child)
		result = result.Union(mapping.ToUpstream(childResult, def, asOf))
	}
	return result.Intersect(ectx.candidate)
}
