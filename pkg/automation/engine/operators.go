package engine

import (
	"context"

	"mercator-hq/callisto/pkg/partition"
)

// evaluateNot complements the child within the candidate subset. NOT is
// always relative to the scope under consideration, never the full partition
// space, so it cannot produce partitions outside the candidate.
func (r *tickRun) evaluateNot(ctx context.Context, ectx *Context) partition.Subset {
	child := r.evaluateNode(ctx, ectx.child(ectx.node.Children[0], ectx.candidate))
	return ectx.candidate.Subtract(child)
}

// evaluateAnd conjoins children with candidate narrowing: each child sees
// only the partitions every earlier child admitted. Once the running
// candidate is empty the remaining children are skipped outright; their
// evaluators, which may be expensive user code, are never invoked.
func (r *tickRun) evaluateAnd(ctx context.Context, ectx *Context) partition.Subset {
	candidate := ectx.candidate
	for _, childID := range ectx.node.Children {
		if candidate.IsEmpty() {
			return partition.Empty()
		}
		candidate = r.evaluateNode(ctx, ectx.child(childID, candidate))
	}
	return candidate
}

// evaluateOr unions children, each evaluated against the unrestricted
// incoming candidate.
func (r *tickRun) evaluateOr(ctx context.Context, ectx *Context) partition.Subset {
	result := partition.Empty()
	for _, childID := range ectx.node.Children {
		result = result.Union(r.evaluateNode(ctx, ectx.child(childID, ectx.candidate)))
	}
	return result
}

// evaluateNewlyTrue holds for partitions the child admits now but did not on
// the previous tick. With no usable prior state the child's previous result
// is treated as false everywhere, so newly-true reduces to the child.
func (r *tickRun) evaluateNewlyTrue(ctx context.Context, ectx *Context) partition.Subset {
	childCtx := ectx.child(ectx.node.Children[0], ectx.candidate)
	current := r.evaluateNode(ctx, childCtx)

	// The child's full result is recorded each tick so the next tick can
	// compare against it.
	childCtx.recordSubResult(current)

	priorTrue, ok := childCtx.priorSubResult()
	if !ok {
		return current
	}
	return current.Subtract(priorTrue)
}

// evaluateSince holds for partitions whose trigger fired more recently than
// their reset. The running result subset is carried tick to tick: trigger
// partitions join it, reset partitions leave it. A partition where trigger
// and reset fire on the same tick resolves to false: the trigger is not
// strictly more recent. False when neither has ever fired.
func (r *tickRun) evaluateSince(ctx context.Context, ectx *Context) partition.Subset {
	trigger := r.evaluateNode(ctx, ectx.child(ectx.node.Children[0], ectx.candidate))
	reset := r.evaluateNode(ctx, ectx.child(ectx.node.Children[1], ectx.candidate))

	prior, _ := ectx.priorSubResult()
	result := prior.Union(trigger).Subtract(reset)

	ectx.recordSubResult(result)
	return result.Intersect(ectx.candidate)
}
