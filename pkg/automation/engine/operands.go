package engine

import (
	"context"
	"fmt"

	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/partition"
)

// evaluateOperand evaluates a leaf predicate against the candidate subset.
// Operands consult only the tick snapshot and the prior record, never the
// condition tree. Failures are contained here: the node yields the empty
// subset and the error becomes a warning on the target's record.
func (r *tickRun) evaluateOperand(ctx context.Context, ectx *Context) partition.Subset {
	key := ectx.def.Key
	snapshot := ectx.Snapshot()
	candidate := ectx.candidate

	switch ectx.node.Operand {
	case ast.OperandMissing:
		// Never materialized and not currently running.
		return candidate.
			Subtract(snapshot.Materialized(key)).
			Subtract(snapshot.InProgress(key))

	case ast.OperandInProgress:
		return candidate.Intersect(snapshot.InProgress(key))

	case ast.OperandFailed:
		return candidate.Intersect(snapshot.Failed(key))

	case ast.OperandNewlyUpdated:
		if ectx.prior == nil {
			return partition.Empty()
		}
		return candidate.Intersect(snapshot.NewlyUpdatedSince(key, ectx.prior.UpdateSeqs[key]))

	case ast.OperandNewlyRequested:
		if ectx.prior == nil {
			return partition.Empty()
		}
		return candidate.Intersect(ectx.prior.RequestSubset)

	case ast.OperandCodeVersionChanged:
		if ectx.prior == nil {
			return partition.Empty()
		}
		return boolSubset(candidate, ectx.prior.CodeVersion != ectx.def.CodeVersion)

	case ast.OperandCronTickPassed:
		return r.evaluateCronTickPassed(ectx)

	case ast.OperandInLatestTimeWindow:
		return r.evaluateInLatestTimeWindow(ectx)

	case ast.OperandWillBeRequested:
		return r.evaluateWillBeRequested(ctx, ectx)

	case ast.OperandInitialEvaluation:
		return boolSubset(candidate, ectx.prior == nil)

	case ast.OperandCustom:
		return r.evaluateCustom(ctx, ectx)

	default:
		ectx.addWarning("unknown operand " + string(ectx.node.Operand) + "; treated as false")
		return partition.Empty()
	}
}

// evaluateCronTickPassed holds for the whole candidate iff a tick of the
// node's cron schedule occurred since the previous evaluation. With no
// previous evaluation there is no interval to inspect, so it is false.
func (r *tickRun) evaluateCronTickPassed(ectx *Context) partition.Subset {
	prevTime, ok := ectx.PriorEvaluationTime()
	if !ok {
		return partition.Empty()
	}
	schedule, err := partition.ParseCron(ectx.node.CronExpr, ectx.node.CronTimezone)
	if err != nil {
		ectx.addWarning((&OperandError{AssetKey: ectx.def.Key, Node: "cron_tick_passed", Cause: err}).Error())
		return partition.Empty()
	}
	return boolSubset(ectx.candidate, partition.TickPassed(schedule, prevTime, ectx.EvaluationTime()))
}

// evaluateInLatestTimeWindow restricts the candidate to the latest time
// window of a time-window partitioned target. Other targets pass through
// unchanged: there is no window to restrict to.
func (r *tickRun) evaluateInLatestTimeWindow(ectx *Context) partition.Subset {
	windows, ok := ectx.def.Partitions.(*partition.TimeWindow)
	if !ok {
		return ectx.candidate
	}
	return ectx.candidate.Intersect(windows.WindowsWithin(ectx.EvaluationTime(), ectx.node.Lookback))
}

// evaluateWillBeRequested resolves the target's own request subset for the
// current tick, evaluating it on demand when needed. A target cannot ask
// whether it will itself be requested: that is a self-reference, contained
// as a warning.
func (r *tickRun) evaluateWillBeRequested(ctx context.Context, ectx *Context) partition.Subset {
	key := ectx.def.Key
	for _, onStack := range ectx.stack {
		if onStack == key {
			ectx.addWarning(fmt.Sprintf("will_be_requested on %q refers to an evaluation already in progress; treated as false", key))
			return partition.Empty()
		}
	}
	requested, ok := r.ensure(ctx, key, ectx.stack)
	if !ok {
		return partition.Empty()
	}
	return ectx.candidate.Intersect(requested)
}

// evaluateCustom dispatches to a registered operand evaluator. The result is
// clipped to the candidate so user logic cannot produce phantom partitions.
func (r *tickRun) evaluateCustom(ctx context.Context, ectx *Context) partition.Subset {
	name := ectx.node.Custom
	evaluator, ok := r.engine.registry.Lookup(name)
	if !ok {
		ectx.addWarning(fmt.Sprintf("custom operand %q is not registered; treated as false", name))
		return partition.Empty()
	}
	result, err := safeEvaluate(ctx, evaluator, ectx)
	if err != nil {
		ectx.addWarning((&OperandError{AssetKey: ectx.def.Key, Node: "custom(" + name + ")", Cause: err}).Error())
		return partition.Empty()
	}
	return ectx.candidate.Intersect(result)
}

// boolSubset degenerates a predicate over the whole target to the subset
// form: the full candidate when true, empty when false.
func boolSubset(candidate partition.Subset, v bool) partition.Subset {
	if v {
		return candidate
	}
	return partition.Empty()
}
