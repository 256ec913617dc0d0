package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/partition"
)

// evalState is the per-entity state machine within one tick.
type evalState int

const (
	statePending evalState = iota
	stateEvaluating
	stateDone
)

// entityEval tracks the evaluation of one target within one tick. The fields
// below mu are written only by the goroutine that claimed the entity;
// readers go through ensure.
type entityEval struct {
	key     asset.Key
	skipped bool
	prior   *history.Record

	mu    sync.Mutex
	state evalState
	done  chan struct{}

	result     partition.Subset
	subResults map[string]partition.Subset
	warnings   []string
	warningsMu sync.Mutex
}

func (ent *entityEval) addWarning(msg string) {
	ent.warningsMu.Lock()
	defer ent.warningsMu.Unlock()
	ent.warnings = append(ent.warnings, msg)
}

// tickRun is the transient state of one evaluation tick. It is discarded
// once the tick's records are committed.
type tickRun struct {
	engine    *Engine
	snapshot  *facts.Snapshot
	tickID    string
	tickIndex uint64
	entities  map[asset.Key]*entityEval
}

// ensure evaluates key at most once within the tick and returns its request
// subset. The second return is false when key carries no condition or was
// skipped. Callers needing another entity's current-tick result go through
// here; claim semantics evaluate pending entities in the calling goroutine,
// so waiters always wait on active work.
func (r *tickRun) ensure(ctx context.Context, key asset.Key, stack []asset.Key) (partition.Subset, bool) {
	ent, ok := r.entities[key]
	if !ok || ent.skipped {
		return partition.Empty(), false
	}

	ent.mu.Lock()
	switch ent.state {
	case stateDone:
		ent.mu.Unlock()
		return ent.result, true
	case stateEvaluating:
		ent.mu.Unlock()
		<-ent.done
		return ent.result, true
	}
	ent.state = stateEvaluating
	ent.mu.Unlock()

	result := r.evaluateEntity(ctx, ent, stack)

	ent.mu.Lock()
	ent.result = result
	ent.state = stateDone
	ent.mu.Unlock()
	close(ent.done)
	return result, true
}

// completedResult returns key's current-tick result only if it is already
// computed. Downstream-looking operators use this instead of ensure so they
// can never block on, or recurse into, their own evaluation.
func (r *tickRun) completedResult(key asset.Key) (partition.Subset, bool) {
	ent, ok := r.entities[key]
	if !ok || ent.skipped {
		return partition.Empty(), false
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.state != stateDone {
		return partition.Empty(), false
	}
	return ent.result, true
}

// evaluateEntity evaluates the entity's condition tree root against its full
// partition space.
func (r *tickRun) evaluateEntity(ctx context.Context, ent *entityEval, stack []asset.Key) partition.Subset {
	def := r.engine.graph.Def(ent.key)
	cond := r.engine.conditions[ent.key]
	candidate := def.PartitionSpace(r.snapshot.EvaluationTime())

	ectx := &Context{
		run:       r,
		entity:    ent,
		cond:      cond,
		node:      cond.Node(cond.Root()),
		def:       def,
		prior:     ent.prior,
		candidate: candidate,
		stack:     append(stack, ent.key),
	}
	return r.evaluateNode(ctx, ectx)
}

// evaluateNode dispatches on the node variant. Every branch maintains the
// narrowing invariant: the returned subset is a subset of the candidate.
func (r *tickRun) evaluateNode(ctx context.Context, ectx *Context) partition.Subset {
	switch ectx.node.Type {
	case ast.NodeOperand:
		return r.evaluateOperand(ctx, ectx)
	case ast.NodeNot:
		return r.evaluateNot(ctx, ectx)
	case ast.NodeAnd:
		return r.evaluateAnd(ctx, ectx)
	case ast.NodeOr:
		return r.evaluateOr(ctx, ectx)
	case ast.NodeNewlyTrue:
		return r.evaluateNewlyTrue(ctx, ectx)
	case ast.NodeSince:
		return r.evaluateSince(ctx, ectx)
	case ast.NodeAnyDepsMatch, ast.NodeAllDepsMatch:
		return r.evaluateDepsMatch(ctx, ectx)
	case ast.NodeAnyDownstream:
		return r.evaluateAnyDownstream(ctx, ectx)
	default:
		ectx.addWarning("unknown condition node type " + string(ectx.node.Type) + "; treated as false")
		return partition.Empty()
	}
}

// buildResult assembles the tick's records and request subsets. Called only
// after every wave has completed.
func (r *tickRun) buildResult() *Result {
	result := &Result{
		TickID:         r.tickID,
		TickIndex:      r.tickIndex,
		EvaluationTime: r.snapshot.EvaluationTime(),
		Requests:       make(map[asset.Key]partition.Subset),
	}

	keys := make([]asset.Key, 0, len(r.entities))
	for key := range r.entities {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		ent := r.entities[key]
		for _, msg := range ent.warnings {
			result.Warnings = append(result.Warnings, Warning{AssetKey: key, Message: msg})
		}
		if ent.skipped {
			result.Skipped = append(result.Skipped, key)
			continue
		}

		def := r.engine.graph.Def(key)
		record := &history.Record{
			ID:                   uuid.NewString(),
			TickID:               r.tickID,
			TickIndex:            r.tickIndex,
			AssetKey:             key,
			EvaluationTime:       r.snapshot.EvaluationTime(),
			ConditionFingerprint: r.engine.conditions[key].Fingerprint(),
			CodeVersion:          def.CodeVersion,
			RequestSubset:        ent.result,
			SubResults:           ent.subResults,
			UpdateSeqs:           r.observedSeqs(key),
			Warnings:             ent.warnings,
		}
		result.Records = append(result.Records, record)

		if !ent.result.IsEmpty() {
			result.Requests[key] = ent.result
		}
	}
	return result
}

// observedSeqs snapshots the materialization cursors of every asset watched
// by key's condition, for recording onto its tick record.
func (r *tickRun) observedSeqs(key asset.Key) map[asset.Key]map[partition.Key]uint64 {
	var out map[asset.Key]map[partition.Key]uint64
	for _, watched := range r.engine.observed[key] {
		seqs := r.snapshot.UpdateSeqs(watched)
		if seqs == nil {
			continue
		}
		if out == nil {
			out = make(map[asset.Key]map[partition.Key]uint64)
		}
		out[watched] = seqs
	}
	return out
}
