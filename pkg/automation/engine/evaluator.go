package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/partition"
)

// Engine evaluates automation conditions across the dependency graph, one
// tick at a time. It is safe for concurrent use, though ticks against the
// same history store should be sequenced by the caller.
type Engine struct {
	config     *Config
	graph      *asset.Graph
	conditions map[asset.Key]*ast.Condition
	store      history.Store
	registry   *Registry
	logger     *slog.Logger

	// waves are the condition-reference evaluation order: every entity is
	// scheduled after the entities whose current-tick results its condition
	// consumes.
	waves [][]asset.Key

	// observed maps each entity to the assets whose materialization
	// cursors its record must carry: itself plus every ancestor its
	// condition watches through dependency-mapping operators.
	observed map[asset.Key][]asset.Key
}

// New creates an evaluation engine over the given graph and condition
// catalog. Every condition key must name a graph entity. A cycle in the
// condition-reference graph is a fatal configuration error detected here,
// before any tick begins.
func New(config *Config, graph *asset.Graph, conditions map[asset.Key]*ast.Condition, store history.Store, registry *Registry, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, fmt.Errorf("asset graph cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("history store cannot be nil")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}

	for key := range conditions {
		if graph.Def(key) == nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("condition attached to undefined asset %q", key)}
		}
	}

	waves, err := buildWaves(graph, conditions)
	if err != nil {
		return nil, err
	}

	observed := make(map[asset.Key][]asset.Key, len(conditions))
	for key, cond := range conditions {
		observed[key] = observedFactKeys(graph, key, cond)
	}

	return &Engine{
		config:     config,
		graph:      graph,
		conditions: conditions,
		store:      store,
		registry:   registry,
		logger:     logger.With("component", "automation.engine"),
		waves:      waves,
		observed:   observed,
	}, nil
}

// observedFactKeys walks the condition tree tracking which targets each node
// is evaluated against: dependency-mapping operators shift their subtree to
// the parents of the current targets. Every target a newly_updated operand
// can reach needs its cursor carried on the record, so the next tick has the
// right comparison point per asset.
func observedFactKeys(graph *asset.Graph, key asset.Key, cond *ast.Condition) []asset.Key {
	seen := map[asset.Key]bool{key: true}
	var collect func(id ast.NodeID, targets []asset.Key)
	collect = func(id ast.NodeID, targets []asset.Key) {
		n := cond.Node(id)
		switch n.Type {
		case ast.NodeAnyDepsMatch, ast.NodeAllDepsMatch:
			var parents []asset.Key
			for _, target := range targets {
				def := graph.Def(target)
				if def == nil {
					continue
				}
				for _, dep := range n.Selection.Filter(def.Deps) {
					parents = append(parents, dep.Parent)
				}
			}
			collect(n.Children[0], parents)
		default:
			if n.Type == ast.NodeOperand && n.Operand == ast.OperandNewlyUpdated {
				for _, target := range targets {
					seen[target] = true
				}
			}
			for _, child := range n.Children {
				collect(child, targets)
			}
		}
	}
	collect(cond.Root(), []asset.Key{key})

	out := make([]asset.Key, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Warning is a non-fatal evaluation problem attached to one target's tick.
type Warning struct {
	AssetKey asset.Key
	Message  string
}

// Result is the outcome of one completed evaluation tick.
type Result struct {
	// TickID uniquely identifies the tick.
	TickID string

	// TickIndex is the monotone tick counter.
	TickIndex uint64

	// EvaluationTime is the snapshot time the tick evaluated against.
	EvaluationTime time.Time

	// Requests maps each target to its non-empty request subset: the
	// partitions to materialize or check as a result of this tick.
	Requests map[asset.Key]partition.Subset

	// Records are the per-target evaluation records committed for this
	// tick, in sorted key order.
	Records []*history.Record

	// Warnings aggregates all per-target warnings, including targets
	// skipped before evaluation.
	Warnings []Warning

	// Skipped lists targets excluded from this tick before evaluation,
	// in sorted key order. Each carries a Warning naming the reason.
	Skipped []asset.Key
}

// Evaluate runs one tick against the given fact snapshot. On success the
// tick's records are committed to the history store and the request subsets
// are returned. A cancelled context abandons the tick: nothing is committed
// and temporal state is unaffected.
func (e *Engine) Evaluate(ctx context.Context, snapshot *facts.Snapshot) (*Result, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("fact snapshot cannot be nil")
	}

	if len(e.conditions) > e.config.MaxEntities {
		return nil, &ConfigurationError{Reason: fmt.Sprintf(
			"evaluation pass covers %d targets, exceeding the cap of %d",
			len(e.conditions), e.config.MaxEntities)}
	}

	run, err := e.newTickRun(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("evaluation tick started",
		"tick_id", run.tickID,
		"tick_index", run.tickIndex,
		"targets", len(e.conditions),
	)

	sem := make(chan struct{}, e.config.MaxParallel)
	for _, wave := range e.waves {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTickAbandoned, ctx.Err())
		}
		var wg sync.WaitGroup
		for _, key := range wave {
			ent := run.entities[key]
			if ent.skipped {
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(key asset.Key) {
				defer wg.Done()
				defer func() { <-sem }()
				run.ensure(ctx, key, nil)
			}(key)
		}
		wg.Wait()
	}

	// An abandoned tick must leave no trace: temporal operators on the next
	// tick still compare against the last completed tick.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrTickAbandoned, ctx.Err())
	}

	result := run.buildResult()
	if err := e.store.Commit(ctx, result.Records); err != nil {
		return nil, fmt.Errorf("committing tick records: %w", err)
	}

	e.logger.Info("evaluation tick completed",
		"tick_id", run.tickID,
		"tick_index", run.tickIndex,
		"requested_targets", len(result.Requests),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// Graph returns the engine's dependency graph.
func (e *Engine) Graph() *asset.Graph {
	return e.graph
}

// Condition returns the condition attached to key, or nil.
func (e *Engine) Condition(key asset.Key) *ast.Condition {
	return e.conditions[key]
}

// buildWaves computes the evaluation schedule from the condition-reference
// graph. An entity whose condition contains will_be_requested consumes its
// parents' current-tick results; one containing any_downstream_condition
// consumes its children's. Only these references force ordering; everything
// else may evaluate in parallel.
func buildWaves(graph *asset.Graph, conditions map[asset.Key]*ast.Condition) ([][]asset.Key, error) {
	needs := make(map[asset.Key][]asset.Key, len(conditions))
	for key, cond := range conditions {
		var refs []asset.Key
		if cond.HasOperand(ast.OperandWillBeRequested) {
			for _, dep := range graph.Parents(key) {
				if _, ok := conditions[dep.Parent]; ok {
					refs = append(refs, dep.Parent)
				}
			}
		}
		if hasNodeType(cond, ast.NodeAnyDownstream) {
			for _, child := range graph.Children(key) {
				if _, ok := conditions[child]; ok {
					refs = append(refs, child)
				}
			}
		}
		needs[key] = refs
	}

	// Longest-path depth over the reference graph; cycles surface as
	// unresolvable entities.
	depths := make(map[asset.Key]int, len(conditions))
	var visit func(key asset.Key, trail map[asset.Key]bool) (int, error)
	visit = func(key asset.Key, trail map[asset.Key]bool) (int, error) {
		if depth, ok := depths[key]; ok {
			return depth, nil
		}
		if trail[key] {
			members := make([]asset.Key, 0, len(trail))
			for k := range trail {
				members = append(members, k)
			}
			sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
			return 0, &ReferenceCycleError{Members: members}
		}
		trail[key] = true
		depth := 0
		for _, ref := range needs[key] {
			refDepth, err := visit(ref, trail)
			if err != nil {
				return 0, err
			}
			if refDepth+1 > depth {
				depth = refDepth + 1
			}
		}
		delete(trail, key)
		depths[key] = depth
		return depth, nil
	}

	maxDepth := 0
	for key := range conditions {
		depth, err := visit(key, make(map[asset.Key]bool))
		if err != nil {
			return nil, err
		}
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	waves := make([][]asset.Key, maxDepth+1)
	for key, depth := range depths {
		waves[depth] = append(waves[depth], key)
	}
	for _, wave := range waves {
		sort.Slice(wave, func(i, j int) bool { return wave[i] < wave[j] })
	}
	return waves, nil
}

func hasNodeType(c *ast.Condition, t ast.NodeType) bool {
	found := false
	c.Walk(func(n ast.Node) bool {
		if n.Type == t {
			found = true
			return false
		}
		return true
	})
	return found
}

// newTickRun prefetches prior records and prepares per-entity state.
func (e *Engine) newTickRun(ctx context.Context, snapshot *facts.Snapshot) (*tickRun, error) {
	run := &tickRun{
		engine:   e,
		snapshot: snapshot,
		tickID:   uuid.NewString(),
		entities: make(map[asset.Key]*entityEval, len(e.conditions)),
	}

	var maxTickIndex uint64
	for key, cond := range e.conditions {
		prior, err := e.store.Latest(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("loading prior record for %q: %w", key, err)
		}
		if prior != nil && prior.TickIndex > maxTickIndex {
			maxTickIndex = prior.TickIndex
		}
		// A changed condition tree re-enters first-evaluation behavior:
		// its recorded sub-results describe nodes that no longer exist.
		if prior != nil && prior.ConditionFingerprint != cond.Fingerprint() {
			prior = nil
		}

		ent := &entityEval{
			key:        key,
			done:       make(chan struct{}),
			prior:      prior,
			subResults: make(map[string]partition.Subset),
		}
		if !e.config.AllowCustomConditions && cond.HasOperand(ast.OperandCustom) {
			ent.skipped = true
			ent.addWarning("custom condition is not permitted in this execution context; target skipped")
		}
		run.entities[key] = ent
	}
	run.tickIndex = maxTickIndex + 1
	return run, nil
}
