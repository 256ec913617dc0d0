package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/callisto/pkg/partition"
)

// OperandEvaluator is the capability interface for externally supplied
// operand logic. Implementations receive the target under evaluation through
// the Context and return the subset of the candidate for which the operand
// holds. Evaluators must be pure with respect to the tick: they may consult
// the context's snapshot and prior record but must not retain or mutate
// shared state.
//
// Custom evaluators are treated as untrusted: panics are recovered and
// surfaced as operand errors, and results are clipped to the candidate
// subset.
type OperandEvaluator interface {
	Evaluate(ctx context.Context, ectx *Context) (partition.Subset, error)
}

// OperandFunc adapts a function to the OperandEvaluator interface.
type OperandFunc func(ctx context.Context, ectx *Context) (partition.Subset, error)

// Evaluate calls the function.
func (f OperandFunc) Evaluate(ctx context.Context, ectx *Context) (partition.Subset, error) {
	return f(ctx, ectx)
}

// Registry holds externally registered operand evaluators, looked up by the
// name carried on custom operand nodes. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]OperandEvaluator
}

// NewRegistry creates an empty evaluator registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[string]OperandEvaluator)}
}

// Register adds an evaluator under the given name, replacing any previous
// registration.
func (r *Registry) Register(name string, evaluator OperandEvaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[name] = evaluator
}

// Lookup returns the evaluator registered under name.
func (r *Registry) Lookup(name string) (OperandEvaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	evaluator, ok := r.evaluators[name]
	return evaluator, ok
}

// Names returns the registered evaluator names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// safeEvaluate invokes a custom evaluator, converting panics into errors so
// misbehaving user logic cannot take down the evaluation pass.
func safeEvaluate(ctx context.Context, evaluator OperandEvaluator, ectx *Context) (result partition.Subset, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = partition.Empty()
			err = fmt.Errorf("custom evaluator panicked: %v", r)
		}
	}()
	return evaluator.Evaluate(ctx, ectx)
}
