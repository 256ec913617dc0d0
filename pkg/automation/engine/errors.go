package engine

import (
	"errors"
	"fmt"

	"mercator-hq/callisto/pkg/asset"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrTickAbandoned indicates an evaluation tick was cancelled before
	// completion. No partial results are persisted for an abandoned tick.
	ErrTickAbandoned = errors.New("evaluation tick abandoned")
)

// ConfigurationError is a fatal per-pass error: the tick aborts and no
// request subset is produced. It covers cyclic condition references, the
// entity-count cap, and structurally invalid condition attachments.
type ConfigurationError struct {
	Reason string
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("automation configuration error: %s", e.Reason)
}

// OperandError reports the failure of a single operand evaluator. It is
// contained at the failing node: the node's result is forced to empty and
// the error is attached to the target's record as a warning. It never
// escapes the target boundary.
type OperandError struct {
	AssetKey asset.Key
	Node     string
	Cause    error
}

// Error returns the error message.
func (e *OperandError) Error() string {
	return fmt.Sprintf("asset %s: operand %s failed: %v", e.AssetKey, e.Node, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *OperandError) Unwrap() error {
	return e.Cause
}

// ReferenceCycleError reports a cycle in the condition-reference graph:
// entities whose conditions need one another's current-tick results. It is
// detected at engine construction, before any tick begins.
type ReferenceCycleError struct {
	Members []asset.Key
}

// Error returns the error message.
func (e *ReferenceCycleError) Error() string {
	return fmt.Sprintf("cyclic condition references among %v", e.Members)
}
