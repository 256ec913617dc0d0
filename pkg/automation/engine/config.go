package engine

import "fmt"

// Config contains configuration for the automation evaluation engine.
type Config struct {
	// MaxEntities caps the number of condition-bearing targets a single
	// evaluation pass may cover. Exceeding the cap is a fatal configuration
	// error for the pass: this is admission control on tick latency, not a
	// performance tweak.
	// Default: 500.
	MaxEntities int

	// AllowCustomConditions permits conditions with externally registered
	// operand evaluators. When false, a target whose condition contains a
	// custom operand is skipped with a configuration warning.
	// Default: false.
	AllowCustomConditions bool

	// MaxParallel bounds how many targets are evaluated concurrently within
	// one tick.
	// Default: 8.
	MaxParallel int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxEntities:           500,
		AllowCustomConditions: false,
		MaxParallel:           8,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.MaxEntities <= 0 {
		return fmt.Errorf("%w: max entities must be positive", ErrInvalidConfig)
	}
	if c.MaxParallel <= 0 {
		return fmt.Errorf("%w: max parallel must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithMaxEntities sets the per-pass entity cap.
func (c *Config) WithMaxEntities(max int) *Config {
	c.MaxEntities = max
	return c
}

// WithCustomConditions enables or disables custom operand evaluators.
func (c *Config) WithCustomConditions(allowed bool) *Config {
	c.AllowCustomConditions = allowed
	return c
}

// WithMaxParallel sets the intra-tick parallelism bound.
func (c *Config) WithMaxParallel(max int) *Config {
	c.MaxParallel = max
	return c
}
