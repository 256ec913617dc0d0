package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/sensor"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

var validateFlags struct {
	definitions string
	maxEntities int
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a definitions file without evaluating",
	Long: `Validate a definitions file: parse the YAML, build the dependency graph,
and run the fatal configuration checks an evaluation pass would perform.

Checked:
  - YAML syntax and condition tree shapes
  - Duplicate asset keys and dangling dependency edges
  - Dependency cycles
  - Condition reference cycles (will_be_requested vs any_downstream_condition)
  - The per-pass entity cap

Examples:
  callisto validate --definitions definitions.yaml
  callisto validate --definitions definitions.yaml --max-entities 100`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.definitions, "definitions", "d", "definitions.yaml", "definitions file path")
	validateCmd.Flags().IntVar(&validateFlags.maxEntities, "max-entities", 0, "entity cap to validate against (default from engine)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	defs, err := sensor.LoadDefinitions(validateFlags.definitions)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	engineConfig := engine.DefaultConfig()
	if validateFlags.maxEntities > 0 {
		engineConfig = engineConfig.WithMaxEntities(validateFlags.maxEntities)
	}
	// Custom operands are allowed here: validation should not fail on
	// conditions the daemon could run with a registered evaluator.
	engineConfig = engineConfig.WithCustomConditions(true)

	logger, err := logging.New(logging.Config{Level: "error", Format: "text", Writer: os.Stderr})
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	if _, err := engine.New(engineConfig, defs.Graph, defs.Conditions, history.NewMemoryStore(), engine.NewRegistry(), logger.Slog()); err != nil {
		return cli.NewCommandError("validate", err)
	}

	if len(defs.Conditions) > engineConfig.MaxEntities {
		return cli.NewCommandError("validate", fmt.Errorf(
			"definitions declare %d condition-bearing targets, exceeding the cap of %d",
			len(defs.Conditions), engineConfig.MaxEntities))
	}

	fmt.Printf("✓ %s is valid (%d assets, %d conditions)\n",
		validateFlags.definitions, defs.Graph.Len(), len(defs.Conditions))
	return nil
}
