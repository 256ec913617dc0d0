package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/automation/engine"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/sensor"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

var evaluateFlags struct {
	definitions string
	facts       string
	at          string
	output      string
	allowCustom bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation tick and print the requested partitions",
	Long: `Run a single evaluation tick against a definitions file and print the
partitions each automation condition requests.

Evaluation uses an in-memory history store, so every target is on its first
evaluation: temporal operators degrade to their first-tick behavior.

Examples:
  # Evaluate with an empty fact snapshot
  callisto evaluate --definitions definitions.yaml

  # Evaluate against recorded facts
  callisto evaluate --definitions definitions.yaml --facts facts.yaml

  # Evaluate as of a specific time
  callisto evaluate --definitions definitions.yaml --at 2026-03-01T12:00:00Z

  # JSON output
  callisto evaluate --definitions definitions.yaml --output json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.definitions, "definitions", "d", "definitions.yaml", "definitions file path")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.facts, "facts", "f", "", "static facts file")
	evaluateCmd.Flags().StringVar(&evaluateFlags.at, "at", "", "evaluation time (RFC 3339, default now)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.output, "output", "o", "text", "output format (text, json)")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.allowCustom, "allow-custom", false, "permit custom operand conditions")
}

// evaluateOutput is the printable shape of a one-shot tick result.
type evaluateOutput struct {
	TickID         string              `json:"tick_id"`
	EvaluationTime time.Time           `json:"evaluation_time"`
	Requests       map[string][]string `json:"requests"`
	Warnings       []string            `json:"warnings,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	evaluationTime := time.Now().UTC()
	if evaluateFlags.at != "" {
		parsed, err := time.Parse(time.RFC3339, evaluateFlags.at)
		if err != nil {
			return cli.NewConfigError("at", err.Error())
		}
		evaluationTime = parsed.UTC()
	}

	defs, err := sensor.LoadDefinitions(evaluateFlags.definitions)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	var source sensor.FactSource
	if evaluateFlags.facts != "" {
		source, err = sensor.LoadFactsFile(evaluateFlags.facts)
		if err != nil {
			return cli.NewCommandError("evaluate", err)
		}
	} else {
		source = sensor.FactSourceFunc(func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
			return facts.NewBuilder(evaluationTime).Build(), nil
		})
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: "text", Writer: os.Stderr})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	engineConfig := engine.DefaultConfig().WithCustomConditions(evaluateFlags.allowCustom)
	eng, err := engine.New(engineConfig, defs.Graph, defs.Conditions, history.NewMemoryStore(), engine.NewRegistry(), logger.Slog())
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	snapshot, err := source.Snapshot(context.Background(), evaluationTime)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	result, err := eng.Evaluate(context.Background(), snapshot)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	return printResult(result)
}

func printResult(result *engine.Result) error {
	out := evaluateOutput{
		TickID:         result.TickID,
		EvaluationTime: result.EvaluationTime,
		Requests:       make(map[string][]string, len(result.Requests)),
	}
	for key, subset := range result.Requests {
		keys := subset.Keys()
		parts := make([]string, len(keys))
		for i, p := range keys {
			parts[i] = string(p)
		}
		sort.Strings(parts)
		out.Requests[string(key)] = parts
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, string(w.AssetKey)+": "+w.Message)
	}

	if evaluateFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, out)
	}

	if len(out.Requests) == 0 {
		fmt.Printf("No partitions requested.\n")
	} else {
		targets := make([]string, 0, len(out.Requests))
		for key := range out.Requests {
			targets = append(targets, key)
		}
		sort.Strings(targets)
		for _, key := range targets {
			fmt.Printf("%s:\n", key)
			for _, p := range out.Requests[key] {
				fmt.Printf("  %s\n", p)
			}
		}
	}
	for _, w := range out.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
