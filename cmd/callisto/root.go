package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - declarative automation-condition evaluator",
	Long: `Callisto evaluates declarative automation conditions over a partitioned
asset dependency graph.

Each asset or check carries a condition tree (missing, newly updated,
cron ticks, dependency matches, temporal operators) that is evaluated
against a fact snapshot on every tick. The evaluator emits the partition
subsets that should be materialized or checked; launching runs is left
to external executors draining the request outbox.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
