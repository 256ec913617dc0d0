// Callisto is a declarative automation-condition evaluator for partitioned
// asset graphs.
//
// It evaluates per-asset automation conditions against a fact snapshot on a
// cron schedule and emits the partitions that should be materialized or
// checked, without launching any runs itself.
//
// Usage:
//
//	# Start the evaluation daemon with default configuration
//	callisto run
//
//	# Start with custom configuration file
//	callisto run --config /path/to/config.yaml
//
//	# Evaluate one tick against a definitions file and print the requests
//	callisto evaluate --definitions definitions.yaml --facts facts.yaml
//
//	# Validate a definitions file without evaluating
//	callisto validate --definitions definitions.yaml
//
//	# Show version information
//	callisto version
package main

func main() {
	Execute()
}
