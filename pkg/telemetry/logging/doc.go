// Package logging provides structured logging for the evaluation daemon.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Context-aware logging with tick and asset metadata
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logger.Info("tick completed",
//	    "tick_id", "a1b2c3",
//	    "entities", 42,
//	    "duration_ms", 110,
//	)
//
//	// Context-aware logging
//	ctx := logging.WithTickID(ctx, tickID)
//	logger.InfoContext(ctx, "evaluating entity")  // Includes tick_id automatically
package logging
