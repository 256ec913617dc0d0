// Package sensor runs the evaluation daemon: it loads asset definitions,
// drives evaluation ticks on a cron schedule, and dispatches requested
// partitions to configured sinks.
//
// # Components
//
//   - Definitions: YAML loader producing the asset graph and the automation
//     condition attached to each target
//   - Watcher: fsnotify-based reload of the definitions file with debouncing
//   - Sensor: the cron-driven tick loop
//   - RequestSink: destinations for requested partitions (log, SQLite outbox)
//
// # Tick Flow
//
// On every schedule tick the sensor captures a fact snapshot from its
// FactSource, runs one engine evaluation pass, and hands the resulting
// requests to each sink. A failed sink is logged and does not fail the tick;
// the evaluation records are already committed by the engine.
package sensor
