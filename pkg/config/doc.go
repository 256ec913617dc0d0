// Package config provides the YAML configuration surface of the callisto
// daemon: logging, metrics, sensor behavior, history storage and asset
// definitions.
//
// Configuration is loaded from a YAML file, filled with defaults, optionally
// overridden from CALLISTO_* environment variables, and validated before use.
package config
