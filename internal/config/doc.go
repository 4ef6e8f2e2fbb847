// Package config loads, validates and hot-reloads nudger's configuration.
//
// YAML files are converted to JSON first so both formats go through the same
// strict decoder; unknown keys are rejected.
package config
