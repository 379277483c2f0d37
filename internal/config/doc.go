// Package config loads, normalizes, and validates squeeze configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SQUEEZE_TOOLS_DIR. The Config type centralizes every knob the pipeline and
// CLI need: size thresholds, per-format quality ladders, encoder binaries,
// worker sizing, and the dedup store location.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
