// Package config loads, normalizes, and validates rmbloat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the selection
// thresholds, encoder knobs, and strategy preferences the engine and CLI need,
// so every consumer sees the same sanitized values.
package config
