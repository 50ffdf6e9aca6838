// Package config loads, normalizes, and validates cutdiff configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// object store credentials. The Config type centralizes every knob the CLI
// needs: where the fingerprint database lives, the alignment thresholds,
// hashing concurrency, and clip extraction behaviour.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
