// Package config loads, normalizes, and validates reelcache configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and overlays
// environment variables such as TMDB_READ_TOKEN. The Config type centralizes
// every knob the CLI and the enrichment core need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
