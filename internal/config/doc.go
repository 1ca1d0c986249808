// Package config loads, normalizes, and validates mmt configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MMT_PLEX_TOKEN. Language lists are normalized to ISO 639-2 codes here so
// the option builders can compare them directly.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical codecs, and clear validation errors.
package config
