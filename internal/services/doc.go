// Package services defines shared utilities consumed by the processing
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, source paths, stage names, and
//     resolution tiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     skipped file from a partial ladder or a hard failure.
//
// Downstream integrations (Plex, Jellyfin, Radarr) live in subpackages.
package services
