// Package jellyfin asks Jellyfin to rescan its libraries after an output is
// placed. Without an enabled URL and API key the configured service is a
// no-op.
package jellyfin
