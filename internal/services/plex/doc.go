// Package plex triggers Plex library scans for finished outputs.
//
// The HTTP-backed service resolves library sections once, picks the section
// whose location contains the output path and refreshes only that section,
// falling back to a refresh of every section. Without refresh enabled the
// configured service is a no-op.
package plex
