// Package notifications delivers processing events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, and
// each event family can be switched off individually in the
// [notifications] config section. Workflow code depends only on the Service
// interface.
package notifications
