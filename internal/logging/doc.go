// Package logging assembles the slog loggers used across mmt.
//
// Console lines go to stderr with the source file and tier folded into a
// short subject; when a log directory is configured every record is also
// appended to mmt.log as JSON. WithContext tags a logger with the run id,
// source, stage and tier carried on a context, and Decision records policy
// outcomes under decision_type.
package logging
