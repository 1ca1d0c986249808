// Package history records processed files in a SQLite database.
//
// Every run of the workflow inserts a row in runs when it starts and
// finalises it with a status; each placed output is an outputs row keyed by
// the run's correlation id. Watch mode consults Completed to skip sources
// that already finished with the same size and modification time, and
// `mmt history` renders Recent.
//
// The schema is embedded and versioned. A version mismatch is reported as
// ErrSchemaMismatch rather than migrated; delete the database to start over.
package history
