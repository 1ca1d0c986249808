// Package postprocess runs user scripts after a source finishes.
//
// Each configured entry is an executable or a directory whose executables
// run in name order. Scripts receive the placed outputs as a JSON array in
// MMT_FILES and, when known, MMT_TMDBID, MMT_SEASON and MMT_EPISODE. Script
// failures are logged and never fail the run.
package postprocess
