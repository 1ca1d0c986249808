// Package transcode derives the per-tier transcode directive for a probed
// source: audio and subtitle entries, default stream election, attachment
// passthrough, hardware acceleration and global encoder options.
//
// Planner.Build is the entry point. The audio and subtitle builders and
// the electors are exported for reuse by the dry-run planner and tests.
package transcode
