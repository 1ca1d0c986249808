// Package workflow runs one source file through the whole pipeline.
//
// A Processor validates and probes the source, derives the resolution
// ladder, fetches missing subtitles, then for every tier builds a directive,
// encodes it and hands the result to the reconciler. Tiers run one after the
// other in descending order. The first successful output is copied to a
// working copy that later tiers encode from.
//
// Everything created for a run (working copy, imported sidecars marked for
// deletion, the per-source lock file) is released when Process returns,
// whatever the outcome. Once the ladder is done the processor retires the
// original when configured, refreshes downstream libraries, runs
// post-process scripts, sends notifications and records the run in the
// history store and metrics.
//
// Plan performs the same derivation without encoding, for dry runs.
package workflow
