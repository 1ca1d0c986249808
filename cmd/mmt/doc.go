// Package main hosts the mmt CLI entrypoint and command graph.
//
// Commands load the TOML configuration once, build a structured logger from
// it, and hand the real work to internal/workflow. `process` and `plan` act
// on explicit files; `watch` runs the directory watcher as a single
// instance; the remaining commands inspect the environment and history.
package main
