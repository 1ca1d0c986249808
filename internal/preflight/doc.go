// Package preflight provides readiness checks for the binaries, paths and
// downstream services mmt depends on.
//
// These checks run in two contexts:
//   - The workflow calls Local before each source. A failed check stops the
//     run early instead of failing hours into an encode.
//   - The CLI "mmt status" command renders Local plus Remote.
//
// Remote checks are gated by their config toggles. Disabled integrations
// are skipped.
package preflight
