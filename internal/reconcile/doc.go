// Package reconcile turns finished encodes into placed outputs.
//
// OutputName decides where each tier is written. Prepare moves a source out
// of the way when an output would overwrite it. Reconcile then either rolls
// a failed tier back or finalises a successful one: the partial file is
// renamed, tagged, fast-started, given its permissions and optionally moved
// to the library directory. Outputs of earlier tiers are never touched.
package reconcile
