// Package metrics holds the Prometheus collectors for mmt.
//
// Collectors register on the default registry. One-shot runs export them
// with WriteTextfile for the node_exporter textfile collector; watch mode
// serves them over HTTP through Server.
package metrics
