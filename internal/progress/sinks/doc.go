// Package sinks implements concrete progress consumers: structured logging,
// the operator status line stream, an in-memory ring of recent lines,
// Prometheus metrics, a hit publisher and the optional hit history store.
// Each sink satisfies the progress.Sink interface.
package sinks
