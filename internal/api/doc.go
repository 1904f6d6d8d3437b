// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/monitor/start and /v1/monitor/stop to toggle the watch loop.
//   - GET /v1/monitor/status, /seen and /logs to inspect the current run.
//   - GET /v1/hits pages through the hit history when a store is configured.
package api
