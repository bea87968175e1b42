// Package api hosts the optional status listener of a crawl run:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the run id and live frontier counters.
package api
