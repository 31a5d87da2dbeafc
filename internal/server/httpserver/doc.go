// Package httpserver provides the admin HTTP endpoint of miniredis-server.
//
// Routes:
//
//   - GET /metrics (path configurable): Prometheus exposition
//   - GET /health: liveness
//   - GET /ready: readiness, 503 until the RESP listener is up
//   - GET /version: build information
//
// Every request passes through Recover and RequestID, and is logged at
// debug level.
package httpserver
