// Package metric provides Prometheus metrics for miniredis.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, instruments and HTTP handler
//   - collector.go: scrape-time collector for store and log statistics
//
// Metrics include:
//
//   - Command counters and latency histograms, labelled by command
//   - Connection gauges and counters
//   - Protocol error and lazy expiration counters
//   - Key count and append-only log size
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
