package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every application metric.
const Namespace = "miniredis"

// Command outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Registry holds all application metrics.
//
// Methods on a nil *Registry are no-ops, so components can run without
// metrics.
type Registry struct {
	registry *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Connection metrics
	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	ConnectionsRejected prometheus.Counter
	ProtocolErrors      prometheus.Counter

	// Storage metrics
	KeysExpired     prometheus.Counter
	AOFWriteErrors  prometheus.Counter
	AOFRecordsTotal prometheus.Counter
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// NewRegistry creates a registry with the Go runtime and process
// collectors plus every application metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command and outcome.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"command"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connections_rejected_total",
			Help:      "Client connections refused because the server was full.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "protocol_errors_total",
			Help:      "Connections closed because of malformed input.",
		}),
		KeysExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keys_expired_total",
			Help:      "Keys removed by lazy expiration.",
		}),
		AOFRecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "aof",
			Name:      "records_total",
			Help:      "Records appended to the append-only log.",
		}),
		AOFWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "aof",
			Name:      "write_errors_total",
			Help:      "Failed appends or flushes of the append-only log.",
		}),
	}

	reg.MustRegister(
		r.CommandsTotal,
		r.CommandDuration,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.ConnectionsRejected,
		r.ProtocolErrors,
		r.KeysExpired,
		r.AOFRecordsTotal,
		r.AOFWriteErrors,
	)
	return r
}

// MustRegister adds extra collectors, such as a Collector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.registry.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:          r.registry,
		EnableOpenMetrics: true,
	})
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(command, status string, seconds float64) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(seconds)
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}

// IncConnRejected records a connection refused at the limit.
func (r *Registry) IncConnRejected() {
	if r == nil {
		return
	}
	r.ConnectionsRejected.Inc()
}

// IncProtocolError records a connection closed for malformed input.
func (r *Registry) IncProtocolError() {
	if r == nil {
		return
	}
	r.ProtocolErrors.Inc()
}

// IncKeyExpired records one lazy expiration.
func (r *Registry) IncKeyExpired() {
	if r == nil {
		return
	}
	r.KeysExpired.Inc()
}

// RecordAOFAppend records the outcome of one log append.
func (r *Registry) RecordAOFAppend(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.AOFWriteErrors.Inc()
		return
	}
	r.AOFRecordsTotal.Inc()
}
