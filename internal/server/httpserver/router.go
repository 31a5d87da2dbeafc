package httpserver

import (
	"net/http"
	"time"

	"github.com/yndnr/miniredis-go/internal/infra/buildinfo"
	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	// Metrics serves the Prometheus exposition. Nil disables the route.
	Metrics http.Handler

	// MetricsPath is where Metrics is mounted (default "/metrics").
	MetricsPath string

	// Ready reports whether the RESP listener accepts clients.
	// Nil means always ready.
	Ready func() bool

	// Logger for request logging.
	Logger logger.Logger
}

// NewRouter builds the admin handler with its middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", readyHandler(cfg.Ready))
	mux.HandleFunc("GET /version", handleVersion)

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, cfg.Metrics)
	}

	// Order: Recover -> RequestID -> AccessLog -> mux
	return Chain(mux, Recover(log), RequestID(), AccessLog(log))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func readyHandler(ready func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}
