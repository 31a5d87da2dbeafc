package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

// Context keys for request-scoped values.
type contextKey string

// ContextKeyRequestID is the context key for request ID.
const ContextKeyRequestID contextKey = "request_id"

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "req-" + ulid.Make().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog logs each request at debug level.
func AccessLog(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			log.Debug("request completed",
				"request_id", GetRequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start))
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", GetRequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path)
					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"status":  "error",
						"message": "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// GetRequestIDFromContext retrieves the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
