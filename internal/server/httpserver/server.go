package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

// Server is the admin HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
	ln         net.Listener
}

// New creates a server for handler on addr.
func New(addr string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("admin http server listening", "address", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin http server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
