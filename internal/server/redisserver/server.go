package redisserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
	"github.com/yndnr/miniredis-go/pkg/resp"
)

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string
	// ReadTimeout bounds the wait for the rest of a partially received
	// command (default: 30s). Helps against slowloris clients.
	ReadTimeout time.Duration
	// WriteTimeout bounds each reply flush (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout closes connections with no pending input (0 = never).
	IdleTimeout time.Duration
	// ReadBufferSize is the size of a single socket read (default: 4KiB).
	ReadBufferSize int
	// MaxConnections caps concurrent clients (0 = unlimited).
	MaxConnections int
	// RateLimit is commands per second per connection (0 = unlimited).
	RateLimit float64
	// RateBurst is the limiter bucket size (default: max(1, RateLimit)).
	RateBurst int
	// MaxArrayLen and MaxBulkLen bound request frames (0 = decoder defaults).
	MaxArrayLen int
	MaxBulkLen  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           "127.0.0.1:6379",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    5 * time.Minute,
		ReadBufferSize: 4 << 10,
		MaxArrayLen:    resp.MaxArrayLen,
		MaxBulkLen:     resp.MaxBulkLen,
	}
}

const maxClientsReply = "-ERR max number of clients reached\r\n"

// ErrServerClosed is returned by Start after Shutdown.
var ErrServerClosed = errors.New("redisserver: server closed")

// Server accepts RESP connections and serves each on its own goroutine.
type Server struct {
	cfg        *Config
	dispatcher *Dispatcher
	logger     logger.Logger
	metrics    *metric.Registry

	ln      net.Listener
	running atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServerMetrics records connection metrics in r.
func WithServerMetrics(r *metric.Registry) ServerOption {
	return func(s *Server) {
		s.metrics = r
	}
}

// New creates a server that runs commands through d.
func New(cfg *Config, d *Dispatcher, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:        withDefaults(cfg),
		dispatcher: d,
		logger:     logger.Discard(),
		sessions:   make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withDefaults(cfg *Config) *Config {
	c := *cfg
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	return &c
}

// Start binds the listener and accepts connections in the background.
// It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("redis server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil {
			s.logger.Error("redis accept loop stopped", "error", err)
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

// Connections returns the number of open sessions.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting, closes every session and waits for their
// goroutines or ctx, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.mu.Lock()
	for sess := range s.sessions {
		sess.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			// Resource exhaustion (EMFILE and friends) is usually transient.
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		sess, ok := s.track(c)
		if !ok {
			s.reject(c)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(sess)
			sess.serve(ctx)
		}()
	}
}

// track registers a session for c unless the server is full or closing.
func (s *Server) track(c net.Conn) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil, false
	}
	if s.cfg.MaxConnections > 0 && len(s.sessions) >= s.cfg.MaxConnections {
		return nil, false
	}

	sess := newSession(s, c)
	s.sessions[sess] = struct{}{}
	s.metrics.ConnOpened()
	return sess, true
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	s.metrics.ConnClosed()
}

func (s *Server) reject(c net.Conn) {
	s.metrics.IncConnRejected()
	s.logger.Warn("connection rejected", "remote", c.RemoteAddr().String(), "max_connections", s.cfg.MaxConnections)
	_ = c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_, _ = c.Write([]byte(maxClientsReply))
	_ = c.Close()
}
