package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

// Hook releases one resource during shutdown.
type Hook func(context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	logger  logger.Logger

	mu    sync.Mutex
	hooks []namedHook

	trigger     chan struct{}
	triggerOnce sync.Once
	done        chan struct{}
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger logs signal receipt and hook failures.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates a new shutdown handler. Hooks share timeout.
func NewHandler(timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		timeout: timeout,
		logger:  logger.Discard(),
		hooks:   make([]namedHook, 0),
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
}

// Trigger starts shutdown without a signal. It is safe to call repeatedly.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() { close(h.trigger) })
}

// Wait blocks until a termination signal, ctx cancellation or Trigger, then
// runs the hooks. Every hook runs even if an earlier one fails; the
// returned error joins all failures.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		h.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		h.logger.Info("context cancelled, shutting down")
	case <-h.trigger:
		h.logger.Info("shutdown triggered")
	}

	return h.run()
}

func (h *Handler) run() error {
	defer close(h.done)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]namedHook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		start := time.Now()
		if err := hooks[i].fn(ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hooks[i].name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
			continue
		}
		h.logger.Debug("shutdown hook done", "hook", hooks[i].name, "elapsed", time.Since(start))
	}
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
