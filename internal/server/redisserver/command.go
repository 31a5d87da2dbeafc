package redisserver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/yndnr/miniredis-go/internal/storage/aof"
	"github.com/yndnr/miniredis-go/internal/storage/memory"
	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
	"github.com/yndnr/miniredis-go/pkg/resp"
)

// CommandError is a client mistake: bad arity, a bad option or an unknown
// command. Msg is sent verbatim as the error reply.
type CommandError struct {
	Msg string
}

func (e *CommandError) Error() string { return e.Msg }

var (
	errEmptyCommand = &CommandError{Msg: "ERR empty command"}
	errSyntax       = &CommandError{Msg: "ERR syntax error"}
	errNotInteger   = &CommandError{Msg: "ERR value is not an integer or out of range"}
)

func errWrongArgs(name string) *CommandError {
	return &CommandError{Msg: fmt.Sprintf("ERR wrong number of arguments for '%s' command", name)}
}

func errUnknownCommand(name string) *CommandError {
	return &CommandError{Msg: fmt.Sprintf("ERR unknown command `%s`", name)}
}

func errInvalidExpire(name string) *CommandError {
	return &CommandError{Msg: fmt.Sprintf("ERR invalid expire time in '%s' command", strings.ToLower(name))}
}

// Appender receives the records of successful mutations.
type Appender interface {
	Append(rec aof.Record) error
}

// Dispatcher executes decoded commands against a store.
// It is safe for concurrent use by many sessions.
type Dispatcher struct {
	store    *memory.Store
	aof      Appender
	metrics  *metric.Registry
	logger   logger.Logger
	commands map[string]command
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAppender logs every successful mutation to a.
func WithAppender(a Appender) DispatcherOption {
	return func(d *Dispatcher) {
		d.aof = a
	}
}

// WithMetrics records per-command counters and latencies in r.
func WithMetrics(r *metric.Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = r
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher returns a dispatcher serving the built-in command set.
func NewDispatcher(store *memory.Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		logger:   logger.Discard(),
		commands: make(map[string]command, len(builtinCommands)),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, c := range builtinCommands {
		d.commands[c.name()] = c
	}
	return d
}

// Store returns the store commands run against.
func (d *Dispatcher) Store() *memory.Store {
	return d.store
}

// Dispatch runs argv and returns its reply. It never panics: every failure
// becomes an error reply.
func (d *Dispatcher) Dispatch(ctx context.Context, argv []string) (reply resp.Reply) {
	if len(argv) == 0 {
		return errorReply(errEmptyCommand)
	}

	name := strings.ToUpper(argv[0])
	cmd, ok := d.commands[name]
	if !ok {
		d.metrics.ObserveCommand("unknown", metric.StatusError, 0)
		return errorReply(errUnknownCommand(argv[0]))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.L(ctx).Error("command panicked",
				"command", name,
				"panic", r,
				"stack", string(debug.Stack()))
			reply = resp.Errorf("ERR internal error: %v", r)
		}
		status := metric.StatusOK
		if reply.IsError() {
			status = metric.StatusError
		}
		d.metrics.ObserveCommand(name, status, time.Since(start).Seconds())
	}()

	if !arityOK(cmd.arity(), len(argv)) {
		return errorReply(errWrongArgs(name))
	}

	r, err := cmd.run(ctx, d, argv[1:])
	if err != nil {
		var ce *CommandError
		if !errors.As(err, &ce) {
			logger.L(ctx).Error("command failed", "command", name, "error", err)
		}
		return errorReply(err)
	}
	return r
}

// IsQuit reports whether argv asks the session to close.
func IsQuit(argv []string) bool {
	return len(argv) > 0 && strings.EqualFold(argv[0], "QUIT")
}

// appendLog writes rec to the append log, if any. Failures are logged and
// counted, never returned to the client.
func (d *Dispatcher) appendLog(ctx context.Context, rec aof.Record) {
	if d.aof == nil {
		return
	}
	err := d.aof.Append(rec)
	d.metrics.RecordAOFAppend(err)
	if err != nil {
		logger.L(ctx).Warn("append log write failed",
			"op", string(rec.Op()),
			"key", rec.Key(),
			"error", err)
	}
}

// arityOK follows the Redis convention: a positive arity is exact, a
// negative one is a minimum. Both count the command name.
func arityOK(arity, argc int) bool {
	if arity >= 0 {
		return argc == arity
	}
	return argc >= -arity
}

func errorReply(err error) resp.Reply {
	var ce *CommandError
	if errors.As(err, &ce) {
		return resp.Error(ce.Msg)
	}
	return resp.Errorf("ERR internal error: %v", err)
}
