package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
	Named(component string) Logger
	Enabled(level string) bool
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output is the output writer (defaults to os.Stderr).
	Output io.Writer
	// File, when set and Output is nil, appends to the named file.
	File string
	// AddSource adds source file information to log entries.
	AddSource bool
	// MaxValueLen truncates long string attributes (0 = DefaultMaxValueLen).
	MaxValueLen int
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// slogLogger wraps slog.Logger with additional functionality.
type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

// globalLevel holds the current log level for dynamic adjustment.
var globalLevel = new(slog.LevelVar)

// New creates a new logger with the given configuration.
func New(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	globalLevel.Set(level)

	maxLen := cfg.MaxValueLen
	if maxLen <= 0 {
		maxLen = DefaultMaxValueLen
	}

	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     globalLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactSensitive(a, maxLen)
		},
	}

	output := cfg.Output
	if output == nil && cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = f
	}
	if output == nil {
		output = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(output, opts)
	case "", "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return &slogLogger{
		logger: slog.New(handler),
		ctx:    context.Background(),
	}, nil
}

// SetLevel changes the level of every logger created by New.
func SetLevel(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	globalLevel.Set(l)
	return nil
}

// GetLevel returns the current log level as a string.
func GetLevel() string {
	switch globalLevel.Level() {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.DebugContext(l.ctx, msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.InfoContext(l.ctx, msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.WarnContext(l.ctx, msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.ErrorContext(l.ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{
		logger: l.logger.With(args...),
		ctx:    l.ctx,
	}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{
		logger: l.logger,
		ctx:    ctx,
	}
}

func (l *slogLogger) Named(component string) Logger {
	return l.With("component", component)
}

// Enabled reports whether level would be emitted. Unknown levels count as
// info.
func (l *slogLogger) Enabled(level string) bool {
	lv, err := ParseLevel(level)
	if err != nil {
		lv = slog.LevelInfo
	}
	return l.logger.Enabled(l.ctx, lv)
}

// ParseLevel converts a level name to slog.Level. An empty name is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Discard returns a logger that drops everything, for tests.
func Discard() Logger {
	return &slogLogger{
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
		ctx:    context.Background(),
	}
}

// Global logger instance for convenience methods.
var defaultLogger atomic.Pointer[slogLogger]

func init() {
	// Initialize with a default logger
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*slogLogger))
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		defaultLogger.Store(sl)
	}
}

// Default returns the default global logger.
func Default() Logger {
	return defaultLogger.Load()
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) {
	defaultLogger.Load().Debug(msg, args...)
}

// Info logs at info level using the default logger.
func Info(msg string, args ...any) {
	defaultLogger.Load().Info(msg, args...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) {
	defaultLogger.Load().Warn(msg, args...)
}

// Error logs at error level using the default logger.
func Error(msg string, args ...any) {
	defaultLogger.Load().Error(msg, args...)
}
