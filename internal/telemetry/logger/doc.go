// Package logger provides structured logging for miniredis.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the process default
//   - context.go: context propagation of loggers and connection ids
//   - redact.go: masking of secrets and truncation of stored values
//
// The level is held in a shared slog.LevelVar, so SetLevel takes effect on
// every logger already handed out. The server uses this to apply log level
// changes from a reloaded config file.
package logger
