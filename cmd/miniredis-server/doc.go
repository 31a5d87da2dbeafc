// Package main provides the entry point for miniredis-server.
//
// miniredis-server is an in-memory key-value store that speaks the Redis
// serialization protocol. It serves PING, ECHO, GET, SET [EX], DEL, EXISTS,
// EXPIRE, TTL, DBSIZE and QUIT, optionally records every mutation in an
// append-only log, and exposes Prometheus metrics on a separate admin port.
//
// Usage:
//
//	miniredis-server [flags]
//	miniredis-server --config /path/to/config.yaml
//	miniredis-server --addr 0.0.0.0:6380 --log-level debug
//
// Configuration precedence, lowest first: built-in defaults, the YAML
// file, MINIREDIS_* environment variables, command-line flags.
package main
