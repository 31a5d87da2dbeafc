// Package command provides CLI command definitions for miniredis-cli.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and interactive REPL mode:
//
//   - root.go: root command, global flags, REPL default action
//   - redis.go: ping, get, set, del and exec
//   - log.go: offline inspection of append log segments
package command
