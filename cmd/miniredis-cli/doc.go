// Package main provides the entry point for miniredis-cli.
//
// Usage:
//
//	miniredis-cli                        # interactive mode
//	miniredis-cli -s 10.0.0.5:6379 get k
//	miniredis-cli set --ex 60 session:1 alice
//	miniredis-cli -o json exec ttl session:1
//	miniredis-cli log dump --dir /var/lib/miniredis/aof
//
// Settings come from ~/.miniredis/cli.yaml, MINIREDIS_CLI_* environment
// variables and flags, in increasing precedence.
package main
