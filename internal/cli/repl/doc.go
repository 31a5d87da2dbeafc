// Package repl provides interactive mode for miniredis-cli.
//
//   - repl.go: the read-eval-print loop
//   - split.go: redis-cli compatible argument splitting
//   - completer.go: command name lookup for help
//   - history.go: command history persistence
//
// Lines are split with the same quoting rules as redis-cli: double
// quotes accept \n \r \t \b \a \\ \" and \xHH escapes, single quotes
// only \'. A line with an unbalanced quote is rejected without being
// sent.
package repl
