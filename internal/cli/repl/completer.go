package repl

import (
	"sort"
	"strings"
)

// DefaultCommands are the command names the server understands, plus
// the REPL's own.
var DefaultCommands = []string{
	"ping", "echo", "quit",
	"get", "set", "del", "exists",
	"expire", "ttl", "dbsize",
	"help", "history", "exit",
}

// Completer looks up command names by prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer. Without arguments it uses
// DefaultCommands.
func NewCompleter(commands ...string) *Completer {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	sorted := append([]string(nil), commands...)
	sort.Strings(sorted)
	return &Completer{commands: sorted}
}

// Complete returns the commands starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
