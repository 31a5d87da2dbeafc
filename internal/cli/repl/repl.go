package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ExecFunc runs one command. Returning ErrExit ends the loop.
type ExecFunc func(args []string) error

// ErrExit stops Run without reporting an error.
var ErrExit = errors.New("repl: exit")

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      ExecFunc
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithPrompt sets the prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a new REPL instance.
func New(exec ExecFunc, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    "miniredis> ",
		exec:      exec,
		completer: NewCompleter(),
		history:   NewHistory("", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the REPL loop. It returns nil on EOF, exit or quit, and
// saves history on the way out.
func (r *REPL) Run() error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: cannot load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: cannot save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		if line = strings.TrimSpace(line); line != "" {
			if stop := r.handle(line); stop {
				return nil
			}
		}
		if eof {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

// handle runs one line and reports whether the loop should stop.
func (r *REPL) handle(line string) bool {
	r.history.Add(line)

	args, err := Split(line)
	if err != nil {
		fmt.Fprintf(r.output, "%v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch strings.ToLower(args[0]) {
	case "exit":
		return true
	case "help":
		r.help(args[1:])
		return false
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false
	}

	err = r.exec(args)
	if errors.Is(err, ErrExit) {
		return true
	}
	if err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return false
}

func (r *REPL) help(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no command matches %q\n", prefix)
		return
	}
	fmt.Fprintln(r.output, strings.Join(matches, " "))
}
