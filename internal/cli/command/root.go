package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/miniredis-go/internal/cli/config"
	"github.com/yndnr/miniredis-go/internal/cli/connection"
	"github.com/yndnr/miniredis-go/internal/cli/output"
	"github.com/yndnr/miniredis-go/internal/cli/repl"
	"github.com/yndnr/miniredis-go/internal/infra/buildinfo"
)

// ErrReply is returned by one-shot commands whose reply was a RESP
// error. The reply itself has already been printed.
var ErrReply = errors.New("server replied with an error")

const metadataConfig = "config"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "miniredis-cli",
		Usage:   "Command-line client for miniredis-server",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PingCommand(),
			GetCommand(),
			SetCommand(),
			DelCommand(),
			ExecCommand(),
			LogCommand(),
		},
		Before: loadConfig,
		Action: runREPL,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to CLI config file (default ~/.miniredis/cli.yaml)",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Server address host:port",
			EnvVars: []string{"MINIREDIS_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, raw, json",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Dial and request timeout",
		},
	}
}

// loadConfig resolves settings once and stores them in the app metadata.
func loadConfig(c *cli.Context) error {
	overrides := map[string]any{}
	if s := c.String("server"); s != "" {
		overrides["server"] = s
	}
	if o := c.String("output"); o != "" {
		overrides["output"] = o
	}
	if c.Duration("timeout") > 0 {
		overrides["timeout"] = c.Duration("timeout").String()
	}

	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return err
	}
	c.App.Metadata[metadataConfig] = cfg
	return nil
}

// Settings returns the resolved configuration.
func Settings(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metadataConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// Dial connects to the configured server.
func Dial(c *cli.Context) (*connection.Client, error) {
	cfg := Settings(c)
	return connection.Dial(cfg.Server, cfg.Timeout)
}

// formatter returns the formatter for the configured output format.
func formatter(c *cli.Context) output.Formatter {
	format, _ := output.ParseFormat(Settings(c).Output)
	return output.NewFormatter(format)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// runREPL is the default action: an interactive session on one
// connection, redialed after a transport error.
func runREPL(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown command %q, see --help", c.Args().First())
	}

	cfg := Settings(c)
	out := writer(c)
	f := formatter(c)

	var client *connection.Client
	defer func() {
		if client != nil {
			client.Close()
		}
	}()

	exec := func(args []string) error {
		if client == nil {
			cl, err := connection.Dial(cfg.Server, cfg.Timeout)
			if err != nil {
				return err
			}
			client = cl
		}
		reply, err := client.Do(args...)
		if err != nil {
			client.Close()
			client = nil
			return err
		}
		if err := f.FormatReply(out, reply); err != nil {
			return err
		}
		if strings.EqualFold(args[0], "quit") {
			return repl.ErrExit
		}
		return nil
	}

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	r := repl.New(exec,
		repl.WithIO(in, out),
		repl.WithPrompt(cfg.Server+"> "),
		repl.WithHistory(repl.NewHistory(cfg.HistoryFile, repl.DefaultHistorySize)),
	)
	return r.Run()
}

// do sends one command and prints the reply.
func do(c *cli.Context, args ...string) error {
	client, err := Dial(c)
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Do(args...)
	if err != nil {
		return err
	}
	if err := formatter(c).FormatReply(writer(c), reply); err != nil {
		return err
	}
	if reply.IsError() {
		return ErrReply
	}
	return nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
