package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check that the server answers",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return fmt.Errorf("usage: ping")
			}
			return do(c, "PING")
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: get KEY")
			}
			return do(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "ex",
				Usage: "Expire after this many seconds",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: set [--ex SECONDS] KEY VALUE")
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if c.IsSet("ex") {
				args = append(args, "EX", strconv.FormatInt(c.Int64("ex"), 10))
			}
			return do(c, args...)
		},
	}
}

// DelCommand returns the del command.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete keys",
		ArgsUsage: "KEY [KEY ...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("usage: del KEY [KEY ...]")
			}
			return do(c, append([]string{"DEL"}, c.Args().Slice()...)...)
		},
	}
}

// ExecCommand returns the exec command, which sends its arguments as-is.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:            "exec",
		Usage:           "Send an arbitrary command",
		ArgsUsage:       "COMMAND [ARG ...]",
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("usage: exec COMMAND [ARG ...]")
			}
			return do(c, c.Args().Slice()...)
		},
	}
}
