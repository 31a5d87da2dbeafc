package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/yndnr/miniredis-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		// Error replies are already printed.
		if !errors.Is(err, command.ErrReply) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
