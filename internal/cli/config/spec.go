package config

import (
	"fmt"
	"time"

	"github.com/yndnr/miniredis-go/internal/cli/output"
)

// CLIConfig is the configuration for miniredis-cli.
type CLIConfig struct {
	// Server is the host:port of the RESP listener.
	Server string `koanf:"server"`

	// Output is the reply format: text, raw or json.
	Output string `koanf:"output"`

	// Timeout bounds dialing and each request round trip.
	Timeout time.Duration `koanf:"timeout"`

	// HistoryFile stores interactive history. Empty disables persistence.
	HistoryFile string `koanf:"history_file"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:      "127.0.0.1:6379",
		Output:      string(output.FormatText),
		Timeout:     5 * time.Second,
		HistoryFile: DefaultHistoryPath(),
	}
}

// Validate checks the configuration.
func (c *CLIConfig) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server: must not be empty")
	}
	if _, err := output.ParseFormat(c.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout: must be positive, got %s", c.Timeout)
	}
	return nil
}

// keyPaths lists the dotted keys so environment names with underscores
// resolve to the right field.
func keyPaths() []string {
	return []string{"server", "output", "timeout", "history_file"}
}
