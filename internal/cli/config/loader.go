package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yndnr/miniredis-go/internal/infra/confloader"
)

// EnvPrefix is the environment variable prefix for CLI settings.
const EnvPrefix = "MINIREDIS_CLI_"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".miniredis", "cli.yaml")
}

// DefaultHistoryPath returns the default REPL history file path.
func DefaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".miniredis", "history")
}

// Load loads CLI configuration from file and environment, then applies
// overrides (dotted keys, typically from flags). An empty path means the
// default location, which may be absent. An explicit path must exist.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	opts := []confloader.Option{
		confloader.WithEnvPrefix(EnvPrefix),
		confloader.WithKnownKeys(keyPaths()),
	}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, confloader.WithConfigFile(path))
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file: %w", err)
	}

	cfg := Default()
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
