package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "MINIREDIS_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	envKeys   map[string]string
	loaded    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithKnownKeys registers dotted keys so that environment names whose
// segments contain underscores resolve correctly.
func WithKnownKeys(keys []string) Option {
	return func(l *Loader) {
		for _, k := range keys {
			l.envKeys[envName(k)] = k
		}
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		envKeys:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads the file and environment sources and unmarshals the result
// over target, so fields absent from every source keep their values.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.loaded = true
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables.
// Example: MINIREDIS_SERVER_REDIS_ADDR=0.0.0.0:6380 sets server.redis.addr.
func (l *Loader) LoadEnv() error {
	provider := env.Provider(l.envPrefix, ".", l.envKey)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func (l *Loader) envKey(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
	if key, ok := l.envKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "_", ".")
}

// envName flattens a dotted key the way LoadEnv sees it after the prefix
// is stripped.
func envName(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, ".", "_"))
}

// LoadMap loads configuration from a map (used for flags and tests).
// Keys may be dotted or nested.
func (l *Loader) LoadMap(data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Get returns a value from the configuration by key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt returns an int value from the configuration.
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool returns a bool value from the configuration.
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// IsLoaded returns true if configuration has been loaded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// All returns all configuration as a map.
func (l *Loader) All() map[string]any {
	return l.k.All()
}

// Keys returns all configuration keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

// FilePath returns the configured file path, if any.
func (l *Loader) FilePath() string {
	return l.filePath
}
