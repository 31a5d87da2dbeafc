package config

import "time"

// ServerConfig is the root configuration for miniredis-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr string `koanf:"addr"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// IdleTimeout closes connections with no traffic (0 = never).
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	ReadBufferSize int `koanf:"read_buffer_size"`
	// MaxConnections caps concurrent clients (0 = unlimited).
	MaxConnections int `koanf:"max_connections"`

	// RateLimit is commands per second per connection (0 = unlimited).
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	MaxArrayLen int `koanf:"max_array_len"`
	MaxBulkLen  int `koanf:"max_bulk_len"`
}

// StorageSection configures the key-value store and the append-only log.
type StorageSection struct {
	ShardCount int `koanf:"shard_count"`

	AOFEnabled        bool          `koanf:"aof_enabled"`
	AOFDir            string        `koanf:"aof_dir"`
	AOFSync           string        `koanf:"aof_sync"`
	AOFSyncInterval   time.Duration `koanf:"aof_sync_interval"`
	AOFMaxFileSize    int64         `koanf:"aof_max_file_size"`
	AOFRetainSegments int           `koanf:"aof_retain_segments"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Path    string `koanf:"path"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}
