package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr       = "127.0.0.1:6379"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultReadBufferSize  = 4 << 10
	DefaultMaxArrayLen     = 1024
	DefaultMaxBulkLen      = 512 << 20
	DefaultShutdownTimeout = 10 * time.Second

	DefaultShardCount      = 16
	DefaultAOFDir          = "./data/aof"
	DefaultAOFSync         = "everysec"
	DefaultAOFSyncInterval = time.Second
	DefaultAOFMaxFileSize  = 64 << 20

	DefaultMetricsAddr = "127.0.0.1:9121"
	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:           DefaultRedisAddr,
				ReadTimeout:    DefaultReadTimeout,
				WriteTimeout:   DefaultWriteTimeout,
				IdleTimeout:    DefaultIdleTimeout,
				ReadBufferSize: DefaultReadBufferSize,
				MaxArrayLen:    DefaultMaxArrayLen,
				MaxBulkLen:     DefaultMaxBulkLen,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			ShardCount:      DefaultShardCount,
			AOFEnabled:      false,
			AOFDir:          DefaultAOFDir,
			AOFSync:         DefaultAOFSync,
			AOFSyncInterval: DefaultAOFSyncInterval,
			AOFMaxFileSize:  DefaultAOFMaxFileSize,
		},
		Metrics: MetricsSection{
			Enabled: false,
			Addr:    DefaultMetricsAddr,
			Path:    DefaultMetricsPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
