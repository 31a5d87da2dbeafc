package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/miniredis-go/internal/storage/aof"
	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyMetrics(&cfg.Metrics, cfg.Server.Redis.Addr),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	r := &cfg.Redis

	if err := verifyAddr("server.redis.addr", r.Addr); err != nil {
		errs = append(errs, err)
	}
	if r.ReadTimeout < 0 || r.WriteTimeout < 0 || r.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.redis timeouts must not be negative"))
	}
	if r.ReadBufferSize < 512 {
		errs = append(errs, fmt.Errorf("server.redis.read_buffer_size must be at least 512, got %d", r.ReadBufferSize))
	}
	if r.MaxConnections < 0 {
		errs = append(errs, errors.New("server.redis.max_connections must not be negative"))
	}
	if r.RateLimit < 0 {
		errs = append(errs, errors.New("server.redis.rate_limit must not be negative"))
	}
	if r.RateBurst < 0 {
		errs = append(errs, errors.New("server.redis.rate_burst must not be negative"))
	}
	if r.MaxArrayLen < 1 {
		errs = append(errs, errors.New("server.redis.max_array_len must be at least 1"))
	}
	if r.MaxBulkLen < 1 {
		errs = append(errs, errors.New("server.redis.max_bulk_len must be at least 1"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	var errs []error

	if cfg.ShardCount < 1 || cfg.ShardCount&(cfg.ShardCount-1) != 0 {
		errs = append(errs, fmt.Errorf("storage.shard_count must be a power of two, got %d", cfg.ShardCount))
	}
	if !cfg.AOFEnabled {
		return errors.Join(errs...)
	}
	if strings.TrimSpace(cfg.AOFDir) == "" {
		errs = append(errs, errors.New("storage.aof_dir is required when aof is enabled"))
	}
	if _, err := aof.ParseSyncMode(cfg.AOFSync); err != nil {
		errs = append(errs, fmt.Errorf("storage.aof_sync: %w", err))
	}
	if cfg.AOFSyncInterval < 0 {
		errs = append(errs, errors.New("storage.aof_sync_interval must not be negative"))
	}
	if cfg.AOFMaxFileSize < 0 {
		errs = append(errs, errors.New("storage.aof_max_file_size must not be negative"))
	}
	if cfg.AOFRetainSegments < 0 {
		errs = append(errs, errors.New("storage.aof_retain_segments must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyMetrics(cfg *MetricsSection, redisAddr string) error {
	if !cfg.Enabled {
		return nil
	}
	var errs []error
	if err := verifyAddr("metrics.addr", cfg.Addr); err != nil {
		errs = append(errs, err)
	}
	if cfg.Addr == redisAddr {
		errs = append(errs, errors.New("metrics.addr conflicts with server.redis.addr"))
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with '/', got %q", cfg.Path))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
	}
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
