package config

// Summary flattens the settings worth reporting at startup into slog
// key/value pairs.
func Summary(cfg *ServerConfig) []any {
	r := cfg.Server.Redis
	s := cfg.Storage
	out := []any{
		"redis_addr", r.Addr,
		"read_timeout", r.ReadTimeout,
		"write_timeout", r.WriteTimeout,
		"idle_timeout", r.IdleTimeout,
		"max_connections", r.MaxConnections,
		"rate_limit", r.RateLimit,
		"shard_count", s.ShardCount,
		"aof_enabled", s.AOFEnabled,
		"metrics_enabled", cfg.Metrics.Enabled,
		"log_level", cfg.Log.Level,
	}
	if s.AOFEnabled {
		out = append(out, "aof_dir", s.AOFDir, "aof_sync", s.AOFSync)
	}
	if cfg.Metrics.Enabled {
		out = append(out, "metrics_addr", cfg.Metrics.Addr)
	}
	return out
}
