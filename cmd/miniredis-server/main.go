package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/miniredis-go/internal/infra/buildinfo"
	"github.com/yndnr/miniredis-go/internal/infra/confloader"
	"github.com/yndnr/miniredis-go/internal/infra/shutdown"
	"github.com/yndnr/miniredis-go/internal/server/config"
	"github.com/yndnr/miniredis-go/internal/server/httpserver"
	"github.com/yndnr/miniredis-go/internal/server/redisserver"
	"github.com/yndnr/miniredis-go/internal/storage/aof"
	"github.com/yndnr/miniredis-go/internal/storage/memory"
	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line inputs to run.
type options struct {
	configFile  string
	addr        string
	logLevel    string
	checkConfig bool
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "miniredis-server",
		Usage:   "In-memory key-value store speaking RESP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"MINIREDIS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "RESP listen address (overrides server.redis.addr)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides log.level)",
			},
			&cli.BoolFlag{
				Name:  "check-config",
				Usage: "Validate the configuration and exit",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, options{
				configFile:  c.String("config"),
				addr:        c.String("addr"),
				logLevel:    c.String("log-level"),
				checkConfig: c.Bool("check-config"),
			})
		},
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.checkConfig {
		fmt.Println("configuration OK")
		return nil
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	bi := buildinfo.Get()
	log.Info("starting miniredis-server",
		"version", bi.Version,
		"commit", bi.Commit,
		"go", bi.GoVersion,
		"config", opts.configFile)
	log.Info("configuration loaded", config.Summary(cfg)...)

	reg := metric.Global()

	store := memory.New(
		memory.WithShardCount(cfg.Storage.ShardCount),
		memory.WithExpireHook(func(string) { reg.IncKeyExpired() }),
	)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout,
		shutdown.WithLogger(log.Named("shutdown")))

	// Hooks run in reverse order of registration: listeners stop before
	// the append log is closed.
	dispatcherOpts := []redisserver.DispatcherOption{
		redisserver.WithMetrics(reg),
		redisserver.WithLogger(log.Named("dispatcher")),
	}
	var aofSize metric.SizeReporter
	if cfg.Storage.AOFEnabled {
		w, err := initAOF(cfg, log.Named("aof"), reg)
		if err != nil {
			return fmt.Errorf("init append log: %w", err)
		}
		shutdownHandler.OnShutdown("aof", func(context.Context) error {
			return w.Close()
		})
		dispatcherOpts = append(dispatcherOpts, redisserver.WithAppender(w))
		aofSize = aof.NewCompactor(cfg.Storage.AOFDir)
	}
	reg.MustRegister(metric.NewCollector(store, aofSize))

	redisSrv := redisserver.New(
		redisConfig(cfg),
		redisserver.NewDispatcher(store, dispatcherOpts...),
		redisserver.WithServerLogger(log.Named("redis")),
		redisserver.WithServerMetrics(reg),
	)
	if err := redisSrv.Start(ctx); err != nil {
		_ = shutdownHandler.Wait(cancelled())
		return fmt.Errorf("start redis server: %w", err)
	}
	shutdownHandler.OnShutdown("redis", redisSrv.Shutdown)

	if cfg.Metrics.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Metrics:     reg.Handler(),
			MetricsPath: cfg.Metrics.Path,
			Ready:       func() bool { return redisSrv.Addr() != nil },
			Logger:      log.Named("http"),
		})
		adminSrv := httpserver.New(cfg.Metrics.Addr, router, log.Named("http"))
		if err := adminSrv.Start(); err != nil {
			_ = shutdownHandler.Wait(cancelled())
			return fmt.Errorf("start admin http server: %w", err)
		}
		shutdownHandler.OnShutdown("http", adminSrv.Shutdown)
	}

	if opts.configFile != "" {
		w, err := watchConfig(opts, log.Named("config"))
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return w.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop", "addr", redisSrv.Addr().String())
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, file, environment and flags, then verifies
// the result.
func loadConfig(opts options) (*config.ServerConfig, error) {
	cfg := config.Default()

	loaderOpts := []confloader.Option{confloader.WithKnownKeys(config.KeyPaths())}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, confloader.WithConfigFile(opts.configFile))
	}
	loader := confloader.NewLoader(loaderOpts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	overrides := map[string]any{}
	if opts.addr != "" {
		overrides["server.redis.addr"] = opts.addr
	}
	if opts.logLevel != "" {
		overrides["log.level"] = opts.logLevel
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger and makes it the default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	lc := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}
	if cfg.Log.File == "" {
		lc.Output = os.Stdout
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// initAOF opens the append log described by cfg.Storage.
func initAOF(cfg *config.ServerConfig, log logger.Logger, reg *metric.Registry) (*aof.Writer, error) {
	s := cfg.Storage
	mode, err := aof.ParseSyncMode(s.AOFSync)
	if err != nil {
		return nil, err
	}

	ac := aof.DefaultConfig(s.AOFDir)
	ac.SyncMode = mode
	if s.AOFSyncInterval > 0 {
		ac.SyncInterval = s.AOFSyncInterval
	}
	if s.AOFMaxFileSize > 0 {
		ac.MaxFileSize = s.AOFMaxFileSize
	}
	ac.RetainSegments = s.AOFRetainSegments

	w, err := aof.NewWriter(ac, aof.WithErrorHandler(func(err error) {
		reg.RecordAOFAppend(err)
		log.Error("append log flush failed", "error", err)
	}))
	if err != nil {
		return nil, err
	}
	log.Info("append log opened", "dir", s.AOFDir, "sync", string(mode), "segment", w.Segment())
	return w, nil
}

func redisConfig(cfg *config.ServerConfig) *redisserver.Config {
	r := cfg.Server.Redis
	return &redisserver.Config{
		Addr:           r.Addr,
		ReadTimeout:    r.ReadTimeout,
		WriteTimeout:   r.WriteTimeout,
		IdleTimeout:    r.IdleTimeout,
		ReadBufferSize: r.ReadBufferSize,
		MaxConnections: r.MaxConnections,
		RateLimit:      r.RateLimit,
		RateBurst:      r.RateBurst,
		MaxArrayLen:    r.MaxArrayLen,
		MaxBulkLen:     r.MaxBulkLen,
	}
}

// watchConfig reloads the file on change and applies the settings that
// can change at runtime. Today that is the log level.
func watchConfig(opts options, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(opts.configFile); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(path string) {
		cfg, err := loadConfig(opts)
		if err != nil {
			log.Warn("ignoring invalid configuration change", "path", path, "error", err)
			return
		}
		before := logger.GetLevel()
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("cannot apply log level", "level", cfg.Log.Level, "error", err)
			return
		}
		if after := logger.GetLevel(); after != before {
			log.Info("log level changed", "from", before, "to", after)
		}
		log.Debug("configuration reloaded; settings other than log.level need a restart", "path", path)
	})
	w.StartAsync()
	return w, nil
}

// cancelled returns a context that is already done, so Wait runs the
// registered hooks immediately.
func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
