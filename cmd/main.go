package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/scoreboard/internal/adapters/cache"
	"github.com/okian/scoreboard/internal/adapters/grader"
	"github.com/okian/scoreboard/internal/adapters/http/api"
	"github.com/okian/scoreboard/internal/adapters/http/swagger"
	"github.com/okian/scoreboard/internal/adapters/repository"
	app "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/config"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "scoreboard exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Get().Warn(ctx, "ignoring unreadable .env file", logger.Error(err))
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if cfg.LogFormat != "text" {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			return err
		}
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	snapshots, err := buildCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithCache(snapshots, cfg.CacheBackend),
		app.WithCacheTTL(cfg.ContestantCacheTTL(), cfg.AdminCacheTTL()),
		app.WithConcurrency(cfg.AggregationConcurrency),
		app.WithComputeTimeout(cfg.ComputeTimeout()),
		app.WithWarmup(cfg.WarmupEnabled),
		app.WithWorkerCount(cfg.WarmWorkerCount),
		app.WithQueueSize(cfg.WarmQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
	}
	if cfg.GraderURL != "" {
		client, err := grader.New(cfg.GraderURL,
			grader.WithTimeout(cfg.GraderTimeout()),
			grader.WithRateLimit(cfg.GraderRateLimit, cfg.GraderBurst),
			grader.WithLogger(log.Named("grader")),
		)
		if err != nil {
			_ = snapshots.Close()
			_ = store.Close()
			return err
		}
		opts = append(opts, app.WithDetailFetcher(client))
	}

	svc := app.New(store, opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildStore opens the configured run store.
func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	storeLog := repository.WithLogger(logger.Get().Named("store"))

	if cfg.Store == config.BackendPostgres {
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL,
			storeLog,
			repository.WithMaxConns(cfg.DatabaseMaxConns),
		)
		if err != nil {
			return nil, err
		}
		if cfg.DatabaseMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		if cfg.FixturePath != "" {
			f, err := repository.LoadFixture(cfg.FixturePath)
			if err == nil {
				err = pg.Import(ctx, f)
			}
			if err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		return pg, nil
	}

	if cfg.FixturePath == "" {
		logger.Get().Warn(ctx, "memory store without fixture_path starts empty")
		return repository.NewMemoryStore(storeLog), nil
	}
	f, err := repository.LoadFixture(cfg.FixturePath)
	if err != nil {
		return nil, err
	}
	return repository.NewMemoryStoreFromFixture(f, storeLog)
}

// buildCache opens the configured snapshot cache.
func buildCache(ctx context.Context, cfg *config.Config) (*cache.ScoreboardCache, error) {
	cacheLog := cache.WithLogger(logger.Get().Named("cache"))

	if cfg.CacheBackend == config.BackendRedis {
		rc := cache.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr()
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		rs, err := cache.NewRedisStore(ctx, rc)
		if err != nil {
			return nil, err
		}
		return cache.NewScoreboardCache(rs, cacheLog), nil
	}
	return cache.NewScoreboardCache(cache.NewMemoryStore(), cacheLog), nil
}

// newHandler mounts the docs and API routes behind the request id middleware.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return api.RequestIDMiddleware(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the warm pool gauges from service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if capacity, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(capacity)
	}
}
