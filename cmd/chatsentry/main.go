package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chatsentry/chatsentry/pkg/api"
	"github.com/chatsentry/chatsentry/pkg/audit"
	"github.com/chatsentry/chatsentry/pkg/auth"
	"github.com/chatsentry/chatsentry/pkg/bot"
	"github.com/chatsentry/chatsentry/pkg/config"
	"github.com/chatsentry/chatsentry/pkg/middleware"
	"github.com/chatsentry/chatsentry/pkg/observability"
	"github.com/chatsentry/chatsentry/pkg/storage"
)

// directoryStore is what main needs from a concrete store implementation.
type directoryStore interface {
	auth.DirectoryStore
	Ping(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatsentry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"storage": cfg.Storage.Type,
		"port":    cfg.Server.Port,
	}).Info("starting chatsentry")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NopMetrics()
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	// Directory store
	store, err := newStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	// Audit trail
	var auditLog audit.Logger = audit.NopLogger{}
	if cfg.Audit.Enabled {
		fl, err := audit.NewFileLogger(audit.FileLoggerConfig{BasePath: cfg.Audit.Dir})
		if err != nil {
			return fmt.Errorf("initializing audit log: %w", err)
		}
		auditLog = fl
	}
	defer auditLog.Close()

	// Auth manager
	var bootstrap *auth.BootstrapAdmin
	if cfg.Auth.BootstrapAdminID != "" {
		bootstrap = &auth.BootstrapAdmin{
			UserID: cfg.Auth.BootstrapAdminID,
			Name:   cfg.Auth.BootstrapAdminName,
			Email:  cfg.Auth.BootstrapAdminEmail,
		}
	}
	manager, err := auth.NewManager(ctx, store, bootstrap, auth.ManagerConfig{
		Logger:  logger,
		Metrics: metrics,
		Audit:   auditLog,
	})
	if err != nil {
		return fmt.Errorf("initializing auth manager: %w", err)
	}

	// Auth gate
	gate := middleware.NewAuthMiddleware(manager, middleware.AuthMiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Audit:   auditLog,
	})

	// Optional Redis-backed rate limiting
	var redisClient *redis.Client
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisURL,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		defer redisClient.Close()
		limiter = middleware.NewRateLimiter(redisClient, &middleware.RateLimitConfig{
			MessagesPerWindow: cfg.RateLimit.MessagesPerWindow,
			WindowDuration:    cfg.RateLimit.WindowDuration,
		}, "")
	}

	// Message pipeline
	botLog := newBotLogger(cfg.Observability.LogLevel)
	router := bot.NewRouter(gate, manager, bot.RouterConfig{
		Logger:     botLog,
		Metrics:    metrics,
		Limiter:    limiter,
		DedupeSize: cfg.Bot.DedupeSize,
		DedupeTTL:  cfg.Bot.DedupeTTL,
	})
	router.Register(bot.NewAdminHandler(manager, cfg.Bot.CommandPrefix, botLog, metrics))
	if cfg.Bot.BackendURL != "" {
		backend := bot.NewHTTPBackend(cfg.Bot.BackendURL, cfg.Bot.BackendTimeout)
		router.Register(bot.NewQueryHandler(backend, botLog))
	}
	router.Register(bot.NewEchoHandler(botLog))

	// Idle session sweep
	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Auth.SweepSchedule, func() {
		defer observability.RecoverPanic(logger, "session sweep")
		if n := manager.CleanupIdleSessions(cfg.Auth.SessionTimeout); n > 0 {
			logger.WithField("count", n).Info("swept idle sessions")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling session sweep: %w", err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	g, ctx := errgroup.WithContext(ctx)

	// Reload the directory when the snapshot file changes on disk, so
	// out-of-band edits take effect without a restart.
	if fs, ok := store.(*storage.FileStore); ok && cfg.Storage.WatchEnabled {
		watcher := storage.NewWatcher(fs.Path(), 0, logger, func() {
			manager.Reload(context.Background())
		})
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	// Application server
	appServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(manager, router, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	g.Go(func() error {
		logger.WithField("addr", appServer.Addr).Info("application server listening")
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Health/metrics server on a separate port for probes
	health := observability.NewHealthChecker(store, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Shutdown on signal or first server error
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := appServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("application server shutdown")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func newStore(cfg config.StorageConfig) (directoryStore, error) {
	switch cfg.Type {
	case "file":
		return storage.NewFileStore(cfg.FilePath)
	case "sqlite":
		return storage.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return storage.NewPostgresStore(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func newBotLogger(level observability.LogLevel) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	switch level {
	case observability.DebugLevel:
		log.SetLevel(logrus.DebugLevel)
	case observability.WarnLevel:
		log.SetLevel(logrus.WarnLevel)
	case observability.ErrorLevel:
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
