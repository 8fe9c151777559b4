package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/idp-redirect/pkg/audit"
	"github.com/platinummonkey/idp-redirect/pkg/config"
	"github.com/platinummonkey/idp-redirect/pkg/httputil"
	"github.com/platinummonkey/idp-redirect/pkg/middleware"
	"github.com/platinummonkey/idp-redirect/pkg/observability"
	"github.com/platinummonkey/idp-redirect/pkg/sso"
	"github.com/platinummonkey/idp-redirect/pkg/storage"
)

var version = "dev"

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	migrateOnly := flag.Bool("migrate-only", false, "Apply database migrations and exit")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName).
		WithField("version", version)

	if err := run(cfg, logger, *migrateOnly); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, migrateOnly bool) error {
	ctx := context.Background()

	// Tracing
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Database
	var db *sql.DB
	if cfg.Database.URL != "" {
		if cfg.Database.MigrateOnStart || migrateOnly {
			if err := storage.Migrate(cfg.Database); err != nil {
				return err
			}
			logger.Info("Database migrations applied")
		}
		if migrateOnly {
			return nil
		}
		db, err = storage.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		logger.WithField("driver", cfg.Database.Driver).Info("Connected to database")
	} else if migrateOnly {
		return fmt.Errorf("no database configured")
	}

	// Domain mappings
	var adminStorage *sso.Storage
	if db != nil {
		adminStorage = sso.NewStorage(db, logger).WithMetrics(metrics)
	}

	var backend sso.MappingStore
	var fileStore *sso.FileStore
	switch cfg.Mappings.Source {
	case config.MappingSourceFile:
		fileStore, err = sso.NewFileStore(cfg.Mappings.FilePath, logger)
		if err != nil {
			return err
		}
		fileStore.WithMetrics(metrics)
		if cfg.Mappings.Watch {
			if err := fileStore.Watch(); err != nil {
				return err
			}
		}
		backend = fileStore
	default:
		backend = adminStorage
	}

	var cache *sso.CachedStore
	if cfg.Mappings.CacheEnabled {
		opts := sso.CacheOptions{Size: cfg.Mappings.CacheSize, TTL: cfg.Mappings.CacheTTL}
		if metrics != nil {
			opts.OnHit = metrics.MappingCacheHitsTotal.Inc
			opts.OnMiss = metrics.MappingCacheMissesTotal.Inc
		}
		cache = sso.NewCachedStore(backend, opts)
		backend = cache
	}

	// Sessions
	var sessions sso.SessionStore
	var redisClient *redis.Client
	switch cfg.Sessions.Backend {
	case config.SessionBackendRedis:
		redisClient, err = sso.NewRedisClient(ctx, cfg.Sessions.RedisURL)
		if err != nil {
			return err
		}
		sessions = sso.NewRedisSessionStore(redisClient, cfg.Sessions.TTL)
	default:
		sessions = sso.NewMemorySessionStore(cfg.Sessions.MemoryLimit, cfg.Sessions.TTL)
	}

	renderer, err := sso.NewTemplateRenderer()
	if err != nil {
		return err
	}

	// Login step and HTTP host
	authenticator := sso.Factory{}.Create(backend, logger)
	handlers := sso.NewHandlers(authenticator, sessions, renderer, cfg.Server.PublicBaseURL, logger).
		WithMetrics(metrics)
	if cfg.AdminAvailable() && adminStorage != nil {
		// Admin edits only invalidate the cache when it fronts the same SQL table
		if cfg.Mappings.Source == config.MappingSourceSQL {
			handlers.WithAdmin(adminStorage, cache)
		} else {
			handlers.WithAdmin(adminStorage, nil)
		}
	}
	var auditLogger *audit.FileLogger
	if cfg.AdminAvailable() && cfg.Server.AuditDir != "" {
		auditCfg := audit.DefaultFileLoggerConfig()
		auditCfg.BasePath = cfg.Server.AuditDir
		auditCfg.Logger = logger
		auditLogger, err = audit.NewFileLogger(auditCfg)
		if err != nil {
			return err
		}
		handlers.WithAudit(auditLogger)
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		})
		limiter.StartCleanup(bgCtx)
		handlers.WithLoginMiddleware(limiter.Handler)
	}

	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.RecoveryMiddleware(logger))
	router.Use(httputil.LoggingMiddleware(logger))
	router.Use(httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes))
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}
	handlers.RegisterRoutes(router)

	// Health and metrics on a separate port
	healthRouter := mux.NewRouter()
	observability.RegisterHealthRoutes(healthRouter, observability.NewHealthChecker(db, redisClient).WithVersion(version))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthRouter, registry)
	}

	// Periodic gauge refresh
	scheduler := cron.New()
	if counter, ok := backend.(sso.MappingCounter); ok && metrics != nil {
		if _, err := sso.ScheduleGaugeRefresh(scheduler, cfg.Mappings.GaugeRefreshSchedule, counter, metrics, logger); err != nil {
			stopBackground()
			return err
		}
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthRouter,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopBackground()
		<-scheduler.Stop().Done()
		return nil
	})
	if auditLogger != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return auditLogger.Close() })
	}
	if fileStore != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return fileStore.Close() })
	}
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return redisClient.Close() })
	}
	if db != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return db.Close() })
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	serverErrs := make(chan error, 2)
	for _, srv := range []*http.Server{server, healthServer} {
		go func(srv *http.Server) {
			defer observability.RecoverPanic(logger, "http server")
			logger.WithField("addr", srv.Addr).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrs <- fmt.Errorf("server %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	go func() {
		err := <-serverErrs
		logger.WithError(err).Error("HTTP server stopped unexpectedly")
		if shutdownErr := shutdown.Shutdown(); shutdownErr != nil {
			logger.WithError(shutdownErr).Error("Shutdown failed")
		}
		os.Exit(1)
	}()

	return shutdown.WaitForShutdown()
}
