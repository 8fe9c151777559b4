// Package observability provides structured logging, Prometheus metrics, health checks
// and OpenTelemetry tracing for the IdP redirect service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("domain", "example.com").Info("mapping resolved")
//
// Loggers are backed by logrus and emit JSON lines. Request handlers retrieve a
// request-scoped logger with FromContext.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.LoginStepOutcomesTotal.WithLabelValues("redirect", "redirected").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
