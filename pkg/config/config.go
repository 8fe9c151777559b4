package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
	"github.com/platinummonkey/idp-redirect/pkg/storage"
)

// Mapping sources
const (
	MappingSourceSQL  = "sql"
	MappingSourceFile = "file"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database storage.Config

	// Mapping source and cache
	Mappings MappingsConfig

	// Login session configuration
	Sessions SessionConfig

	// Login form rate limiting
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// PublicBaseURL is the externally visible base of the identity platform,
	// used to build redirect URIs
	PublicBaseURL string

	// AdminEnabled exposes the domain mapping admin API
	AdminEnabled bool

	// AuditDir receives JSON audit logs of admin writes; empty disables auditing
	AuditDir string
}

// MappingsConfig selects where domain mappings come from
type MappingsConfig struct {
	Source   string // "sql" or "file"
	FilePath string
	Watch    bool

	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration

	// GaugeRefreshSchedule is the cron spec for refreshing the enabled mappings gauge
	GaugeRefreshSchedule string
}

// SessionConfig holds login session storage settings
type SessionConfig struct {
	Backend     string // "memory" or "redis"
	RedisURL    string
	TTL         time.Duration
	MemoryLimit int
}

// RateLimitConfig holds per-IP limits for form submissions
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
	TrustProxyHeaders bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Mappings:      loadMappingsConfig(),
		Sessions:      loadSessionConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("IDP_REDIRECT_HOST", "0.0.0.0"),
		Port:            getEnv("IDP_REDIRECT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("IDP_REDIRECT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("IDP_REDIRECT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("IDP_REDIRECT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("IDP_REDIRECT_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("IDP_REDIRECT_MAX_BODY_BYTES", 64*1024),
		HealthPort:      getEnv("IDP_REDIRECT_HEALTH_PORT", "9090"),
		PublicBaseURL:   getEnv("IDP_REDIRECT_PUBLIC_BASE_URL", "http://localhost:8080/"),
		AdminEnabled:    getEnvBool("IDP_REDIRECT_ADMIN_ENABLED", true),
		AuditDir:        getEnv("IDP_REDIRECT_AUDIT_DIR", ""),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if driver := getEnv("IDP_REDIRECT_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	cfg.URL = getEnv("IDP_REDIRECT_DB_URL", "")
	if maxConns := getEnvInt("IDP_REDIRECT_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxOpenConns = maxConns
	}
	if idleConns := getEnvInt("IDP_REDIRECT_DB_MIN_CONNS", 0); idleConns > 0 {
		cfg.MaxIdleConns = idleConns
	}
	if timeout := getEnvDuration("IDP_REDIRECT_DB_TIMEOUT", 0); timeout > 0 {
		cfg.ConnectTimeout = timeout
	}
	cfg.MigrateOnStart = getEnvBool("IDP_REDIRECT_DB_MIGRATE", cfg.MigrateOnStart)

	return cfg
}

// loadMappingsConfig loads mapping source configuration from environment
func loadMappingsConfig() MappingsConfig {
	return MappingsConfig{
		Source:               strings.ToLower(getEnv("IDP_REDIRECT_MAPPINGS_SOURCE", MappingSourceSQL)),
		FilePath:             getEnv("IDP_REDIRECT_MAPPINGS_FILE", ""),
		Watch:                getEnvBool("IDP_REDIRECT_MAPPINGS_WATCH", true),
		CacheEnabled:         getEnvBool("IDP_REDIRECT_CACHE_ENABLED", true),
		CacheSize:            getEnvInt("IDP_REDIRECT_CACHE_SIZE", 1024),
		CacheTTL:             getEnvDuration("IDP_REDIRECT_CACHE_TTL", 30*time.Second),
		GaugeRefreshSchedule: getEnv("IDP_REDIRECT_GAUGE_REFRESH", "@every 1m"),
	}
}

// loadSessionConfig loads session store configuration from environment
func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Backend:     strings.ToLower(getEnv("IDP_REDIRECT_SESSION_BACKEND", SessionBackendMemory)),
		RedisURL:    getEnv("IDP_REDIRECT_REDIS_URL", ""),
		TTL:         getEnvDuration("IDP_REDIRECT_SESSION_TTL", 30*time.Minute),
		MemoryLimit: getEnvInt("IDP_REDIRECT_SESSION_MEMORY_LIMIT", 10000),
	}
}

// loadRateLimitConfig loads login rate limit configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("IDP_REDIRECT_RATE_LIMIT_ENABLED", true),
		RequestsPerSecond: getEnvFloat("IDP_REDIRECT_RATE_LIMIT_RPS", 1),
		Burst:             getEnvInt("IDP_REDIRECT_RATE_LIMIT_BURST", 5),
		TrustProxyHeaders: getEnvBool("IDP_REDIRECT_TRUST_PROXY_HEADERS", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("IDP_REDIRECT_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("IDP_REDIRECT_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("IDP_REDIRECT_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("IDP_REDIRECT_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("IDP_REDIRECT_OTEL_SERVICE_NAME", "idp-redirect"),
		OTelServiceVersion: getEnv("IDP_REDIRECT_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("IDP_REDIRECT_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	base, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("public base URL must be an absolute URL: %q", c.Server.PublicBaseURL)
	}

	// Validate mapping source
	switch c.Mappings.Source {
	case MappingSourceSQL:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case MappingSourceFile:
		if c.Mappings.FilePath == "" {
			return fmt.Errorf("mappings file is required for file mapping source")
		}
		if c.Database.URL != "" {
			if err := c.Database.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("invalid mapping source: %s (must be sql or file)", c.Mappings.Source)
	}
	if c.Mappings.CacheEnabled && (c.Mappings.CacheSize <= 0 || c.Mappings.CacheTTL <= 0) {
		return fmt.Errorf("cache size and TTL must be positive when the cache is enabled")
	}

	// Validate sessions
	switch c.Sessions.Backend {
	case SessionBackendMemory:
		if c.Sessions.MemoryLimit <= 0 {
			return fmt.Errorf("session memory limit must be positive")
		}
	case SessionBackendRedis:
		if c.Sessions.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis sessions")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be memory or redis)", c.Sessions.Backend)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when rate limiting is enabled")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// AdminAvailable reports whether the admin API can be served; it needs SQL storage
func (c *Config) AdminAvailable() bool {
	return c.Server.AdminEnabled && c.Database.URL != ""
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
