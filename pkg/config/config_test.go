package config

import (
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
	"github.com/platinummonkey/idp-redirect/pkg/storage"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "custom")

	if got := getEnv("TEST_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %v, want custom", got)
	}
	if got := getEnv("TEST_VAR_NOT_SET", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want default", got)
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"TRUE", "TRUE", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"garbage", "yes", true, false},
		{"unset", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvNumbers tests the numeric and duration helpers
func TestGetEnvNumbers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty-two")
	t.Setenv("TEST_FLOAT", "0.5")
	t.Setenv("TEST_DURATION", "45s")
	t.Setenv("TEST_BAD_DURATION", "soon")

	if got := getEnvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("TEST_BAD_INT", 1); got != 1 {
		t.Errorf("getEnvInt() with invalid value = %d, want default 1", got)
	}
	if got := getEnvInt64("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvInt64() = %d, want 42", got)
	}
	if got := getEnvFloat("TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("getEnvFloat() = %v, want 0.5", got)
	}
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 45*time.Second {
		t.Errorf("getEnvDuration() = %v, want 45s", got)
	}
	if got := getEnvDuration("TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() with invalid value = %v, want 1s", got)
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := map[string]observability.LogLevel{
		"debug":   observability.DebugLevel,
		"INFO":    observability.InfoLevel,
		"warn":    observability.WarnLevel,
		"warning": observability.WarnLevel,
		"error":   observability.ErrorLevel,
		"verbose": observability.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestLoadServerConfig tests server config loading
func TestLoadServerConfig(t *testing.T) {
	t.Setenv("IDP_REDIRECT_PORT", "9000")
	t.Setenv("IDP_REDIRECT_PUBLIC_BASE_URL", "https://id.example.com/")
	t.Setenv("IDP_REDIRECT_READ_TIMEOUT", "5s")
	t.Setenv("IDP_REDIRECT_ADMIN_ENABLED", "false")
	t.Setenv("IDP_REDIRECT_AUDIT_DIR", "/var/log/idp/audit")

	cfg := loadServerConfig()

	if cfg.Port != "9000" {
		t.Errorf("Port = %v, want 9000", cfg.Port)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %v, want 0.0.0.0", cfg.Host)
	}
	if cfg.PublicBaseURL != "https://id.example.com/" {
		t.Errorf("PublicBaseURL = %v", cfg.PublicBaseURL)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.AdminEnabled {
		t.Error("AdminEnabled should be false")
	}
	if cfg.AuditDir != "/var/log/idp/audit" {
		t.Errorf("AuditDir = %v", cfg.AuditDir)
	}
}

// TestLoadDatabaseConfig tests database config loading
func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("IDP_REDIRECT_DB_DRIVER", "sqlite3")
	t.Setenv("IDP_REDIRECT_DB_URL", "/var/lib/idp/idp.db")
	t.Setenv("IDP_REDIRECT_DB_MAX_CONNS", "4")
	t.Setenv("IDP_REDIRECT_DB_MIGRATE", "false")

	cfg := loadDatabaseConfig()

	if cfg.Driver != storage.DriverSQLite {
		t.Errorf("Driver = %v, want sqlite3", cfg.Driver)
	}
	if cfg.URL != "/var/lib/idp/idp.db" {
		t.Errorf("URL = %v", cfg.URL)
	}
	if cfg.MaxOpenConns != 4 {
		t.Errorf("MaxOpenConns = %d, want 4", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != storage.DefaultConfig().MaxIdleConns {
		t.Errorf("MaxIdleConns = %d, want default", cfg.MaxIdleConns)
	}
	if cfg.MigrateOnStart {
		t.Error("MigrateOnStart should be false")
	}
}

// TestLoadMappingsAndSessions tests mapping and session config loading
func TestLoadMappingsAndSessions(t *testing.T) {
	t.Setenv("IDP_REDIRECT_MAPPINGS_SOURCE", "FILE")
	t.Setenv("IDP_REDIRECT_MAPPINGS_FILE", "/etc/idp/mappings.yaml")
	t.Setenv("IDP_REDIRECT_CACHE_TTL", "1m")
	t.Setenv("IDP_REDIRECT_SESSION_BACKEND", "redis")
	t.Setenv("IDP_REDIRECT_REDIS_URL", "redis://localhost:6379/1")

	mappings := loadMappingsConfig()
	if mappings.Source != MappingSourceFile {
		t.Errorf("Source = %v, want file", mappings.Source)
	}
	if mappings.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", mappings.CacheTTL)
	}
	if mappings.GaugeRefreshSchedule != "@every 1m" {
		t.Errorf("GaugeRefreshSchedule = %v", mappings.GaugeRefreshSchedule)
	}

	sessions := loadSessionConfig()
	if sessions.Backend != SessionBackendRedis {
		t.Errorf("Backend = %v, want redis", sessions.Backend)
	}
	if sessions.TTL != 30*time.Minute {
		t.Errorf("TTL = %v, want 30m", sessions.TTL)
	}
}

func validConfig() *Config {
	db := storage.DefaultConfig()
	db.URL = "postgres://localhost/idp"
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			HealthPort:    "9090",
			PublicBaseURL: "https://id.example.com/",
			AdminEnabled:  true,
		},
		Database: db,
		Mappings: MappingsConfig{
			Source:       MappingSourceSQL,
			CacheEnabled: true,
			CacheSize:    100,
			CacheTTL:     time.Second,
		},
		Sessions: SessionConfig{
			Backend:     SessionBackendMemory,
			TTL:         time.Minute,
			MemoryLimit: 10,
		},
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 5},
	}
}

// TestConfigValidate tests configuration validation
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"same ports", func(c *Config) { c.Server.HealthPort = "8080" }, "must be different"},
		{"relative base url", func(c *Config) { c.Server.PublicBaseURL = "/auth" }, "public base URL"},
		{"sql without url", func(c *Config) { c.Database.URL = "" }, "database URL is required"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "invalid database driver"},
		{"file without path", func(c *Config) { c.Mappings.Source = MappingSourceFile }, "mappings file is required"},
		{"file without db", func(c *Config) {
			c.Mappings.Source = MappingSourceFile
			c.Mappings.FilePath = "/etc/mappings.yaml"
			c.Database.URL = ""
		}, ""},
		{"unknown source", func(c *Config) { c.Mappings.Source = "ldap" }, "invalid mapping source"},
		{"zero cache ttl", func(c *Config) { c.Mappings.CacheTTL = 0 }, "cache size and TTL"},
		{"redis without url", func(c *Config) { c.Sessions.Backend = SessionBackendRedis }, "redis URL is required"},
		{"unknown sessions", func(c *Config) { c.Sessions.Backend = "disk" }, "invalid session backend"},
		{"zero session ttl", func(c *Config) { c.Sessions.TTL = 0 }, "session TTL"},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, "rate limit"},
		{"rate limit disabled", func(c *Config) { c.RateLimit = RateLimitConfig{} }, ""},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelServiceName = "idp-redirect"
		}, "OpenTelemetry endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestAdminAvailable tests when the admin API is served
func TestAdminAvailable(t *testing.T) {
	cfg := validConfig()
	if !cfg.AdminAvailable() {
		t.Error("AdminAvailable() should be true with SQL storage")
	}
	cfg.Database.URL = ""
	if cfg.AdminAvailable() {
		t.Error("AdminAvailable() should be false without a database")
	}
}

// TestLoadConfig tests full configuration loading
func TestLoadConfig(t *testing.T) {
	t.Setenv("IDP_REDIRECT_DB_URL", "postgres://localhost/idp")
	t.Setenv("IDP_REDIRECT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
	}
	if cfg.Mappings.Source != MappingSourceSQL {
		t.Errorf("Source = %v, want sql", cfg.Mappings.Source)
	}

	t.Setenv("IDP_REDIRECT_DB_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail without a database URL for the sql source")
	}
}
