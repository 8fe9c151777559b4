// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from IDP_REDIRECT_* environment
// variables with sensible defaults for all settings. The binary additionally loads
// a .env file, if present, before calling LoadConfig.
//
// # Configuration Structure
//
// Server settings:
//
//	IDP_REDIRECT_HOST="0.0.0.0"
//	IDP_REDIRECT_PORT="8080"
//	IDP_REDIRECT_HEALTH_PORT="9090"
//	IDP_REDIRECT_PUBLIC_BASE_URL="https://id.example.com/"
//	IDP_REDIRECT_ADMIN_ENABLED="true"
//
// Database settings:
//
//	IDP_REDIRECT_DB_DRIVER="postgres"  # postgres, sqlite3
//	IDP_REDIRECT_DB_URL="postgres://localhost/idp?sslmode=disable"
//	IDP_REDIRECT_DB_MAX_CONNS="20"
//	IDP_REDIRECT_DB_MIGRATE="true"
//
// Mapping settings:
//
//	IDP_REDIRECT_MAPPINGS_SOURCE="sql"  # sql, file
//	IDP_REDIRECT_MAPPINGS_FILE="/etc/idp-redirect/mappings.yaml"
//	IDP_REDIRECT_CACHE_ENABLED="true"
//	IDP_REDIRECT_CACHE_TTL="30s"
//
// Session settings:
//
//	IDP_REDIRECT_SESSION_BACKEND="memory"  # memory, redis
//	IDP_REDIRECT_REDIS_URL="redis://localhost:6379/0"
//	IDP_REDIRECT_SESSION_TTL="30m"
//
// Rate limiting:
//
//	IDP_REDIRECT_RATE_LIMIT_RPS="1"
//	IDP_REDIRECT_RATE_LIMIT_BURST="5"
//
// Observability settings:
//
//	IDP_REDIRECT_LOG_LEVEL="info"
//	IDP_REDIRECT_METRICS_ENABLED="true"
//	IDP_REDIRECT_OTEL_ENABLED="false"
//	IDP_REDIRECT_OTEL_ENDPOINT="localhost:4317"
//
// # Validation
//
// Validate rejects inconsistent settings, for example a sql mapping source without
// a database URL or a redis session backend without a redis URL.
package config
