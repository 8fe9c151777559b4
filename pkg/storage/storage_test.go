package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Driver = DriverSQLite
	cfg.URL = filepath.Join(t.TempDir(), "idp.db")
	cfg.MaxOpenConns = 1
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid postgres", func(c *Config) { c.URL = "postgres://localhost/idp" }, false},
		{"valid sqlite", func(c *Config) { c.Driver = DriverSQLite; c.URL = "idp.db" }, false},
		{"missing url", func(c *Config) {}, true},
		{"unknown driver", func(c *Config) { c.Driver = "mysql"; c.URL = "x" }, true},
		{"negative pool", func(c *Config) { c.URL = "x"; c.MaxOpenConns = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMigrationDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db/idp", migrationDSN(Config{Driver: DriverPostgres, URL: "postgres://u:p@db/idp"}))
	assert.Equal(t, "sqlite3:///tmp/idp.db", migrationDSN(Config{Driver: DriverSQLite, URL: "/tmp/idp.db"}))
	assert.Equal(t, "sqlite3://idp.db", migrationDSN(Config{Driver: DriverSQLite, URL: "file:idp.db"}))
	assert.Equal(t, "sqlite3://idp.db", migrationDSN(Config{Driver: DriverSQLite, URL: "sqlite3://idp.db"}))
}

func TestMigrateAndOpen_SQLite(t *testing.T) {
	cfg := sqliteConfig(t)

	require.NoError(t, Migrate(cfg))
	// Second run is a no-op
	require.NoError(t, Migrate(cfg))

	version, dirty, err := SchemaVersion(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO domain_to_idp (email_domain, idp_alias, enabled, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		"example.com", "corp-saml", true, now, now)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO domain_to_idp (email_domain, idp_alias, enabled, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		"example.com", "other", true, now, now)
	assert.Error(t, err, "email_domain must be unique")

	_, err = db.Exec(`INSERT INTO domain_to_idp (email_domain, idp_alias) VALUES ($1, $2)`, "Upper.example", "x")
	assert.Error(t, err, "email_domain must be lower case")

	var alias string
	require.NoError(t, db.QueryRow(`SELECT idp_alias FROM domain_to_idp WHERE email_domain = $1 AND enabled = true`, "example.com").Scan(&alias))
	assert.Equal(t, "corp-saml", alias)
}

func TestMigrateDown_SQLite(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, Migrate(cfg))
	require.NoError(t, MigrateDown(cfg))

	version, _, err := SchemaVersion(cfg)
	require.NoError(t, err)
	assert.Zero(t, version)

	assert.ErrorIs(t, MigrateDown(cfg), ErrNoChange)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", URL: "x"})
	assert.Error(t, err)
}

func TestOpen_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "postgres://idp@127.0.0.1:1/idp?sslmode=disable&connect_timeout=1"
	cfg.ConnectTimeout = 2 * time.Second

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
