package storage

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFS embed.FS

// ErrNoChange is returned by MigrateDown when there is nothing to roll back
var ErrNoChange = migrate.ErrNoChange

// Migrate applies all pending up migrations. Being at the latest version is not an error.
func Migrate(cfg Config) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back every applied migration
func MigrateDown(cfg Config) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	return m.Down()
}

// SchemaVersion reports the applied migration version and whether it is dirty
func SchemaVersion(cfg Config) (uint, bool, error) {
	m, err := newMigrator(cfg)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrator(cfg Config) (*migrate.Migrate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationFS, path.Join("migrations", cfg.Driver))
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrationDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}

// migrationDSN converts the connection URL into the scheme golang-migrate expects
func migrationDSN(cfg Config) string {
	if cfg.Driver != DriverSQLite {
		return cfg.URL
	}
	dsn := strings.TrimPrefix(cfg.URL, "file:")
	if strings.HasPrefix(dsn, "sqlite3://") {
		return dsn
	}
	return "sqlite3://" + dsn
}
