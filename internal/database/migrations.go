package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFiles embed.FS

// RunMigrations applies the embedded migrations for the connection's dialect
// and returns the resulting schema version.
func (db *DB) RunMigrations() (uint, error) {
	subdir := db.Dialect.MigrationsSubdir()

	source, err := iofs.New(migrationFiles, "migrations/"+subdir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}

	driver, err := db.Dialect.MigrationDriver(db.DB)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}

	// The migrate instance is not closed: closing it would close db.DB as well.
	m, err := migrate.NewWithInstance("iofs", source, subdir, driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}

	return version, nil
}
