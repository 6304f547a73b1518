package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

// Migration files follow golang-migrate naming: {version}_{title}.up.sql and
// {version}_{title}.down.sql.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

// Migrate brings the schema up to the newest embedded version and returns it.
// changed is false when the database was already current. Cancelling ctx
// stops after the migration in progress.
func Migrate(ctx context.Context, db *sqlx.DB) (version uint, changed bool, err error) {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	stop := context.AfterFunc(ctx, func() { m.GracefulStop <- true })
	defer stop()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return 0, false, fmt.Errorf("migrations: up: %w", err)
	default:
		changed = true
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, changed, fmt.Errorf("migrations: version: %w", err)
	}
	if dirty {
		return version, changed, fmt.Errorf("migrations: version %d is dirty", version)
	}
	return version, changed, nil
}

// newMigrator borrows one connection from the pool. Closing the migrator
// returns that connection and leaves the pool open.
func newMigrator(ctx context.Context, db *sqlx.DB) (*migrate.Migrate, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: conn: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("migrations: source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	return m, nil
}
