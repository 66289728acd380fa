// Package db opens the SQLite database and applies schema migrations.
package db

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the SQLite database with foreign keys enabled.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return conn, nil
}

// ApplyMigrations runs all pending migrations from migrationsDir.
func ApplyMigrations(dbPath, migrationsDir string) error {
	m, err := migrate.New(
		"file://"+migrationsDir,
		"sqlite3://"+dbPath+"?_foreign_keys=on",
	)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// RollbackLastMigration undoes the most recent migration.
func RollbackLastMigration(dbPath, migrationsDir string) error {
	m, err := migrate.New(
		"file://"+migrationsDir,
		"sqlite3://"+dbPath+"?_foreign_keys=on",
	)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}
