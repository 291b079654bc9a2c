package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const migrationsTableName = "schema_migrations"

func ensureMigrationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + migrationsTableName + ` (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure %s table: %w", migrationsTableName, err)
	}
	return nil
}

// AppliedMigrations имена примененных миграций в порядке применения
func AppliedMigrations(db *sql.DB) ([]string, error) {
	if err := ensureMigrationTable(db); err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT name FROM ` + migrationsTableName + ` ORDER BY applied_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ensureMigrationApplied выполняет миграцию только один раз
func ensureMigrationApplied(db *sql.DB, name string, migration func(*sql.DB) error) error {
	if err := ensureMigrationTable(db); err != nil {
		return err
	}

	var appliedAt sql.NullTime
	err := db.QueryRow(`SELECT applied_at FROM `+migrationsTableName+` WHERE name = ?`, name).Scan(&appliedAt)
	switch {
	case err == nil && appliedAt.Valid:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check migration %s: %w", name, err)
	}

	if err := migration(db); err != nil {
		return err
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO `+migrationsTableName+`(name, applied_at) VALUES(?, ?)`, name, time.Now()); err != nil {
		return fmt.Errorf("failed to mark migration %s as applied: %w", name, err)
	}

	slog.Info("Migration applied", "name", name)
	return nil
}
