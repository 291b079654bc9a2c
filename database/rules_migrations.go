package database

import (
	"database/sql"
	"fmt"
)

// MigrateRulesSchema применяет миграции базы правил по порядку, каждую один раз
func MigrateRulesSchema(db *sql.DB) error {
	migrations := []struct {
		name string
		fn   func(*sql.DB) error
	}{
		{"rules_add_note", migrateRulesAddNote},
		{"session_snapshots_updated_at_index", migrateSnapshotsUpdatedAtIndex},
	}

	for _, m := range migrations {
		if err := ensureMigrationApplied(db, m.name, m.fn); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}
	return nil
}

// columnExists проверяет наличие колонки в таблице
func columnExists(db *sql.DB, table, column string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pragma_table_info(?)
			WHERE name = ?
		)
	`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// migrateRulesAddNote добавляет колонку note в базы, созданные до ее появления
func migrateRulesAddNote(db *sql.DB) error {
	exists, err := columnExists(db, "rules", "note")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE rules ADD COLUMN note TEXT`); err != nil {
		return fmt.Errorf("failed to add note column: %w", err)
	}
	return nil
}

func migrateSnapshotsUpdatedAtIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_snapshots_updated_at ON session_snapshots(updated_at)`)
	if err != nil {
		return fmt.Errorf("failed to create updated_at index: %w", err)
	}
	return nil
}
