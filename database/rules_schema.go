package database

import (
	"database/sql"
	"fmt"
)

// InitRulesSchema создает таблицы правил и снимков сессий
func InitRulesSchema(db *sql.DB) error {
	schema := `
	-- Подтвержденные правила сопоставления, только добавление
	CREATE TABLE IF NOT EXISTS rules (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,              -- uuid правила
		name TEXT NOT NULL,
		clauses TEXT NOT NULL,                -- JSON массив {field, operator, threshold}
		source_a TEXT,                        -- записи, из которых выведено правило
		source_b TEXT,
		generated_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Снимки сессий: записи и сопоставление колонок в JSON
	CREATE TABLE IF NOT EXISTS session_snapshots (
		id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		record_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create rules schema: %w", err)
	}
	return nil
}
