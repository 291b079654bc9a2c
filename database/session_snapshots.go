package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionSnapshotRow строка таблицы session_snapshots.
// Payload непрозрачен для базы, его формат определяет вызывающий код.
type SessionSnapshotRow struct {
	ID          string
	Payload     []byte
	RecordCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SaveSessionSnapshot создает или перезаписывает снимок сессии
func (db *RulesDB) SaveSessionSnapshot(ctx context.Context, row *SessionSnapshotRow) error {
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_snapshots (id, payload, record_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			record_count = excluded.record_count,
			updated_at = excluded.updated_at
	`, row.ID, row.Payload, row.RecordCount, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

// GetSessionSnapshot возвращает снимок по ID сессии
func (db *RulesDB) GetSessionSnapshot(ctx context.Context, id string) (*SessionSnapshotRow, error) {
	var row SessionSnapshotRow
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, payload, record_count, created_at, updated_at
		FROM session_snapshots WHERE id = ?
	`, id).Scan(&row.ID, &row.Payload, &row.RecordCount, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}
	return &row, nil
}

// DeleteSessionSnapshot удаляет снимок. Отсутствие снимка не ошибка.
func (db *RulesDB) DeleteSessionSnapshot(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM session_snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshotsOlderThan удаляет снимки, не обновлявшиеся с cutoff
func (db *RulesDB) DeleteSnapshotsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM session_snapshots WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune session snapshots: %w", err)
	}
	return result.RowsAffected()
}
