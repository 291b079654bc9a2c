package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dedupserver/database"
	"dedupserver/internal/domain/repositories"
)

// sessionRepository хранит снимки сессий как JSON в session_snapshots
type sessionRepository struct {
	db *database.RulesDB
}

// NewSessionRepository создает новый репозиторий снимков сессий
func NewSessionRepository(db *database.RulesDB) repositories.SessionRepository {
	return &sessionRepository{db: db}
}

// Save создает или перезаписывает снимок
func (r *sessionRepository) Save(ctx context.Context, snapshot *repositories.SessionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return r.db.SaveSessionSnapshot(ctx, &database.SessionSnapshotRow{
		ID:          snapshot.ID,
		Payload:     payload,
		RecordCount: len(snapshot.Records),
		CreatedAt:   snapshot.CreatedAt,
	})
}

// Get загружает снимок по ID сессии
func (r *sessionRepository) Get(ctx context.Context, id string) (*repositories.SessionSnapshot, error) {
	row, err := r.db.GetSessionSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
		}
		return nil, err
	}

	var snapshot repositories.SessionSnapshot
	if err := json.Unmarshal(row.Payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot %s: %w", id, err)
	}
	return &snapshot, nil
}

// Delete удаляет снимок
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.DeleteSessionSnapshot(ctx, id)
}

// DeleteOlderThan удаляет снимки, не обновлявшиеся с cutoff
func (r *sessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.db.DeleteSnapshotsOlderThan(ctx, cutoff)
}
