package repositories

import (
	"context"
	"errors"
	"time"

	"dedupserver/dedup"
)

var (
	// ErrNotFound запись отсутствует в хранилище
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists запись с таким ключом уже есть
	ErrAlreadyExists = errors.New("already exists")
)

// RuleRepository хранилище подтвержденных правил.
// Правила только добавляются, порядок добавления сохраняется.
type RuleRepository interface {
	List(ctx context.Context) ([]dedup.Rule, error)
	Get(ctx context.Context, id string) (*dedup.Rule, error)
	Append(ctx context.Context, rule *dedup.Rule) error
}

// SessionRepository долговременное хранилище снимков сессий
type SessionRepository interface {
	Save(ctx context.Context, snapshot *SessionSnapshot) error
	Get(ctx context.Context, id string) (*SessionSnapshot, error)
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionStore узкий контракт кэша сессий, от которого зависит домен
type SessionStore interface {
	Get(ctx context.Context, id string) (*SessionSnapshot, error)
	Put(ctx context.Context, id string, snapshot *SessionSnapshot) error
	Delete(ctx context.Context, id string) error
}
