package cache

import (
	"context"
	"sync"
	"time"

	"dedupserver/internal/domain/repositories"
)

// DefaultSessionTTL время жизни снимка в памяти по умолчанию
const DefaultSessionTTL = 30 * time.Minute

type sessionEntry struct {
	snapshot *repositories.SessionSnapshot
	expiry   time.Time
}

// SessionCache кэш снимков сессий в памяти перед долговременным хранилищем.
// Get читает сквозь кэш, Put пишет сначала в хранилище.
type SessionCache struct {
	mu      sync.RWMutex
	backend repositories.SessionRepository
	ttl     time.Duration
	entries map[string]sessionEntry
	now     func() time.Time
}

// NewSessionCache создает кэш. backend может быть nil: тогда снимки живут только в памяти.
func NewSessionCache(backend repositories.SessionRepository, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCache{
		backend: backend,
		ttl:     ttl,
		entries: make(map[string]sessionEntry),
		now:     time.Now,
	}
}

// Get возвращает снимок из памяти или загружает его из хранилища
func (c *SessionCache) Get(ctx context.Context, id string) (*repositories.SessionSnapshot, error) {
	c.mu.RLock()
	if entry, exists := c.entries[id]; exists && c.now().Before(entry.expiry) {
		c.mu.RUnlock()
		return entry.snapshot, nil
	}
	c.mu.RUnlock()

	if c.backend == nil {
		return nil, repositories.ErrNotFound
	}

	// Кэш промах - загружаем из хранилища
	snapshot, err := c.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = sessionEntry{snapshot: snapshot, expiry: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return snapshot, nil
}

// Put сохраняет снимок в хранилище и в память
func (c *SessionCache) Put(ctx context.Context, id string, snapshot *repositories.SessionSnapshot) error {
	if c.backend != nil {
		if err := c.backend.Save(ctx, snapshot); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.entries[id] = sessionEntry{snapshot: snapshot, expiry: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Delete удаляет снимок из памяти и из хранилища
func (c *SessionCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()

	if c.backend != nil {
		return c.backend.Delete(ctx, id)
	}
	return nil
}

// Invalidate убирает снимок только из памяти
func (c *SessionCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Cleanup удаляет просроченные записи из памяти и возвращает их количество
func (c *SessionCache) Cleanup() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for id, entry := range c.entries {
		if !now.Before(entry.expiry) {
			delete(c.entries, id)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// Len количество снимков в памяти
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
