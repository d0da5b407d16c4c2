package storage

import (
	"context"
	"sync"
	"time"

	"lights-api/internal/domain"
)

// MemoryStore implements domain.RateLimitStore with a process-local map.
// The mutex makes each Check atomic; the window semantics are a fixed
// window that restarts wholesale once its reset time passes.
type MemoryStore struct {
	entries map[string]*domain.RateLimitEntry
	mutex   sync.Mutex
	logger  domain.Logger
}

// NewMemoryStore builds an empty in-memory store. The caller owns the
// sweep schedule; nothing here starts a background timer.
func NewMemoryStore(logger domain.Logger) *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]*domain.RateLimitEntry),
		logger:  logger,
	}

	if logger != nil {
		logger.Info("Memory rate limit store initialized", nil)
	}

	return store
}

// Check records one attempt for key. Expired entries are treated as
// absent. A rejected attempt leaves the counter untouched. Never errors.
func (m *MemoryStore) Check(ctx context.Context, key string, limit int, window time.Duration) (*domain.RateLimitResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()

	entry, exists := m.entries[key]
	if !exists || now.After(entry.ResetTime) {
		entry = &domain.RateLimitEntry{
			Count:     1,
			ResetTime: now.Add(window),
		}
		m.entries[key] = entry

		return &domain.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - 1,
			ResetTime: entry.ResetTime,
		}, nil
	}

	if entry.Count >= limit {
		return &domain.RateLimitResult{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetTime: entry.ResetTime,
		}, nil
	}

	entry.Count++

	remaining := limit - entry.Count
	if remaining < 0 {
		remaining = 0
	}

	return &domain.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: entry.ResetTime,
	}, nil
}

// Sweep deletes every entry whose window has already expired.
func (m *MemoryStore) Sweep(ctx context.Context) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	removed := 0

	for key, entry := range m.entries {
		if now.After(entry.ResetTime) {
			delete(m.entries, key)
			removed++
		}
	}

	if removed > 0 && m.logger != nil {
		m.logger.Debug("Rate limit store sweep completed", map[string]interface{}{
			"removed":   removed,
			"remaining": len(m.entries),
		})
	}

	return removed, nil
}

// Health always succeeds for the in-memory store.
func (m *MemoryStore) Health(ctx context.Context) error {
	return nil
}

// Close drops all entries.
func (m *MemoryStore) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries = make(map[string]*domain.RateLimitEntry)
	return nil
}

// Len reports how many identifiers currently hold a live entry.
func (m *MemoryStore) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.entries)
}
