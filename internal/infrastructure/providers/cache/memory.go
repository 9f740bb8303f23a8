package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload  []byte
	storedAt time.Time
	ttl      time.Duration
}

// Memory is a thread-safe in-memory response cache with lazy expiry.
// Last-write-wins on a key is acceptable: within a TTL window the payload
// for a fixed key is immutable, so no additional locking is needed beyond
// the map guard.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get returns the payload while the entry is fresh. Expired entries are
// purged on access.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if m.now().Sub(entry.storedAt) >= entry.ttl {
		m.mu.Lock()
		// Re-check under the write lock; another request may have
		// replaced the entry meanwhile.
		if current, ok := m.items[key]; ok && m.now().Sub(current.storedAt) >= current.ttl {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return entry.payload, true
}

// Set stores a payload under the key.
func (m *Memory) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	m.mu.Lock()
	m.items[key] = memoryEntry{payload: payload, storedAt: m.now(), ttl: ttl}
	m.mu.Unlock()
}

// Delete removes the entry for the key.
func (m *Memory) Delete(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
