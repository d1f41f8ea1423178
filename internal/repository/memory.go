package repository

import (
	"context"
	"strings"
	"sync"
	"time"
)

type throttleEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryThrottle is the process-local fallback for RedisThrottle.
type MemoryThrottle struct {
	mu      sync.Mutex
	entries map[string]*throttleEntry
	now     func() time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{entries: make(map[string]*throttleEntry), now: time.Now}
}

func (m *MemoryThrottle) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := m.now()
	key = strings.ToLower(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &throttleEntry{expiresAt: now.Add(window)}
		m.entries[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// Sweep drops expired windows and returns how many were removed.
func (m *MemoryThrottle) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}
