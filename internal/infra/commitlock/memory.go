package commitlock

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local registry. Entries expire on their own; Sweep
// drops expired entries so the map does not grow without bound.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Acquire(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.entries[token]; ok && now.Before(expiry) {
		return false, nil
	}
	m.entries[token] = now.Add(m.ttl)
	return true, nil
}

func (m *Memory) ReleaseAfter(token string, grace time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[token]; !ok {
		return
	}
	if grace <= 0 {
		delete(m.entries, token)
		return
	}
	// never extend past the original TTL
	if until := m.now().Add(grace); until.Before(m.entries[token]) {
		m.entries[token] = until
	}
}

func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, expiry := range m.entries {
		if !now.Before(expiry) {
			delete(m.entries, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
