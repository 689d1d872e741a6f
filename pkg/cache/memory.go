package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// MemoryPlugin implements Plugin with an in-process map. It is intended for
// development, testing, and single-instance deployments; contents are lost
// on restart and not shared across processes.
type MemoryPlugin struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool
	stop    chan struct{}
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemory creates an in-process cache plugin. sweepInterval bounds how
// long expired entries linger; zero uses one minute.
func NewMemory(sweepInterval time.Duration) *MemoryPlugin {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	m := &MemoryPlugin{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go m.sweep(sweepInterval)
	return m
}

// sweep drops expired entries in the background until Close.
func (m *MemoryPlugin) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Name returns the backend's registry name.
func (m *MemoryPlugin) Name() string {
	return "memory"
}

// Fetch resolves against the map. Expired entries read as misses.
func (m *MemoryPlugin) Fetch(ctx context.Context, key []byte, span trace.Span) *Fetch {
	fetch := NewFetch(nil)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		fetch.Errback(errors.NewTemporary("memory cache closed", nil))
		return fetch
	}
	entry, ok := m.entries[string(key)]
	m.mu.Unlock()

	if !ok || time.Now().After(entry.expiresAt) {
		fetch.Callback(nil)
		return fetch
	}
	// Copy so callers can't mutate the stored value.
	data := make([]byte, len(entry.data))
	copy(data, entry.data)
	fetch.Callback(data)
	return fetch
}

// Cache stores value under key with the given TTL.
func (m *MemoryPlugin) Cache(key, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data := make([]byte, len(value))
	copy(data, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.entries[string(key)] = memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
}

// CheckHealth reports whether the plugin is open.
func (m *MemoryPlugin) CheckHealth(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.NewTemporary("memory cache closed", nil)
	}
	return nil
}

// Check implements the health.Checker interface for the memory plugin.
func (m *MemoryPlugin) Check(ctx context.Context) error {
	return m.CheckHealth(ctx)
}

// Len returns the number of live entries. Observational, for tests.
func (m *MemoryPlugin) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweeper and drops all entries. Idempotent.
func (m *MemoryPlugin) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.stop)
	m.entries = nil
	return nil
}
