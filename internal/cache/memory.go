package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

const backendMemory = "memory"

// MemoryStore keeps records in process memory. Entries hold the serialized
// payload so callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]model.CacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		entries: make(map[string]model.CacheEntry),
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
	}
}

func (m *MemoryStore) Get(_ context.Context, username string) (model.GitHubStats, bool) {
	m.mu.Lock()
	entry, ok := m.entries[username]
	if ok && entry.Expired(m.clock.Now()) {
		delete(m.entries, username)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues(backendMemory).Inc()
		return model.GitHubStats{}, false
	}

	stats, err := decode(entry.Stats)
	if err != nil {
		m.logger.Error("Failed to decode cached stats", "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendMemory).Inc()
		return model.GitHubStats{}, false
	}
	metrics.CacheHits.WithLabelValues(backendMemory).Inc()
	return stats, true
}

func (m *MemoryStore) Set(_ context.Context, username string, stats model.GitHubStats) error {
	payload, err := encode(stats)
	if err != nil {
		return err
	}
	entry := newEntry(username, payload, m.clock.Now(), m.ttl)

	m.mu.Lock()
	m.entries[username] = entry
	m.mu.Unlock()
	return nil
}

// Len reports how many entries are held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
