package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// MemoryStore is the in-process fallback behind the manager. It is a local
// approximation: entries do not survive restarts and are not coherent across
// processes. Expired entries are removed lazily on read and by Sweep.
type MemoryStore struct {
	logger  types.Logger
	mu      sync.RWMutex
	data    map[string]*types.CacheEntry
	now     func() time.Time
	onEvict func(entry *types.CacheEntry)
}

func NewMemoryStore(logger types.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger,
		data:   make(map[string]*types.CacheEntry),
		now:    time.Now,
	}
}

// SetClock replaces the time source. Tests use it to advance past TTLs.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetEvictCallback registers a hook invoked whenever an expired entry is
// removed, so the owner can prune derived state such as the tag index.
func (m *MemoryStore) SetEvictCallback(fn func(entry *types.CacheEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

func (m *MemoryStore) Get(key string) (*types.CacheEntry, bool) {
	m.mu.RLock()
	entry, exists := m.data[key]
	if !exists {
		m.mu.RUnlock()
		return nil, false
	}

	now := m.now()
	if !entry.Expired(now) {
		m.mu.RUnlock()
		return entry, true
	}
	m.mu.RUnlock()

	var evicted *types.CacheEntry
	m.mu.Lock()
	if entry, exists := m.data[key]; exists && entry.Expired(m.now()) {
		delete(m.data, key)
		evicted = entry
	}
	onEvict := m.onEvict
	m.mu.Unlock()

	// The callback reaches back into the owner; invoke it unlocked.
	if evicted != nil && onEvict != nil {
		onEvict(evicted)
	}

	return nil, false
}

// Peek returns the entry without expiry handling. Used for version lookups
// during overwrite.
func (m *MemoryStore) Peek(key string) (*types.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, exists := m.data[key]
	return entry, exists
}

func (m *MemoryStore) Set(entry *types.CacheEntry) error {
	if entry == nil || entry.Key == "" {
		return types.ErrCacheKeyEmpty
	}

	m.mu.Lock()
	m.data[entry.Key] = entry
	m.mu.Unlock()

	return nil
}

// Delete removes the entry and returns it, so callers can deindex its tags.
func (m *MemoryStore) Delete(key string) (*types.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.data[key]
	if exists {
		delete(m.data, key)
	}

	return entry, exists
}

func (m *MemoryStore) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.data)
	m.data = make(map[string]*types.CacheEntry)

	return count
}

func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Sweep removes every expired entry and reports how many were dropped.
// Scheduled periodically through the cron manager.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()

	now := m.now()
	var expired []*types.CacheEntry
	for key, entry := range m.data {
		if entry.Expired(now) {
			expired = append(expired, entry)
			delete(m.data, key)
		}
	}
	onEvict := m.onEvict
	m.mu.Unlock()

	if onEvict != nil {
		for _, entry := range expired {
			onEvict(entry)
		}
	}

	if len(expired) > 0 {
		m.logger.Debug("Memory store sweep completed", zap.Int("expired_entries", len(expired)))
	}

	return len(expired)
}
