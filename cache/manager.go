package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/types"
)

type managerState int32

const (
	managerStateStopped managerState = iota
	managerStateStarting
	managerStateRunning
	managerStateStopping
)

const DefaultTTL = 5 * time.Minute

// Manager is the tag-indexed, TTL-based cache over a durable backend and an
// in-process fallback. Writes mirror to both stores; reads prefer the durable
// store and degrade to the in-process map on any failure. The tag index,
// statistics and batch state are in-process only and guarded by a single
// mutex; helpers suffixed Unsafe expect that mutex to be held.
type Manager struct {
	ctx        context.Context
	logger     types.Logger
	codec      types.Codec
	local      *MemoryStore
	durable    types.DurableStore
	defaultTTL time.Duration
	now        func() time.Time

	mu          sync.Mutex
	tags        map[string]map[string]struct{}
	batchActive bool
	deferred    map[string]struct{}

	totalRequests uint64
	hits          uint64
	misses        uint64
	invalidations uint64
	evictions     uint64

	state atomic.Value
}

// NewManager builds the manager from configuration. A nil Redis block selects
// in-process-only mode.
func NewManager(ctx context.Context, logger types.Logger, config *types.CacheConfig) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	var durable types.DurableStore
	if config.Redis != nil {
		store, err := NewRedisStore(ctx, logger, config.Redis, config.KeyPrefix)
		if err != nil {
			return nil, types.WrapError(err, "failed to initialize redis store")
		}
		durable = store
	}

	return NewManagerWithStore(ctx, logger, config, durable)
}

// NewManagerWithStore wires an explicit durable store. Tests use it to
// simulate an unreachable backend.
func NewManagerWithStore(ctx context.Context, logger types.Logger, config *types.CacheConfig, durable types.DurableStore) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	defaultTTL := config.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	m := &Manager{
		ctx:        ctx,
		logger:     logger,
		codec:      NewSonicCodec(),
		local:      NewMemoryStore(logger),
		durable:    durable,
		defaultTTL: defaultTTL,
		now:        time.Now,
		tags:       make(map[string]map[string]struct{}),
		deferred:   make(map[string]struct{}),
	}

	m.local.SetEvictCallback(m.handleExpiry)
	m.state.Store(managerStateStopped)

	return m, nil
}

// SetCodec replaces the durable-backend codec. Must be called before use.
func (m *Manager) SetCodec(codec types.Codec) {
	if codec != nil {
		m.codec = codec
	}
}

// SetClock replaces the time source for the manager and its in-process store.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
	m.local.SetClock(now)
}

func (m *Manager) Start() error {
	if !m.transitionState(managerStateStopped, managerStateStarting) {
		m.logger.Warn("Cache manager is already running")
		return types.ErrManagerAlreadyRunning
	}

	defer func() {
		if m.getState() == managerStateStarting {
			m.setState(managerStateRunning)
		}
	}()

	m.logger.Info("Cache manager started",
		zap.Bool("durable_backend", m.durable != nil),
		zap.Duration("default_ttl", m.defaultTTL))
	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(managerStateRunning, managerStateStopping) {
		m.logger.Warn("Cache manager is not running")
		return types.ErrManagerNotRunning
	}

	defer func() {
		m.setState(managerStateStopped)
	}()

	cleared := m.local.Clear()

	m.mu.Lock()
	m.tags = make(map[string]map[string]struct{})
	m.deferred = make(map[string]struct{})
	m.batchActive = false
	m.mu.Unlock()

	if m.durable != nil {
		if err := m.durable.Close(); err != nil {
			m.logger.Error("Failed to close durable backend", zap.Error(err))
		}
	}

	m.logger.Info("Cache manager stopped", zap.Int("cleared_entries", cleared))
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.getState() == managerStateRunning
}

// Get serves the durable backend first and falls back to the in-process map
// both on backend failure and on a clean durable miss, since values that
// could not be serialized live only in-process.
func (m *Manager) Get(key string) (interface{}, bool) {
	if key == "" {
		m.recordMiss()
		return nil, false
	}

	if m.durable != nil {
		data, found, err := m.durable.Get(m.ctx, key)
		if err == nil && found {
			var entry types.CacheEntry
			if decodeErr := m.codec.Decode(data, &entry); decodeErr != nil {
				m.logger.Warn("Failed to decode durable cache entry, dropping it",
					zap.String("key", key), zap.Error(decodeErr))
				_ = m.durable.Delete(m.ctx, key)
			} else if !entry.Expired(m.now()) {
				m.recordHit()
				return entry.Value, true
			}
			// Expired in the durable store: the in-process path below
			// performs its own lazy expiry for the mirrored entry.
		}
	}

	if entry, ok := m.local.Get(key); ok {
		m.recordHit()
		return entry.Value, true
	}

	m.recordMiss()
	return nil, false
}

// Set writes the in-process store unconditionally and the durable backend
// best effort: a codec or connectivity failure skips only the durable write.
func (m *Manager) Set(key string, value interface{}, ttl time.Duration, tags ...string) error {
	if key == "" {
		m.logger.Error("Attempted to set cache entry with empty key")
		return types.ErrCacheKeyEmpty
	}

	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := m.now()

	var version uint64 = 1
	var oldTags []string
	if old, exists := m.local.Peek(key); exists {
		version = old.Version + 1
		oldTags = old.Tags
	}

	entry := &types.CacheEntry{
		Key:       key,
		Value:     value,
		TTL:       ttl,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Tags:      append([]string(nil), tags...),
		Version:   version,
	}

	if err := m.local.Set(entry); err != nil {
		return err
	}

	m.mu.Lock()
	m.deindexKeyUnsafe(key, oldTags)
	m.indexKeyUnsafe(key, entry.Tags)
	m.mu.Unlock()

	if m.durable != nil {
		data, err := m.codec.Encode(entry)
		if err != nil {
			m.logger.Warn("Cache value not serializable for durable backend, keeping in-process only",
				zap.String("key", key), zap.Error(err))
			// The durable store may still hold the previous value for this
			// key; drop it so durable-first reads fall through to the
			// fresh in-process entry instead of serving the stale one.
			if delErr := m.durable.Delete(m.ctx, key); delErr != nil {
				m.logger.Warn("Failed to drop superseded durable cache entry",
					zap.String("key", key), zap.Error(delErr))
			}
			return nil
		}

		if err := m.durable.Set(m.ctx, key, data, ttl); err != nil {
			m.logger.Debug("Durable cache write skipped",
				zap.String("key", key), zap.Error(err))
		}
	}

	return nil
}

// Delete removes the key from both stores. It reports whether the key was
// live in-process; the durable delete is issued regardless.
func (m *Manager) Delete(key string) bool {
	if key == "" {
		return false
	}

	entry, existed := m.local.Delete(key)

	if m.durable != nil {
		if err := m.durable.Delete(m.ctx, key); err != nil {
			m.logger.Warn("Durable cache delete failed, the entry may resurface on reads",
				zap.String("key", key), zap.Error(err))
		}
	}

	m.mu.Lock()
	if existed {
		m.deindexKeyUnsafe(key, entry.Tags)
		m.evictions++
	}
	m.mu.Unlock()

	return existed
}

// InvalidateByTag removes every key registered under the tag and returns the
// number of removed keys. During a batch window the tag is deferred instead
// and 0 is returned; EndBatch flushes each accumulated tag exactly once.
func (m *Manager) InvalidateByTag(tag string) int {
	if tag == "" {
		return 0
	}

	m.mu.Lock()
	if m.batchActive {
		m.deferred[tag] = struct{}{}
		m.mu.Unlock()
		m.logger.Debug("Invalidation deferred by batch window", zap.String("tag", tag))
		return 0
	}

	keySet, exists := m.tags[tag]
	if !exists {
		m.mu.Unlock()
		return 0
	}

	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	delete(m.tags, tag)
	m.mu.Unlock()

	removed := 0
	removedEntries := make(map[string]*types.CacheEntry, len(keys))

	for _, key := range keys {
		if entry, existed := m.local.Delete(key); existed {
			removed++
			removedEntries[key] = entry
		}
		if m.durable != nil {
			if err := m.durable.Delete(m.ctx, key); err != nil {
				m.logger.Warn("Durable cache delete failed during tag invalidation",
					zap.String("tag", tag), zap.String("key", key), zap.Error(err))
			}
		}
	}

	m.mu.Lock()
	for key, entry := range removedEntries {
		m.deindexKeyUnsafe(key, entry.Tags)
	}
	m.evictions += uint64(removed)
	m.invalidations += uint64(removed)
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debug("Tag invalidated",
			zap.String("tag", tag), zap.Int("removed_keys", removed))
	}

	return removed
}

// ClearAll flushes both stores and the tag index. Statistics counters are
// process-lifetime and are not reset.
func (m *Manager) ClearAll() bool {
	cleared := m.local.Clear()

	if m.durable != nil {
		if err := m.durable.Clear(m.ctx); err != nil {
			m.logger.Warn("Failed to clear durable backend", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.tags = make(map[string]map[string]struct{})
	m.deferred = make(map[string]struct{})
	m.mu.Unlock()

	m.logger.Info("Cache cleared", zap.Int("cleared_entries", cleared))
	return true
}

func (m *Manager) Stats() types.CacheStats {
	m.mu.Lock()
	stats := types.CacheStats{
		TotalRequests: m.totalRequests,
		CacheHits:     m.hits,
		CacheMisses:   m.misses,
		Invalidations: m.invalidations,
		Evictions:     m.evictions,
		BatchActive:   m.batchActive,
	}
	m.mu.Unlock()

	if stats.TotalRequests > 0 {
		stats.HitRatio = float64(stats.CacheHits) / float64(stats.TotalRequests)
	}

	stats.Size = m.local.Size()
	stats.BackendReachable = m.durable != nil && m.durable.Reachable()

	return stats
}

// Cached is the generic memoizing wrapper: serve the key from cache, or run
// fn, populate the cache under the given tags and return the result. Errors
// from fn pass through uncached, so not-found results are never stored as
// negative entries.
func (m *Manager) Cached(key string, ttl time.Duration, tags []string, fn func() (interface{}, error)) (interface{}, error) {
	if value, ok := m.Get(key); ok {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	if err := m.Set(key, value, ttl, tags...); err != nil {
		m.logger.Warn("Failed to populate cache", zap.String("key", key), zap.Error(err))
	}

	return value, nil
}

// BeginBatch opens a batch window. Nested calls are idempotent.
func (m *Manager) BeginBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batchActive {
		m.logger.Debug("Batch window already active")
		return
	}

	m.batchActive = true
	m.logger.Debug("Batch window opened")
}

// EndBatch closes the window and invalidates every deferred tag exactly once.
// A surplus EndBatch without an active window is a no-op.
func (m *Manager) EndBatch() {
	m.mu.Lock()
	if !m.batchActive {
		m.mu.Unlock()
		m.logger.Debug("EndBatch without active batch window")
		return
	}

	m.batchActive = false
	tags := make([]string, 0, len(m.deferred))
	for tag := range m.deferred {
		tags = append(tags, tag)
	}
	m.deferred = make(map[string]struct{})
	m.mu.Unlock()

	for _, tag := range tags {
		m.InvalidateByTag(tag)
	}

	if len(tags) > 0 {
		m.logger.Debug("Batch window flushed", zap.Int("deferred_tags", len(tags)))
	}
}

// Sweep drops expired in-process entries. Scheduled through the cron manager.
func (m *Manager) Sweep() int {
	return m.local.Sweep()
}

// handleExpiry runs when the in-process store drops an expired entry on read
// or sweep: the tag index must not keep pointing at a dead key.
func (m *Manager) handleExpiry(entry *types.CacheEntry) {
	m.mu.Lock()
	m.deindexKeyUnsafe(entry.Key, entry.Tags)
	m.evictions++
	m.mu.Unlock()
}

func (m *Manager) indexKeyUnsafe(key string, tags []string) {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		keySet, exists := m.tags[tag]
		if !exists {
			keySet = make(map[string]struct{})
			m.tags[tag] = keySet
		}
		keySet[key] = struct{}{}
	}
}

func (m *Manager) deindexKeyUnsafe(key string, tags []string) {
	for _, tag := range tags {
		keySet, exists := m.tags[tag]
		if !exists {
			continue
		}
		delete(keySet, key)
		if len(keySet) == 0 {
			delete(m.tags, tag)
		}
	}
}

func (m *Manager) recordHit() {
	m.mu.Lock()
	m.totalRequests++
	m.hits++
	m.mu.Unlock()
}

func (m *Manager) recordMiss() {
	m.mu.Lock()
	m.totalRequests++
	m.misses++
	m.mu.Unlock()
}

func (m *Manager) getState() managerState {
	return m.state.Load().(managerState)
}

func (m *Manager) setState(newState managerState) bool {
	currentState := m.getState()
	return m.state.CompareAndSwap(currentState, newState)
}

func (m *Manager) transitionState(from, to managerState) bool {
	return m.state.CompareAndSwap(from, to)
}
