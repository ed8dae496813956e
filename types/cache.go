package types

import (
	"context"
	"time"
)

type CacheManager interface {
	LifecycleManager
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration, tags ...string) error
	Delete(key string) bool
	InvalidateByTag(tag string) int
	ClearAll() bool
	Stats() CacheStats
	Cached(key string, ttl time.Duration, tags []string, fn func() (interface{}, error)) (interface{}, error)
	BeginBatch()
	EndBatch()
}

// DurableStore is the external key-value backend. Implementations must never
// block indefinitely and must report connectivity failures as errors rather
// than panicking; the manager degrades to the in-process path on any error.
type DurableStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Reachable() bool
	Close() error
}

// Codec encodes values for the durable backend. The in-process store keeps
// values as-is, so a codec failure only skips the durable write.
type Codec interface {
	Encode(value interface{}) ([]byte, error)
	Decode(data []byte, target interface{}) error
}

type CacheEntry struct {
	Key       string        `json:"key"`
	Value     interface{}   `json:"value"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Tags      []string      `json:"tags"`
	Version   uint64        `json:"version"`
}

// Expired reports whether the entry is logically absent at the given instant.
// A zero ExpiresAt means the entry never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

type CacheStats struct {
	TotalRequests    uint64  `json:"total_requests"`
	CacheHits        uint64  `json:"cache_hits"`
	CacheMisses      uint64  `json:"cache_misses"`
	HitRatio         float64 `json:"hit_ratio"`
	Invalidations    uint64  `json:"invalidations"`
	Evictions        uint64  `json:"evictions"`
	Size             int     `json:"size"`
	BackendReachable bool    `json:"backend_reachable"`
	BatchActive      bool    `json:"batch_active"`
}
