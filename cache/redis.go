package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/types"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultOpTimeout    = 2 * time.Second
	defaultPoolSize     = 10
	defaultMinIdleConns = 2
)

// RedisStore is the durable backend. Every operation runs under a bounded
// timeout and reports failure as an error instead of raising; the manager
// degrades to the in-process path. Reachability is tracked from the outcome
// of the most recent operation.
type RedisStore struct {
	logger    types.Logger
	config    *types.RedisConfig
	client    *redis.Client
	keyPrefix string
	opTimeout time.Duration
	reachable atomic.Bool
}

func NewRedisStore(ctx context.Context, logger types.Logger, config *types.RedisConfig, keyPrefix string) (*RedisStore, error) {
	if config == nil || config.Addr == "" {
		return nil, types.Errorf(types.ErrCacheConnectionFailed, "redis address is empty")
	}

	cfg := *config
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MinIdleConnections <= 0 {
		cfg.MinIdleConnections = defaultMinIdleConns
	}

	store := &RedisStore{
		logger:    logger,
		config:    &cfg,
		keyPrefix: keyPrefix,
		opTimeout: cfg.OpTimeout,
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConnections,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}),
	}

	// Best effort: an unreachable backend yields a functional store that
	// reports unreachable, never a construction failure.
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := store.client.Ping(pingCtx).Err(); err != nil {
		store.reachable.Store(false)
		logger.Warn("Redis backend unreachable at startup, serving from in-process cache",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		store.reachable.Store(true)
		logger.Info("Redis backend connected", zap.String("addr", cfg.Addr))
	}

	return store, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	result, err := r.client.Get(opCtx, r.fullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			r.reachable.Store(true)
			return nil, false, nil
		}
		r.markFailure("get", key, err)
		return nil, false, types.WrapError(err, "redis get failed")
	}

	r.reachable.Store(true)
	return result, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, r.fullKey(key), data, ttl).Err(); err != nil {
		r.markFailure("set", key, err)
		return types.WrapError(err, "redis set failed")
	}

	r.reachable.Store(true)
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Del(opCtx, r.fullKey(key)).Err(); err != nil {
		r.markFailure("delete", key, err)
		return types.WrapError(err, "redis delete failed")
	}

	r.reachable.Store(true)
	return nil
}

// Clear removes every key under this store's prefix, leaving foreign keys in
// a shared Redis alone.
func (r *RedisStore) Clear(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var cursor uint64
	pattern := r.fullKey("*")

	for {
		keys, next, err := r.client.Scan(opCtx, cursor, pattern, 100).Result()
		if err != nil {
			r.markFailure("clear", pattern, err)
			return types.WrapError(err, "redis scan failed")
		}

		if len(keys) > 0 {
			if err := r.client.Del(opCtx, keys...).Err(); err != nil {
				r.markFailure("clear", pattern, err)
				return types.WrapError(err, "redis delete failed")
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	r.reachable.Store(true)
	return nil
}

func (r *RedisStore) Reachable() bool {
	return r.reachable.Load()
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		return types.WrapError(err, "failed to close redis client")
	}
	return nil
}

func (r *RedisStore) fullKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.keyPrefix, key)
}

func (r *RedisStore) markFailure(operation, key string, err error) {
	r.reachable.Store(false)
	r.logger.Warn("Redis operation failed, falling back to in-process cache",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Error(err))
}
