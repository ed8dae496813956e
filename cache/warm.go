package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// WarmFunc pre-populates one hot key group from the authoritative source.
type WarmFunc func(ctx context.Context) error

// Warmer runs registered warm functions before traffic is served and again
// on the cron schedule. Warm failures are logged, never fatal: a cold cache
// only costs read-through latency.
type Warmer struct {
	logger types.Logger

	mu    sync.RWMutex
	funcs map[string]WarmFunc
	order []string
}

func NewWarmer(logger types.Logger) *Warmer {
	return &Warmer{
		logger: logger,
		funcs:  make(map[string]WarmFunc),
	}
}

func (w *Warmer) Register(name string, fn WarmFunc) {
	if name == "" || fn == nil {
		return
	}

	w.mu.Lock()
	if _, exists := w.funcs[name]; !exists {
		w.order = append(w.order, name)
	}
	w.funcs[name] = fn
	w.mu.Unlock()
}

func (w *Warmer) Warm(ctx context.Context) error {
	w.mu.RLock()
	names := append([]string(nil), w.order...)
	funcs := make(map[string]WarmFunc, len(w.funcs))
	for name, fn := range w.funcs {
		funcs[name] = fn
	}
	w.mu.RUnlock()

	start := time.Now()
	warmed := 0

	for _, name := range names {
		select {
		case <-ctx.Done():
			return types.WrapError(ctx.Err(), "cache warm interrupted")
		default:
		}

		if err := funcs[name](ctx); err != nil {
			w.logger.Warn("Cache warm function failed",
				zap.String("name", name), zap.Error(err))
			continue
		}
		warmed++
	}

	w.logger.Info("Cache warm completed",
		zap.Int("warmed", warmed),
		zap.Int("registered", len(names)),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
