package cache

import (
	"time"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// instrumentedManager decorates a CacheManager with operation counters and
// latency histograms. Wiring it is optional; the service only wraps the
// manager when metrics are enabled.
type instrumentedManager struct {
	impl    types.CacheManager
	metrics types.MetricsManager
}

func NewInstrumentedManager(metrics types.MetricsManager, impl types.CacheManager) types.CacheManager {
	return &instrumentedManager{
		impl:    impl,
		metrics: metrics,
	}
}

func (im *instrumentedManager) Get(key string) (interface{}, bool) {
	start := time.Now()
	value, exists := im.impl.Get(key)

	result := "miss"
	if exists {
		result = "hit"
	}

	im.recordMetric("get", result, time.Since(start))
	return value, exists
}

func (im *instrumentedManager) Set(key string, value interface{}, ttl time.Duration, tags ...string) error {
	start := time.Now()
	err := im.impl.Set(key, value, ttl, tags...)

	im.recordMetric("set", resultOf(err), time.Since(start))
	return err
}

func (im *instrumentedManager) Delete(key string) bool {
	start := time.Now()
	existed := im.impl.Delete(key)

	result := "absent"
	if existed {
		result = "success"
	}

	im.recordMetric("delete", result, time.Since(start))
	return existed
}

func (im *instrumentedManager) InvalidateByTag(tag string) int {
	start := time.Now()
	removed := im.impl.InvalidateByTag(tag)

	im.recordMetric("invalidate_by_tag", "success", time.Since(start))
	im.metrics.Counter("cache_invalidated_keys_total", nil).Add(float64(removed))
	return removed
}

func (im *instrumentedManager) ClearAll() bool {
	start := time.Now()
	ok := im.impl.ClearAll()

	im.recordMetric("clear_all", "success", time.Since(start))
	return ok
}

func (im *instrumentedManager) Stats() types.CacheStats {
	return im.impl.Stats()
}

func (im *instrumentedManager) Cached(key string, ttl time.Duration, tags []string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	value, err := im.impl.Cached(key, ttl, tags, fn)

	im.recordMetric("cached", resultOf(err), time.Since(start))
	return value, err
}

func (im *instrumentedManager) BeginBatch() {
	im.impl.BeginBatch()
	im.metrics.Counter("cache_batch_windows_total", map[string]string{"transition": "start"}).Inc()
}

func (im *instrumentedManager) EndBatch() {
	im.impl.EndBatch()
	im.metrics.Counter("cache_batch_windows_total", map[string]string{"transition": "end"}).Inc()
}

func (im *instrumentedManager) Start() error {
	return im.impl.Start()
}

func (im *instrumentedManager) Stop() error {
	return im.impl.Stop()
}

func (im *instrumentedManager) IsRunning() bool {
	return im.impl.IsRunning()
}

func (im *instrumentedManager) recordMetric(operation, result string, duration time.Duration) {
	opCounter := im.metrics.Counter("cache_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := im.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
