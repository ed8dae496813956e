package health

import (
	"context"

	"github.com/mitfusco98/health-prep-sub002/types"
)

// CacheChecker reports cache health. A missing or unreachable durable backend
// degrades the check to unknown rather than unhealthy, since the cache keeps
// serving from the in-process store.
func CacheChecker(cache types.CacheManager) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		if !cache.IsRunning() {
			return types.HealthCheck{
				Status:  types.StatusUnhealthy,
				Message: "Cache manager is not running",
			}
		}

		stats := cache.Stats()
		if !stats.BackendReachable {
			return types.HealthCheck{
				Status:  types.StatusUnknown,
				Message: "Durable cache backend unreachable, serving from process memory",
				Details: map[string]interface{}{
					"size":      stats.Size,
					"hit_ratio": stats.HitRatio,
				},
			}
		}

		return types.HealthCheck{
			Status: types.StatusHealthy,
			Details: map[string]interface{}{
				"size":      stats.Size,
				"hit_ratio": stats.HitRatio,
			},
		}
	}
}

// SourceChecker reports whether the authoritative clinic source answers.
func SourceChecker(source types.ClinicSource) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		if err := source.Ping(ctx); err != nil {
			return types.HealthCheck{
				Status:  types.StatusUnhealthy,
				Message: err.Error(),
			}
		}

		return types.HealthCheck{
			Status: types.StatusHealthy,
		}
	}
}
