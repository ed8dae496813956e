package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/logger"
	"github.com/mitfusco98/health-prep-sub002/types"
)

func TestMemoryMetricsCounter(t *testing.T) {
	m := NewMemoryMetrics(logger.NewNopLogger())

	counter := m.Counter("requests_total", map[string]string{"operation": "get"})
	counter.Inc()
	counter.Add(2)

	require.Equal(t, float64(3), counter.Get())

	// Same name and labels resolve to the same series.
	again := m.Counter("requests_total", map[string]string{"operation": "get"})
	require.Equal(t, float64(3), again.Get())

	other := m.Counter("requests_total", map[string]string{"operation": "set"})
	require.Equal(t, float64(0), other.Get())
}

func TestMemoryMetricsGauge(t *testing.T) {
	m := NewMemoryMetrics(logger.NewNopLogger())

	gauge := m.Gauge("cache_size", nil)
	gauge.Set(10)
	gauge.Inc()
	gauge.Dec()
	gauge.Dec()

	require.Equal(t, float64(9), gauge.Get())
}

func TestMemoryMetricsHistogram(t *testing.T) {
	m := NewMemoryMetrics(logger.NewNopLogger())

	histogram := m.Histogram("op_duration_seconds", []float64{0.1, 1}, nil)
	histogram.Observe(0.5)
	histogram.Observe(1.5)
	histogram.ObserveDuration(time.Now())

	require.Equal(t, uint64(3), histogram.GetCount())
	require.InDelta(t, 2.0, histogram.GetSum(), 0.1)
}

func TestMemoryMetricsLifecycle(t *testing.T) {
	m := NewMemoryMetrics(logger.NewNopLogger())

	require.NoError(t, m.Start())
	require.ErrorIs(t, m.Start(), types.ErrManagerAlreadyRunning)
	require.NoError(t, m.Stop())
	require.ErrorIs(t, m.Stop(), types.ErrManagerNotRunning)
}

func TestNewMetricsManagerFactory(t *testing.T) {
	log := logger.NewNopLogger()

	manager, err := NewMetricsManager(log, &types.MetricsConfig{Type: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryMetrics{}, manager)

	_, err = NewMetricsManager(log, &types.MetricsConfig{Type: "statsd"})
	require.ErrorIs(t, err, types.ErrMetricsTypeUnknown)

	_, err = NewMetricsManager(log, nil)
	require.ErrorIs(t, err, types.ErrConfigIsNil)
}
