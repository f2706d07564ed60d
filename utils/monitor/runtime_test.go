package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRuntimeMonitorCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRuntimeMonitor(reg, time.Second, zaptest.NewLogger(t))

	start := m.started
	m.now = func() time.Time { return start.Add(90 * time.Second) }

	s := m.Collect()
	assert.Greater(t, s.Goroutines, 0)
	assert.Greater(t, s.HeapAllocBytes, uint64(0))
	assert.InDelta(t, 90, s.UptimeSeconds, 0.001)
	assert.InDelta(t, 90, testutil.ToFloat64(m.uptime), 0.001)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRuntimeMonitorStatsCollectsOnce(t *testing.T) {
	m := NewRuntimeMonitor(nil, time.Second, nil)

	first := m.Stats()
	assert.False(t, first.SampledAt.IsZero())
	assert.Equal(t, first.SampledAt, m.Stats().SampledAt)
}

func TestRuntimeMonitorRunStopsWithContext(t *testing.T) {
	m := NewRuntimeMonitor(nil, 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.last != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
