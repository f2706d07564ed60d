package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanMetrics(t *testing.T) {
	metrics := NewLoanMetrics(prometheus.NewRegistry())
	require.NotNil(t, metrics)

	metrics.Total.Inc()
	metrics.Total.Inc()
	metrics.Successes.Inc()
	metrics.UpdateSuccessRate()

	assert.Equal(t, float64(2), CounterValue(metrics.Total))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.SuccessRate))

	metrics.Attempts.WithLabelValues("failed").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Attempts.WithLabelValues("failed")))
}

func TestSuccessRateWithoutAttempts(t *testing.T) {
	metrics := NewLoanMetrics(nil)
	metrics.UpdateSuccessRate()
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SuccessRate))
}

func TestChainMetrics(t *testing.T) {
	metrics := NewChainMetrics(prometheus.NewRegistry())

	metrics.Requests.WithLabelValues("status", "ok").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Requests.WithLabelValues("status", "ok")))

	// For histograms, we can only verify that they were created and can accept observations
	metrics.Latency.WithLabelValues("status").Observe(0.1)
	assert.NotNil(t, metrics.Latency)
}

func TestStateMetrics(t *testing.T) {
	metrics := NewStateMetrics(prometheus.NewRegistry())

	metrics.Generation.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Generation))

	metrics.Discarded.WithLabelValues("tvl").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Discarded.WithLabelValues("tvl")))
}

func TestHandlerServesRegistry(t *testing.T) {
	registry := NewRegistry()
	metrics := NewServerMetrics(registry)
	metrics.WSPushes.Inc()

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cwflash_ws_pushes_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
