package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const Namespace = "cwflash"

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors. Components register onto it instead of the global default.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Handler exposes the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type ChainMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Retries  prometheus.Counter
}

func NewChainMetrics(reg prometheus.Registerer) *ChainMetrics {
	factory := promauto.With(reg)
	return &ChainMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of chain RPC requests by method and result",
		}, []string{"method", "result"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "request_latency_seconds",
			Help:      "Latency of chain RPC requests",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method"}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "retries_total",
			Help:      "Total number of retried chain RPC requests",
		}),
	}
}

type LoanMetrics struct {
	Attempts    *prometheus.CounterVec
	Latency     prometheus.Histogram
	Active      prometheus.Gauge
	Volume      prometheus.Counter
	Successes   prometheus.Counter
	Total       prometheus.Counter
	SuccessRate prometheus.Gauge
}

func NewLoanMetrics(reg prometheus.Registerer) *LoanMetrics {
	factory := promauto.With(reg)
	return &LoanMetrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "attempts_total",
			Help:      "Loan submissions by outcome",
		}, []string{"result"}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "execution_latency_seconds",
			Help:      "Latency of loan execution",
			Buckets:   prometheus.DefBuckets,
		}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "active",
			Help:      "Number of loan executions in flight",
		}),
		Volume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "requested_volume",
			Help:      "Total requested loan volume in display units",
		}),
		Successes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "success_count",
			Help:      "Number of successful loan executions",
		}),
		Total: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "total_count",
			Help:      "Number of loan executions reaching the executor",
		}),
		SuccessRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "loan",
			Name:      "success_rate",
			Help:      "Success rate of loan executions",
		}),
	}
}

// UpdateSuccessRate recomputes the success rate gauge from the counters.
func (m *LoanMetrics) UpdateSuccessRate() {
	total := CounterValue(m.Total)
	if total > 0 {
		m.SuccessRate.Set(CounterValue(m.Successes) / total)
	}
}

type StateMetrics struct {
	Generation prometheus.Gauge
	Fetches    *prometheus.CounterVec
	Discarded  *prometheus.CounterVec
	TVL        prometheus.Gauge
}

func NewStateMetrics(reg prometheus.Registerer) *StateMetrics {
	factory := promauto.With(reg)
	return &StateMetrics{
		Generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "state",
			Name:      "generation",
			Help:      "Current contract state generation",
		}),
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "state",
			Name:      "fetches_total",
			Help:      "Derived state fetches by derivation and result",
		}, []string{"derivation", "result"}),
		Discarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "state",
			Name:      "discarded_total",
			Help:      "Fetches discarded because the generation moved on",
		}, []string{"derivation"}),
		TVL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "state",
			Name:      "tvl",
			Help:      "Last observed total value locked in display units",
		}),
	}
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	WSClients prometheus.Gauge
	WSPushes  prometheus.Counter
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	factory := promauto.With(reg)
	return &ServerMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
		WSPushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ws",
			Name:      "pushes_total",
			Help:      "State snapshots pushed to websocket clients",
		}),
	}
}

// CounterValue reads the current value of a counter.
func CounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}
