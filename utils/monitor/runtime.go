package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

// Stats is a sample of the process runtime.
type Stats struct {
	Goroutines     int       `json:"goroutines"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	HeapObjects    uint64    `json:"heap_objects"`
	MemoryUsage    float64   `json:"memory_usage_percent"`
	LastGCPauseMs  float64   `json:"last_gc_pause_ms"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
	SampledAt      time.Time `json:"sampled_at"`
}

// RuntimeMonitor samples runtime statistics for the health endpoint.
type RuntimeMonitor struct {
	logger   *zap.Logger
	interval time.Duration
	started  time.Time
	now      func() time.Time

	memUsage prometheus.Gauge
	gcPause  prometheus.Gauge
	uptime   prometheus.Gauge

	mu   sync.RWMutex
	last *Stats
}

func NewRuntimeMonitor(reg prometheus.Registerer, interval time.Duration, logger *zap.Logger) *RuntimeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	factory := promauto.With(reg)
	return &RuntimeMonitor{
		logger:   logger,
		interval: interval,
		started:  time.Now(),
		now:      time.Now,
		memUsage: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "runtime",
			Name:      "memory_usage_percent",
			Help:      "Allocated heap as a percentage of memory obtained from the OS",
		}),
		gcPause: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "runtime",
			Name:      "last_gc_pause_seconds",
			Help:      "Duration of the most recent GC pause",
		}),
		uptime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "runtime",
			Name:      "uptime_seconds",
			Help:      "Time since the process started serving",
		}),
	}
}

// Run samples until ctx is cancelled.
func (m *RuntimeMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Collect()
			m.logger.Debug("Runtime sample",
				zap.Int("goroutines", s.Goroutines),
				zap.Uint64("heap_alloc", s.HeapAllocBytes),
				zap.Float64("memory_usage", s.MemoryUsage))
		}
	}
}

// Collect takes a fresh sample and publishes it.
func (m *RuntimeMonitor) Collect() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := m.now()
	s := Stats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		HeapObjects:    mem.HeapObjects,
		UptimeSeconds:  now.Sub(m.started).Seconds(),
		SampledAt:      now,
	}
	if mem.Sys > 0 {
		s.MemoryUsage = float64(mem.Alloc) / float64(mem.Sys) * 100
	}
	if mem.NumGC > 0 {
		s.LastGCPauseMs = float64(mem.PauseNs[(mem.NumGC+255)%256]) / float64(time.Millisecond)
	}

	m.memUsage.Set(s.MemoryUsage)
	m.gcPause.Set(s.LastGCPauseMs / 1000)
	m.uptime.Set(s.UptimeSeconds)

	m.mu.Lock()
	m.last = &s
	m.mu.Unlock()
	return s
}

// Stats returns the latest sample, collecting one if none exists yet.
func (m *RuntimeMonitor) Stats() Stats {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()
	if last == nil {
		return m.Collect()
	}
	return *last
}
