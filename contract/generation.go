package contract

import (
	"sync"
	"sync/atomic"

	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

// Generation is the state update counter. Every derivation bound to it is
// refetched once the counter moves.
type Generation struct {
	value   atomic.Int64
	metrics *metrics.StateMetrics

	mu     sync.Mutex
	nextID int
	subs   map[int]chan int64
}

func NewGeneration(m *metrics.StateMetrics) *Generation {
	if m == nil {
		m = metrics.NewStateMetrics(nil)
	}
	return &Generation{
		metrics: m,
		subs:    make(map[int]chan int64),
	}
}

func (g *Generation) Current() int64 {
	return g.value.Load()
}

// Bump increments the counter by one and notifies subscribers.
func (g *Generation) Bump() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.value.Add(1)
	g.metrics.Generation.Set(float64(next))
	for _, ch := range g.subs {
		// keep only the latest value for slow readers
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
	return next
}

// Subscribe returns a channel receiving the new value after each Bump and a
// function that cancels the subscription.
func (g *Generation) Subscribe() (<-chan int64, func()) {
	ch := make(chan int64, 1)

	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = ch
	g.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}
