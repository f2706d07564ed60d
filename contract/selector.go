package contract

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

type fetchFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value T
	err   error
	gen   int64
	at    time.Time
}

type call[T any] struct {
	done  chan struct{}
	gen   int64
	value T
	err   error
}

// selector memoizes one derivation. When bound to a Generation the cached
// value lives until the generation changes, otherwise until ttl expires.
// Concurrent readers share a single in-flight fetch.
type selector[T any] struct {
	name    string
	gen     *Generation
	ttl     time.Duration
	fetch   fetchFunc[T]
	logger  *zap.Logger
	metrics *metrics.StateMetrics
	now     func() time.Time

	mu       sync.Mutex
	cached   *entry[T]
	inflight *call[T]
}

func newSelector[T any](name string, gen *Generation, ttl time.Duration, fetch fetchFunc[T], logger *zap.Logger, m *metrics.StateMetrics) *selector[T] {
	return &selector[T]{
		name:    name,
		gen:     gen,
		ttl:     ttl,
		fetch:   fetch,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

func (s *selector[T]) generation() int64 {
	if s.gen == nil {
		return 0
	}
	return s.gen.Current()
}

// fresh must be called with s.mu held.
func (s *selector[T]) fresh(gen int64) bool {
	if s.cached == nil {
		return false
	}
	if s.gen != nil {
		return s.cached.gen == gen
	}
	return s.ttl > 0 && s.now().Sub(s.cached.at) < s.ttl
}

// start must be called with s.mu held.
func (s *selector[T]) start(ctx context.Context, gen int64) *call[T] {
	if s.inflight != nil && s.inflight.gen == gen {
		return s.inflight
	}
	c := &call[T]{done: make(chan struct{}), gen: gen}
	s.inflight = c

	// the fetch is shared, so it must outlive the caller that started it
	fetchCtx := context.WithoutCancel(ctx)
	go s.run(fetchCtx, c)
	return c
}

func (s *selector[T]) run(ctx context.Context, c *call[T]) {
	c.value, c.err = s.fetch(ctx)

	s.mu.Lock()
	if s.inflight == c {
		s.inflight = nil
	}
	current := s.generation()
	if c.gen == current {
		s.cached = &entry[T]{value: c.value, err: c.err, gen: c.gen, at: s.now()}
	}
	s.mu.Unlock()

	switch {
	case c.gen != current:
		s.metrics.Discarded.WithLabelValues(s.name).Inc()
		s.logger.Debug("Discarding superseded fetch",
			zap.String("derivation", s.name),
			zap.Int64("fetched_generation", c.gen),
			zap.Int64("current_generation", current))
	case c.err != nil:
		s.metrics.Fetches.WithLabelValues(s.name, "error").Inc()
		s.logger.Warn("Derivation fetch failed",
			zap.String("derivation", s.name),
			zap.Error(c.err))
	default:
		s.metrics.Fetches.WithLabelValues(s.name, "ok").Inc()
	}
	close(c.done)
}

// Get returns the value for the current generation, fetching it if needed.
// A cached error is not returned; Get always retries it. If the generation
// moves while the fetch is in flight the result is dropped and the read
// starts over.
func (s *selector[T]) Get(ctx context.Context) (T, error) {
	for {
		s.mu.Lock()
		gen := s.generation()
		if s.fresh(gen) && s.cached.err == nil {
			v := s.cached.value
			s.mu.Unlock()
			return v, nil
		}
		c := s.start(ctx, gen)
		s.mu.Unlock()

		select {
		case <-c.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}

		if c.gen == s.generation() {
			return c.value, c.err
		}
	}
}

// Peek never blocks. Without a fresh cached value it reports Loading and
// starts a background fetch.
func (s *selector[T]) Peek() Loadable[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generation()
	if s.fresh(gen) {
		if s.cached.err != nil {
			return Failed[T](s.cached.err)
		}
		return Value(s.cached.value)
	}
	s.start(context.Background(), gen)
	return Pending[T]()
}

// Reset drops the cached value so the next read refetches.
func (s *selector[T]) Reset() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// family keeps one selector per key in a bounded LRU.
type family[T any] struct {
	mu    sync.Mutex
	cache *lru.Cache
	build func(key string) *selector[T]
}

func newFamily[T any](size int, build func(key string) *selector[T]) (*family[T], error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &family[T]{cache: cache, build: build}, nil
}

func (f *family[T]) get(key string) *selector[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v, ok := f.cache.Get(key); ok {
		return v.(*selector[T])
	}
	s := f.build(key)
	f.cache.Add(key, s)
	return s
}

func (f *family[T]) Len() int {
	return f.cache.Len()
}
