package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Layer is a per-module TTL cache
type Layer[V any] struct {
	cache       *lru.Cache[string, Entry[V]]
	generations map[string]uint64
	ttl         atomic.Int64
	metrics     *metrics
	mu          sync.Mutex
}

// New creates a cache layer
func New[V any](config *Config) (*Layer[V], error) {
	if config == nil {
		config = DefaultConfig()
	}
	size := config.MaxEntries
	if size <= 0 {
		size = DefaultMaxEntries
	}

	c, err := lru.New[string, Entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	l := &Layer[V]{
		cache:       c,
		generations: make(map[string]uint64),
		metrics:     &metrics{},
	}
	l.SetTTL(config.TTL)
	return l, nil
}

// Get returns the payload for module if it was cached less than its TTL before now
func (l *Layer[V]) Get(module string, now time.Time) (V, bool) {
	var zero V
	if module == "" {
		return zero, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache.Get(module)
	if !ok {
		l.metrics.misses.Add(1)
		return zero, false
	}
	if !entry.Fresh(now) {
		l.cache.Remove(module)
		l.metrics.misses.Add(1)
		return zero, false
	}

	l.metrics.hits.Add(1)
	return entry.Payload, true
}

// Put stores payload for module unconditionally
func (l *Layer[V]) Put(module string, payload V, now time.Time) error {
	if module == "" {
		return ErrInvalidKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(module, payload, now)
	return nil
}

// Generation returns the invalidation counter of module
func (l *Layer[V]) Generation(module string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[module]
}

// PutIfCurrent stores payload only if module was not invalidated since gen
// was read. It reports whether the payload was stored.
func (l *Layer[V]) PutIfCurrent(module string, gen uint64, payload V, now time.Time) (bool, error) {
	if module == "" {
		return false, ErrInvalidKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generations[module] != gen {
		return false, nil
	}
	l.addLocked(module, payload, now)
	return true, nil
}

// Invalidate drops the entry for module regardless of its age
func (l *Layer[V]) Invalidate(module string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.generations[module]++
	if l.cache.Remove(module) {
		l.metrics.invalidations.Add(1)
	}
}

// SetTTL changes the TTL applied to entries stored from now on
func (l *Layer[V]) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l.ttl.Store(int64(ttl))
}

// TTL returns the TTL applied to new entries
func (l *Layer[V]) TTL() time.Duration {
	return time.Duration(l.ttl.Load())
}

// Len returns the number of entries, including expired ones not yet dropped
func (l *Layer[V]) Len() int {
	return l.cache.Len()
}

// Purge removes every entry
func (l *Layer[V]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, module := range l.cache.Keys() {
		l.generations[module]++
	}
	l.cache.Purge()
}

// Stats returns cache statistics
func (l *Layer[V]) Stats() Stats {
	stats := Stats{
		Hits:          l.metrics.hits.Load(),
		Misses:        l.metrics.misses.Load(),
		Invalidations: l.metrics.invalidations.Load(),
		ItemCount:     int64(l.cache.Len()),
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (l *Layer[V]) addLocked(module string, payload V, now time.Time) {
	l.cache.Add(module, Entry[V]{
		Module:   module,
		Payload:  payload,
		CachedAt: now,
		TTL:      l.TTL(),
	})
}

// metrics tracks cache counters
type metrics struct {
	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}
