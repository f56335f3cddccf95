package cache

import "time"

const (
	// DefaultTTL matches the default cache_duration of 300 seconds
	DefaultTTL = 300 * time.Second
	// DefaultMaxEntries bounds the number of cached modules
	DefaultMaxEntries = 1024
)

// Entry is one cached analysis
type Entry[V any] struct {
	Module   string
	Payload  V
	CachedAt time.Time
	TTL      time.Duration
}

// Fresh reports whether the entry is still valid at now
func (e Entry[V]) Fresh(now time.Time) bool {
	return now.Sub(e.CachedAt) < e.TTL
}

// Stats represents cache statistics
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	HitRate       float64
	ItemCount     int64
}

// Config holds cache configuration
type Config struct {
	MaxEntries int           // Max cached modules (default: 1024)
	TTL        time.Duration // TTL for new entries (default: 300s)
}

// DefaultConfig returns default cache configuration
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
	}
}
