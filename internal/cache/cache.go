// Package cache is the in-memory TTL result cache fronting the
// aggregation pipeline. Process-lifetime only; nothing survives a
// restart.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigia_cache_hits_total",
			Help: "Result cache hits by key prefix.",
		},
		[]string{"prefix"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigia_cache_misses_total",
			Help: "Result cache misses (absent or expired) by key prefix.",
		},
		[]string{"prefix"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// TTLPolicy sets per-data-class TTLs.
type TTLPolicy struct {
	// Aggregate covers fast-changing capacity rollups.
	Aggregate time.Duration `mapstructure:"aggregate_ttl"`
	// Trend covers historical/trend views.
	Trend time.Duration `mapstructure:"trend_ttl"`
	// Narrative covers generated executive summaries, which live until
	// this TTL elapses or the key is explicitly invalidated.
	Narrative time.Duration `mapstructure:"narrative_ttl"`
}

// DefaultTTLPolicy is the shipped policy.
var DefaultTTLPolicy = TTLPolicy{
	Aggregate: 2 * time.Minute,
	Trend:     5 * time.Minute,
	Narrative: 30 * time.Minute,
}

type entry struct {
	payload   any
	createdAt time.Time
	expiresAt time.Time
}

// Cache is a mutex-guarded TTL store. Entries are immutable once
// inserted: the cache owns the payload and callers must not mutate it
// after Set. Expiry is lazy: an expired entry is deleted and reported
// as a miss on the next Get.
//
// Concurrent misses on one key are not coalesced; both callers compute
// and both write, last write wins. Single-flight was considered and
// deliberately left out: recomputation is cheap relative to the TTL
// windows.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the payload for key and whether it was a fresh hit.
// An entry is served up to and including its expiry instant and never
// past it; there is no staleness guard short of the TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		cacheMisses.WithLabelValues(keyPrefix(key)).Inc()
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		cacheMisses.WithLabelValues(keyPrefix(key)).Inc()
		return nil, false
	}
	cacheHits.WithLabelValues(keyPrefix(key)).Inc()
	return e.payload, true
}

// Set stores the payload under key for ttl, overwriting any previous
// entry. A non-positive ttl stores nothing.
func (c *Cache) Set(key string, payload any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry{
		payload:   payload,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Invalidate removes one key. Returns whether an entry was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// InvalidatePrefix removes every key with the given prefix and returns
// the number of entries removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, including not-yet-collected
// expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// keyPrefix extracts the logical data class from a cache key
// ("site-capacity:all" -> "site-capacity") to keep metric cardinality
// bounded.
func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
