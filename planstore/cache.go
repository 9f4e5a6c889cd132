// Package planstore is an ambient engineering concern the engine facade
// wires in but spec.md never names directly: caching the coordinator's
// split+pushdown planning stage (spec §4.4/§4.5) across repeated queries
// of the same shape, and optionally persisting the pushdown paths those
// plans achieved across process restarts (the plan cache itself is
// in-memory only). Grounded on the teacher's query planner cache
// (datalog/planner/cache.go), generalized from a Datalog *query.Query key
// to a fingerprint of the chrontext query root + split config.
package planstore

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/coordinator"
	"github.com/chrontext/chrontext/split"
)

// Key identifies one cacheable PlannedQuery: a query's structural
// fingerprint plus the split config it was planned against (the same tree
// planned under a different Config can legitimately produce a different
// split, so both must be part of the key — mirrors the teacher's
// computeKeyWithOptions folding PlannerOptions into the cache key
// alongside the query itself).
type Key struct {
	QueryFingerprint  algebra.Fingerprint
	ConfigFingerprint algebra.Fingerprint
}

// NewKey fingerprints a query root and its split config into a Key.
func NewKey(root algebra.Node, cfg split.Config) Key {
	return Key{
		QueryFingerprint:  algebra.HashNode(root),
		ConfigFingerprint: hashConfig(cfg),
	}
}

// hashConfig digests a split.Config's fields with the same xxhash digest
// algebra's own Hash/HashNode use (spec §3 ambient note: every node
// carries an xxhash-based fingerprint), so planstore depends on a single
// hashing library throughout rather than reaching for hash/fnv as well.
func hashConfig(cfg split.Config) algebra.Fingerprint {
	h := xxhash.New()
	h.WriteString("resource:")
	h.WriteString(cfg.Resource)
	h.WriteString("|identifier:")
	h.WriteString(cfg.IdentifierPredicate)
	h.WriteString("|cols:")
	keys := make([]string, 0, len(cfg.ColumnPredicates))
	for k := range cfg.ColumnPredicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.WriteString(k)
		h.WriteString("=")
		h.WriteString(cfg.ColumnPredicates[k])
		h.WriteString(",")
	}
	return algebra.Fingerprint(h.Sum64())
}

type cachedPlan struct {
	plan      coordinator.PlannedQuery
	timestamp time.Time
}

// Cache is an in-memory, TTL-and-size-bounded cache of PlannedQuerys,
// always on by default (spec §6.7). Grounded directly on the teacher's
// PlanCache: an RWMutex-guarded map, lazy expiry on Set, oldest-eviction
// when still full after expiry sweep, and atomic hit/miss counters.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*cachedPlan

	hits   int64
	misses int64

	maxSize int
	ttl     time.Duration
}

// NewCache returns a Cache with the given bounds; maxSize <= 0 defaults to
// 1000 entries, ttl <= 0 defaults to 5 minutes, matching the teacher's
// NewPlanCache defaults.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		entries: make(map[Key]*cachedPlan),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns a cached PlannedQuery for key if present and unexpired.
func (c *Cache) Get(key Key) (coordinator.PlannedQuery, bool) {
	if c == nil {
		return coordinator.PlannedQuery{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return coordinator.PlannedQuery{}, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		return coordinator.PlannedQuery{}, false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.plan, true
}

// Set stores a PlannedQuery under key, evicting expired (then oldest)
// entries first if the cache is full.
func (c *Cache) Set(key Key, plan coordinator.PlannedQuery) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictExpiredLocked()
		if len(c.entries) >= c.maxSize {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = &cachedPlan{plan: plan, timestamp: time.Now()}
}

// GetOrPlan returns the cached plan for (root, cfg) if present, otherwise
// plans it via coordinator.Plan and caches the result before returning it.
func (c *Cache) GetOrPlan(root algebra.Node, cfg split.Config) coordinator.PlannedQuery {
	key := NewKey(root, cfg)
	if plan, ok := c.Get(key); ok {
		return plan
	}
	plan := coordinator.Plan(root, cfg)
	c.Set(key, plan)
	return plan
}

// Clear empties the cache and resets its hit/miss counters.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*cachedPlan)
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats reports cumulative hit/miss counts and current entry count.
func (c *Cache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), len(c.entries)
}

func (c *Cache) evictExpiredLocked() {
	now := time.Now()
	for k, entry := range c.entries {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey Key
	var oldestTime time.Time
	first := true
	for k, entry := range c.entries {
		if first || entry.timestamp.Before(oldestTime) {
			oldestKey = k
			oldestTime = entry.timestamp
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
