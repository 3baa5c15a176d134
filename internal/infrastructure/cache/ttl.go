// Package cache implements the in-process TTL cache backing dictionary
// reads. Entries carry tags so a write to one dictionary can drop every
// derived entry (lists, searches, filters, statistics) in one call.
package cache

import (
	"math"
	"regexp"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a non-positive ttl.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries bounds the cache before oldest-expiry eviction.
	DefaultMaxEntries = 1000
)

type entry struct {
	value     any
	expiresAt time.Time
	tags      []string
}

// EntryInfo describes one cached entry in a stats snapshot.
type EntryInfo struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
	Tags      []string  `json:"tags,omitempty"`
}

// Stats is a point-in-time snapshot for the admin cache endpoint.
type Stats struct {
	Size    int         `json:"size"`
	MaxSize int         `json:"maxSize"`
	HitRate float64     `json:"hitRate"`
	Entries []EntryInfo `json:"entries"`
}

// TTLCache is a bounded cache with per-entry expiry and tag invalidation.
// Safe for concurrent use.
type TTLCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
}

// Option tweaks cache construction.
type Option func(*TTLCache)

// WithMaxEntries overrides the entry bound.
func WithMaxEntries(n int) Option {
	return func(c *TTLCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithDefaultTTL overrides the fallback TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *TTLCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces the time source. Tests use this to step expiry.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// New builds a cache with the production defaults.
func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries:    make(map[string]entry),
		maxEntries: DefaultMaxEntries,
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value, or false when the key is absent or expired.
// Expired entries are removed on access.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Recheck under the write lock: a Set may have raced in.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value. A non-positive ttl falls back to the default. When the
// cache is full, the tenth of entries closest to expiry is evicted first.
func (c *TTLCache) Set(key string, value any, ttl time.Duration, tags ...string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
		tags:      tags,
	}
}

// evictOldest drops ceil(10%) of maxEntries, picking the entries whose
// expiry is nearest. Caller holds the write lock.
func (c *TTLCache) evictOldest() {
	n := int(math.Ceil(float64(c.maxEntries) * 0.1))
	if n < 1 {
		n = 1
	}
	type victim struct {
		key       string
		expiresAt time.Time
	}
	victims := make([]victim, 0, len(c.entries))
	for k, e := range c.entries {
		victims = append(victims, victim{k, e.expiresAt})
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].expiresAt.Before(victims[j].expiresAt)
	})
	if n > len(victims) {
		n = len(victims)
	}
	for _, v := range victims[:n] {
		delete(c.entries, v.key)
	}
}

// Invalidate removes a single key.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePattern removes every key matching the regular expression.
func (c *TTLCache) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if re.MatchString(k) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

// InvalidateByTags removes every entry carrying at least one of the tags.
func (c *TTLCache) InvalidateByTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		for _, tag := range e.tags {
			if _, ok := want[tag]; ok {
				delete(c.entries, k)
				removed++
				break
			}
		}
	}
	return removed
}

// Clear drops everything.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the current entry count, expired entries included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats snapshots the cache. Hit tracking is not wired yet, so HitRate
// is reported as zero.
func (c *TTLCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := make([]EntryInfo, 0, len(c.entries))
	for k, e := range c.entries {
		infos = append(infos, EntryInfo{Key: k, ExpiresAt: e.expiresAt, Tags: e.tags})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return Stats{
		Size:    len(c.entries),
		MaxSize: c.maxEntries,
		HitRate: 0,
		Entries: infos,
	}
}
