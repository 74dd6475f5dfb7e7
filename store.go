package datapool

import (
	"container/list"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goforj/datapool/poolcore"
)

// QueryCache is the contract the manager uses to memoize read results.
type QueryCache interface {
	// Get returns the live value for key, treating expired entries as
	// absent and purging them as a side effect.
	Get(key string) ([]poolcore.Row, bool)
	// Set stores rows under key, evicting at capacity. ttl <= 0 selects
	// the store's default.
	Set(key string, rows []poolcore.Row, ttl time.Duration)
	// Delete removes a single key.
	Delete(key string)
	// DeleteMatching removes keys containing substr and reports how many.
	DeleteMatching(substr string) int
	// Clear removes all entries.
	Clear()
	// Cleanup purges every expired entry and reports how many were removed.
	Cleanup() int
	Size() int
	Capacity() int
}

// NewQueryCache selects a store: bounded insertion-order eviction when
// capacity > 0, otherwise an unbounded store with janitor expiry.
func NewQueryCache(capacity int, defaultTTL time.Duration) QueryCache {
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}
	if capacity > 0 {
		return newBoundedCache(capacity, defaultTTL)
	}
	return newUnboundedCache(defaultTTL)
}

type boundedEntry struct {
	key        string
	rows       []poolcore.Row
	insertedAt time.Time
	ttl        time.Duration
}

func (e *boundedEntry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// boundedCache keeps insertion order in a list so the earliest-inserted
// key still present is evicted at capacity. Reads do not refresh order;
// this is deliberately cheaper than true LRU.
type boundedCache struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	items      map[string]*list.Element
	order      *list.List
}

func newBoundedCache(capacity int, defaultTTL time.Duration) *boundedCache {
	return &boundedCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *boundedCache) Get(key string) ([]poolcore.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*boundedEntry)
	if entry.expired(time.Now()) {
		c.remove(elem)
		return nil, false
	}
	return poolcore.CloneRows(entry.rows), true
}

func (c *boundedCache) Set(key string, rows []poolcore.Row, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	clone := poolcore.CloneRows(rows)

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		// Overwrite refreshes insertion order.
		c.remove(elem)
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}
	entry := &boundedEntry{key: key, rows: clone, insertedAt: time.Now(), ttl: ttl}
	c.items[key] = c.order.PushFront(entry)
}

func (c *boundedCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

func (c *boundedCache) DeleteMatching(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, elem := range c.items {
		if substr == "" || containsKey(key, substr) {
			c.remove(elem)
			removed++
		}
	}
	return removed
}

func (c *boundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *boundedCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*boundedEntry).expired(now) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (c *boundedCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *boundedCache) Capacity() int { return c.capacity }

// remove expects c.mu held.
func (c *boundedCache) remove(elem *list.Element) {
	entry := elem.Value.(*boundedEntry)
	delete(c.items, entry.key)
	c.order.Remove(elem)
}

// unboundedCache delegates expiry to go-cache's janitor; there is no
// capacity eviction, matching Capacity() == 0.
type unboundedCache struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
}

func newUnboundedCache(defaultTTL time.Duration) *unboundedCache {
	return &unboundedCache{
		cache:      gocache.New(defaultTTL, defaultCleanupInterval),
		defaultTTL: defaultTTL,
	}
}

func (c *unboundedCache) Get(key string) ([]poolcore.Row, bool) {
	item, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	rows, ok := item.([]poolcore.Row)
	if !ok {
		return nil, false
	}
	return poolcore.CloneRows(rows), true
}

func (c *unboundedCache) Set(key string, rows []poolcore.Row, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.cache.Set(key, poolcore.CloneRows(rows), ttl)
}

func (c *unboundedCache) Delete(key string) {
	c.cache.Delete(key)
}

func (c *unboundedCache) DeleteMatching(substr string) int {
	removed := 0
	for key := range c.cache.Items() {
		if substr == "" || containsKey(key, substr) {
			c.cache.Delete(key)
			removed++
		}
	}
	return removed
}

func (c *unboundedCache) Clear() {
	c.cache.Flush()
}

func (c *unboundedCache) Cleanup() int {
	before := c.cache.ItemCount()
	c.cache.DeleteExpired()
	removed := before - c.cache.ItemCount()
	if removed < 0 {
		return 0
	}
	return removed
}

func (c *unboundedCache) Size() int { return c.cache.ItemCount() }

func (c *unboundedCache) Capacity() int { return 0 }

func containsKey(key, substr string) bool {
	return strings.Contains(key, substr)
}
