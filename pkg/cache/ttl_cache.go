package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache is a bounded go-cache. Expired entries read as misses straight away
// and are physically removed by the janitor every sweep interval. When full, Set
// evicts the entry inserted earliest.
type TTLCache struct {
	store      *gocache.Cache
	maxEntries int
	writeMu    sync.Mutex
}

func NewTTLCache(ttl time.Duration, maxEntries int, sweepInterval time.Duration) *TTLCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &TTLCache{
		store:      gocache.New(ttl, sweepInterval),
		maxEntries: maxEntries,
	}
}

func (c *TTLCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *TTLCache) Set(key string, value interface{}) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, exists := c.store.Get(key); !exists && c.store.ItemCount() >= c.maxEntries {
		c.store.DeleteExpired()
		if c.store.ItemCount() >= c.maxEntries {
			c.evictOldest()
		}
	}
	c.store.SetDefault(key, value)
}

// evictOldest drops the live entry with the earliest expiry. All entries share one
// TTL, so that is also the earliest insertion.
func (c *TTLCache) evictOldest() {
	var (
		oldestKey string
		oldestExp int64
	)
	for k, item := range c.store.Items() {
		if oldestKey == "" || item.Expiration < oldestExp {
			oldestKey = k
			oldestExp = item.Expiration
		}
	}
	if oldestKey != "" {
		c.store.Delete(oldestKey)
	}
}

func (c *TTLCache) Delete(key string) {
	c.store.Delete(key)
}

func (c *TTLCache) DeletePrefix(prefix string) int {
	removed := 0
	for k := range c.store.Items() {
		if strings.HasPrefix(k, prefix) {
			c.store.Delete(k)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, including expired ones the janitor has not swept yet.
func (c *TTLCache) Len() int {
	return c.store.ItemCount()
}

func (c *TTLCache) Flush() {
	c.store.Flush()
}
