package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_PutThenGet(t *testing.T) {
	c := NewTTLCache(time.Minute, 10, time.Minute)

	c.Set("document:1", "doc")
	v, ok := c.Get("document:1")
	require.True(t, ok)
	assert.Equal(t, "doc", v)

	_, ok = c.Get("document:2")
	assert.False(t, ok)
}

func TestTTLCache_ExpiredIsMissBeforeSweep(t *testing.T) {
	// Janitor interval far beyond the test so only read-time expiry can hide the entry.
	c := NewTTLCache(20*time.Millisecond, 10, time.Hour)

	c.Set("chunk:1:0", "chunk")
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("chunk:1:0")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "entry is still physically present until swept")
}

func TestTTLCache_EvictsOldestInsertion(t *testing.T) {
	c := NewTTLCache(time.Minute, 3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		time.Sleep(2 * time.Millisecond)
	}

	// Reading k0 does not refresh it; eviction is by insertion time.
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Set("k3", 3)

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("k0")
	assert.False(t, ok)
	for _, k := range []string{"k1", "k2", "k3"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
}

func TestTTLCache_OverwriteDoesNotEvict(t *testing.T) {
	c := NewTTLCache(time.Minute, 2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestTTLCache_DeletePrefix(t *testing.T) {
	c := NewTTLCache(time.Minute, 10, time.Minute)
	c.Set("chunk:doc-1:0", "a")
	c.Set("chunk:doc-1:1", "b")
	c.Set("chunk:doc-2:0", "c")

	assert.Equal(t, 2, c.DeletePrefix("chunk:doc-1:"))
	_, ok := c.Get("chunk:doc-2:0")
	assert.True(t, ok)
}

func TestTTLCache_ConcurrentAccessStaysBounded(t *testing.T) {
	c := NewTTLCache(time.Minute, 50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d:%d", g, i)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
