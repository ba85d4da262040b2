package embed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheHitMiss(t *testing.T) {
	c := newQueryCache(10)

	_, ok := c.get("missing")
	assert.False(t, ok)

	c.put("query", []float32{1, 2, 3})
	vec, ok := c.get("query")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestQueryCacheEvictsOldestHalf(t *testing.T) {
	c := newQueryCache(10)
	for i := 0; i < 10; i++ {
		c.put(fmt.Sprintf("q%d", i), []float32{float32(i)})
	}
	require.Equal(t, 10, c.len())

	// Next insert triggers a batch eviction of the oldest five.
	c.put("q10", []float32{10})
	assert.Equal(t, 6, c.len())

	for i := 0; i < 5; i++ {
		_, ok := c.get(fmt.Sprintf("q%d", i))
		assert.False(t, ok, "q%d should have been evicted", i)
	}
	for i := 5; i <= 10; i++ {
		_, ok := c.get(fmt.Sprintf("q%d", i))
		assert.True(t, ok, "q%d should have survived", i)
	}
}

func TestQueryCacheOverwriteDoesNotGrow(t *testing.T) {
	c := newQueryCache(10)
	c.put("q", []float32{1})
	c.put("q", []float32{2})

	assert.Equal(t, 1, c.len())
	vec, _ := c.get("q")
	assert.Equal(t, []float32{2}, vec)
}

func TestQueryCacheClear(t *testing.T) {
	c := newQueryCache(10)
	c.put("a", []float32{1})
	c.put("b", []float32{2})
	c.clear()

	assert.Equal(t, 0, c.len())
	_, ok := c.get("a")
	assert.False(t, ok)
}
