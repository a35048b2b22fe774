package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegion_AddGet(t *testing.T) {
	r := NewRegion[[]string]("test", 10, time.Minute)

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Add("soup|0|10", []string{"a", "b"})
	got, ok := r.Get("soup|0|10")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, "test", r.Name())
}

func TestRegion_Expires(t *testing.T) {
	r := NewRegion[int]("ttl", 10, 50*time.Millisecond)
	r.Add("k", 1)

	assert.Eventually(t, func() bool {
		_, ok := r.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRegion_EvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegion[int]("lru", 2, time.Minute)
	r.Add("a", 1)
	r.Add("b", 2)
	r.Get("a")
	r.Add("c", 3)

	_, ok := r.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestRegion_RemovePrefix(t *testing.T) {
	r := NewRegion[int]("search", 10, time.Minute)
	r.Add(SearchKey("soup", 0, 10), 1)
	r.Add(SearchKey("soup", 1, 10), 2)
	r.Add(SearchKey("soup", 0, 20), 3)
	r.Add(SearchKey("soupy", 0, 10), 4)
	r.Add(SearchKey("stew", 0, 10), 5)

	removed := r.RemovePrefix(SearchPrefix("soup"))
	assert.Equal(t, 3, removed)

	_, ok := r.Get(SearchKey("soupy", 0, 10))
	assert.True(t, ok, "other terms sharing a prefix must survive")
	_, ok = r.Get(SearchKey("stew", 0, 10))
	assert.True(t, ok)
}

func TestRegion_RemoveAndPurge(t *testing.T) {
	r := NewRegion[int]("detail", 10, time.Minute)
	r.Add("a", 1)
	r.Add("b", 2)

	r.Remove("a")
	_, ok := r.Get("a")
	assert.False(t, ok)

	r.Purge()
	assert.Equal(t, 0, r.Len())
}

func TestNewRegion_NonPositiveSize(t *testing.T) {
	r := NewRegion[int]("tiny", 0, time.Minute)
	r.Add("a", 1)
	_, ok := r.Get("a")
	assert.True(t, ok)
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "chicken curry|2|25", SearchKey("chicken curry", 2, 25))
	assert.NotEqual(t, SearchKey("soup", 0, 10), SearchKey("soup", 1, 10))
}
