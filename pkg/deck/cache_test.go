package deck

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentCache_ReturnsIsolatedCopies(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "cover.pptx", textDeck("{{title}}"))
	cache := NewFragmentCacheWithConfig(CacheConfig{MaxSize: 4})

	first, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cover", first.Name)
	assert.Equal(t, path, first.Source)

	first.Placeholders = map[string]string{"title": "changed"}
	require.NoError(t, NewSubstituter(nil).Apply(first))

	second, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"changed"}, slideTexts(t, first.Package))
	assert.Equal(t, []string{"{{title}}"}, slideTexts(t, second.Package))
	assert.Equal(t, 1, cache.Size())
}

func TestFragmentCache_ConcurrentLoads(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "body.pptx", textDeck("body"))
	cache := NewFragmentCacheWithConfig(CacheConfig{MaxSize: 4})

	var wg sync.WaitGroup
	fragments := make([]*Fragment, 8)
	errs := make([]error, 8)
	for i := range fragments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fragments[i], errs[i] = cache.Load(path)
		}(i)
	}
	wg.Wait()

	for i := range fragments {
		require.NoError(t, errs[i])
		for j := 0; j < i; j++ {
			assert.NotSame(t, fragments[i].Package, fragments[j].Package)
		}
	}
	assert.Equal(t, 1, cache.Size())
}

func TestFragmentCache_Eviction(t *testing.T) {
	dir := t.TempDir()
	a := writeDeck(t, dir, "a.pptx", textDeck("a"))
	b := writeDeck(t, dir, "b.pptx", textDeck("b"))
	cache := NewFragmentCacheWithConfig(CacheConfig{MaxSize: 1})

	_, err := cache.Load(a)
	require.NoError(t, err)
	_, err = cache.Load(b)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Size())
	_, ok := cache.Get(a)
	assert.False(t, ok)
	_, ok = cache.Get(b)
	assert.True(t, ok)

	cache.Remove(b)
	assert.Equal(t, 0, cache.Size())
}

func TestFragmentCache_Expiry(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "a.pptx", textDeck("a"))
	cache := NewFragmentCacheWithConfig(CacheConfig{MaxSize: 2, TTL: time.Millisecond})

	_, err := cache.Load(path)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get(path)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestFragmentCache_Disabled(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "a.pptx", textDeck("a"))
	cache := NewFragmentCacheWithConfig(CacheConfig{})

	f, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slideTexts(t, f.Package))
	assert.Equal(t, 0, cache.Size())
}

func TestFragmentCache_MissingFile(t *testing.T) {
	cache := NewFragmentCacheWithConfig(CacheConfig{MaxSize: 2})

	_, err := cache.Load("does/not/exist.pptx")

	require.Error(t, err)
	assert.True(t, IsFragmentError(err))
	assert.Equal(t, 0, cache.Size())
}
