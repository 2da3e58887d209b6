package memo

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_GetPut(t *testing.T) {
	m := New[string, int](2)

	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Put("a", 1)
	m.Put("b", 2)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	m.Put("c", 3)
	_, ok = m.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())

	hits, misses := m.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestMemo_Overwrite(t *testing.T) {
	m := New[string, int](2)
	m.Put("a", 1)
	m.Put("a", 5)

	v, _ := m.Get("a")
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, m.Len())
}

func TestMemo_Invalidate(t *testing.T) {
	m := New[int, string](0)
	for i := 0; i < 10; i++ {
		m.Put(i, "v")
	}

	m.Invalidate(3)
	_, ok := m.Get(3)
	assert.False(t, ok)

	removed := m.InvalidateFunc(func(k int) bool { return k%2 == 0 })
	assert.Equal(t, 5, removed)
	assert.Equal(t, 4, m.Len())

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestMemo_GetOrLoad(t *testing.T) {
	m := New[string, int](4)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := m.GetOrLoad("k", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	_, err := m.GetOrLoad("bad", func() (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	_, ok := m.Get("bad")
	assert.False(t, ok)
}

func TestMemo_Concurrent(t *testing.T) {
	m := New[int, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Put(i%32, g)
				m.Get(i % 32)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Len(), 16)
}
