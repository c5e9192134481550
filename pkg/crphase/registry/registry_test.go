package registry

import (
	"cmp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()

	r.Register("one", 1)
	r.Register("two", 2)

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestDeleteIf(t *testing.T) {
	r := New[string, int]()
	r.Register("key", 42)

	assert.False(t, r.DeleteIf("key", func(v int) bool { return v == 7 }))
	_, ok := r.Get("key")
	assert.True(t, ok)

	assert.True(t, r.DeleteIf("key", func(v int) bool { return v == 42 }))
	_, ok = r.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	assert.False(t, r.DeleteIf("missing", func(int) bool { return true }))
}

func TestSorted(t *testing.T) {
	r := New[int, string]()
	r.Register(5, "five")
	r.Register(-1, "minus one")
	r.Register(3, "three")
	r.Register(10, "ten")

	t.Run("descending", func(t *testing.T) {
		got := r.Sorted(nil, func(a, b int) int { return cmp.Compare(b, a) })
		assert.Equal(t, []string{"ten", "five", "three", "minus one"}, got)
	})

	t.Run("filtered ascending", func(t *testing.T) {
		got := r.Sorted(func(k int) bool { return k < 5 }, cmp.Compare[int])
		assert.Equal(t, []string{"minus one", "three"}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, New[int, string]().Sorted(nil, cmp.Compare[int]))
	})
}

func TestConcurrentAccess(t *testing.T) {
	r := New[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(n, n)
			r.Get(n)
			r.Sorted(nil, cmp.Compare[int])
			if n%2 == 0 {
				r.DeleteIf(n, func(int) bool { return true })
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
}
