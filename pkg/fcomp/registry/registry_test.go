package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefineAndGet(t *testing.T) {
	r := New[string, int]()

	assert.True(t, r.Define("x-counter", 1))
	assert.False(t, r.Define("x-counter", 2), "second definition must be refused")

	v, ok := r.Get("x-counter")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("x-missing")
	assert.False(t, ok)
	assert.True(t, r.Has("x-counter"))
	assert.False(t, r.Has("x-missing"))
}

func TestKeysSorted(t *testing.T) {
	r := New[string, struct{}]()
	for _, k := range []string{"x-b", "x-c", "x-a"} {
		r.Define(k, struct{}{})
	}

	assert.Equal(t, []string{"x-a", "x-b", "x-c"}, r.Keys())
	assert.Equal(t, 3, r.Len())
}

func TestConcurrentDefine(t *testing.T) {
	r := New[string, int]()
	var wg sync.WaitGroup
	wins := make(chan int, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if r.Define("x-shared", n) {
				wins <- n
			}
			r.Define(fmt.Sprintf("x-%d", n), n)
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for w := range wins {
		winners = append(winners, w)
	}
	assert.Len(t, winners, 1, "exactly one goroutine defines a key")
	assert.Equal(t, 51, r.Len())
}
