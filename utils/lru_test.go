package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLru(t *testing.T) {
	lru := NewLRU[int, []byte](3)

	_, ok := lru.Read(1)
	assert.False(t, ok)

	lru.Write(1, []byte{1})
	v, ok := lru.Read(1)
	assert.True(t, ok)
	assert.Equal(t, []byte{1}, v)

	// 覆盖不淘汰
	_, evicted := lru.Write(1, []byte{11})
	assert.False(t, evicted)
	v, _ = lru.Read(1)
	assert.Equal(t, []byte{11}, v)

	lru.Write(2, []byte{2})
	lru.Write(3, []byte{3})
	// 访问 1 之后最久未访问的是 2
	lru.Read(1)
	old, evicted := lru.Write(4, []byte{4})
	assert.True(t, evicted)
	assert.Equal(t, []byte{2}, old)
	assert.Equal(t, 3, lru.Len())

	_, ok = lru.Read(2)
	assert.False(t, ok)

	v, ok = lru.Remove(3)
	assert.True(t, ok)
	assert.Equal(t, []byte{3}, v)
	_, ok = lru.Remove(3)
	assert.False(t, ok)
	assert.Equal(t, 2, lru.Len())
}

func TestLruConcurrent(t *testing.T) {
	lru := NewLRU[int, int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				lru.Write(base*1000+j, j)
				lru.Read(base*1000 + j)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, lru.Len())
}
