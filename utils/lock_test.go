package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLock(t *testing.T) {
	var (
		mu        sync.Mutex
		globalVar int64
		wg        sync.WaitGroup
	)

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				WithLock(&mu, func() {
					globalVar++
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(3000), globalVar)

	// panic 后锁已释放
	assert.Panics(t, func() {
		WithLock(&mu, func() { panic("boom") })
	})
	assert.True(t, mu.TryLock())
	mu.Unlock()
}
