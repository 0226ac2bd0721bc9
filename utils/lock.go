package utils

import "sync"

// WithLock 在持有 l 期间执行 fn，fn panic 时也会释放锁
func WithLock(l sync.Locker, fn func()) {
	l.Lock()
	defer l.Unlock()

	fn()
}
