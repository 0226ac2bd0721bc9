package utils

import (
	"container/list"
	"sync"
)

type Lru[K comparable, V any] struct {
	mu   sync.Mutex
	list *list.List
	size int
	m    map[K]*list.Element
}

type item[K comparable, V any] struct {
	k K
	v V
}

func NewLRU[K comparable, V any](size int) *Lru[K, V] {
	if size <= 0 {
		size = 1
	}
	return &Lru[K, V]{
		list: list.New(),
		size: size,
		m:    map[K]*list.Element{},
	}
}

func (lru *Lru[K, V]) Read(key K) (V, bool) {
	var zero V
	lru.mu.Lock()
	defer lru.mu.Unlock()

	elem, exist := lru.m[key]
	if !exist {
		return zero, false
	}

	lru.list.MoveToFront(elem)
	return elem.Value.(*item[K, V]).v, true
}

// Write 写入或覆盖 key，超出容量时淘汰最久未访问的元素并返回
func (lru *Lru[K, V]) Write(key K, data V) (V, bool) {
	var zero V
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if elem, exist := lru.m[key]; exist {
		lru.list.MoveToFront(elem)
		elem.Value.(*item[K, V]).v = data
		return zero, false
	}

	lru.m[key] = lru.list.PushFront(&item[K, V]{k: key, v: data})
	if lru.list.Len() > lru.size {
		old := lru.list.Remove(lru.list.Back()).(*item[K, V])
		delete(lru.m, old.k)
		return old.v, true
	}
	return zero, false
}

func (lru *Lru[K, V]) Remove(key K) (V, bool) {
	var zero V
	lru.mu.Lock()
	defer lru.mu.Unlock()

	elem, exist := lru.m[key]
	if !exist {
		return zero, false
	}
	delete(lru.m, key)
	lru.list.Remove(elem)
	return elem.Value.(*item[K, V]).v, true
}

func (lru *Lru[K, V]) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.list.Len()
}
