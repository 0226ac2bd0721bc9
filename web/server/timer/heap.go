package timer

import (
	"container/heap"
	"time"
)

type Callback func()

type entry struct {
	id       uint64
	deadline time.Time
	cb       Callback
}

// entries 实现 heap.Interface，Swap 时同步维护 refs
type entries struct {
	items []*entry
	refs  map[uint64]int // id -> items 下标
}

func (e *entries) Len() int { return len(e.items) }

func (e *entries) Less(i, j int) bool {
	return e.items[i].deadline.Before(e.items[j].deadline)
}

func (e *entries) Swap(i, j int) {
	e.items[i], e.items[j] = e.items[j], e.items[i]
	e.refs[e.items[i].id] = i
	e.refs[e.items[j].id] = j
}

func (e *entries) Push(x any) {
	item := x.(*entry)
	e.refs[item.id] = len(e.items)
	e.items = append(e.items, item)
}

func (e *entries) Pop() any {
	n := len(e.items)
	item := e.items[n-1]
	e.items[n-1] = nil
	e.items = e.items[:n-1]
	delete(e.refs, item.id)
	return item
}

type Option func(h *Heap)

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(h *Heap) {
		h.now = now
	}
}

// Heap 以 id 为键的最小堆定时器，不是并发安全的，只能在分发协程中使用
type Heap struct {
	es  *entries
	now func() time.Time
}

func NewHeap(opts ...Option) *Heap {
	h := &Heap{
		es: &entries{
			items: make([]*entry, 0, 64),
			refs:  make(map[uint64]int),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddOrUpdate 新增定时器，id 已存在时更新截止时间和回调
func (h *Heap) AddOrUpdate(id uint64, timeout time.Duration, cb Callback) {
	deadline := h.now().Add(timeout)
	if idx, ok := h.es.refs[id]; ok {
		item := h.es.items[idx]
		item.deadline = deadline
		item.cb = cb
		heap.Fix(h.es, idx)
		return
	}
	heap.Push(h.es, &entry{
		id:       id,
		deadline: deadline,
		cb:       cb,
	})
}

// Cancel 删除定时器但不触发回调，id 不存在时什么都不做
func (h *Heap) Cancel(id uint64) {
	idx, ok := h.es.refs[id]
	if !ok {
		return
	}
	heap.Remove(h.es, idx)
}

// FireExpired 先出堆再执行回调，回调里可以安全地调用 Cancel/AddOrUpdate
func (h *Heap) FireExpired() {
	for h.es.Len() > 0 {
		root := h.es.items[0]
		if root.deadline.After(h.now()) {
			return
		}
		heap.Pop(h.es)
		if root.cb != nil {
			root.cb()
		}
	}
}

// NextTick 返回距离最近截止时间的毫秒数，堆为空时返回 -1
func (h *Heap) NextTick() int {
	h.FireExpired()
	if h.es.Len() == 0 {
		return -1
	}

	d := h.es.items[0].deadline.Sub(h.now())
	if d < 0 {
		return 0
	}
	// 向上取整，避免 epoll_wait 提前返回后空转
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return int(ms)
}

func (h *Heap) Has(id uint64) bool {
	_, ok := h.es.refs[id]
	return ok
}

func (h *Heap) Len() int {
	return h.es.Len()
}

func (h *Heap) Clear() {
	clear(h.es.items)
	h.es.items = h.es.items[:0]
	clear(h.es.refs)
}
