package pool

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/utils"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/eapache/queue"
	"go.uber.org/zap"
)

type Task func()

// poolState 由 Pool 和所有 worker 共享，所有字段都受 mu 保护
type poolState struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  *queue.Queue
	closed bool
}

// Pool 固定大小的 worker 池，任务按提交顺序出队，每个任务只执行一次
type Pool struct {
	state *poolState
	wg    sync.WaitGroup
	size  int
	once  sync.Once
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	state := &poolState{
		tasks: queue.New(),
	}
	state.cond = sync.NewCond(&state.mu)

	p := &Pool{
		state: state,
		size:  size,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work(i)
	}
	return p
}

// Submit 不会阻塞，池关闭后返回 PoolClosed 错误
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errs.NewInvalidParamErr()
	}

	st := p.state
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return errs.NewPoolClosedErr()
	}
	st.tasks.Add(task)
	st.mu.Unlock()
	st.cond.Signal()
	return nil
}

// Close 拒绝新任务，等队列里剩余的任务执行完后回收全部 worker，可重复调用
func (p *Pool) Close() {
	p.once.Do(func() {
		st := p.state
		st.mu.Lock()
		st.closed = true
		st.mu.Unlock()
		st.cond.Broadcast()
	})
	p.wg.Wait()
}

func (p *Pool) Pending() int {
	st := p.state
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tasks.Length()
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) work(idx int) {
	defer p.wg.Done()
	st := p.state
	for {
		st.mu.Lock()
		for st.tasks.Length() == 0 && !st.closed {
			st.cond.Wait()
		}
		if st.tasks.Length() == 0 {
			// closed 且队列已清空
			st.mu.Unlock()
			return
		}
		task := st.tasks.Remove().(Task)
		st.mu.Unlock()

		p.run(idx, task)
	}
}

func (p *Pool) run(idx int, task Task) {
	defer utils.Recover(func(r any, stack []byte) {
		logs.Error("worker recover from panic",
			zap.Int(consts.LogFieldParams, idx),
			zap.String(consts.LogFieldReason, fmt.Sprint(r)),
			zap.ByteString(consts.LogFieldValue, stack),
		)
	})
	task()
}
