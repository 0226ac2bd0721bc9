package poller

import (
	"testing"
	"time"

	"github.com/Trinoooo/eggie_web/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestPoller(t *testing.T) *EpollPoller {
	t.Helper()
	ep, err := NewEpollPoller(16)
	require.Nil(t, err)
	t.Cleanup(func() { _ = ep.Close() })
	return ep
}

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollerReadReady(t *testing.T) {
	ep := newTestPoller(t)
	r, w := socketPair(t)
	require.Nil(t, ep.Register(r, EventRead|EventPeerHup))

	events := make([]Pevent, 16)
	n, err := ep.Wait(events, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	_, err = unix.Write(w, []byte("x"))
	require.Nil(t, err)

	n, err = ep.Wait(events, 1000)
	assert.Nil(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, r, events[0].Fd)
	assert.NotZero(t, events[0].Events&EventRead)
}

// TestPollerOneShot oneshot 事件触发一次后不再上报，Modify 重新布防后恢复
func TestPollerOneShot(t *testing.T) {
	ep := newTestPoller(t)
	r, w := socketPair(t)
	require.Nil(t, ep.Register(r, EventRead|EventOneShot))

	_, err := unix.Write(w, []byte("x"))
	require.Nil(t, err)

	events := make([]Pevent, 16)
	n, err := ep.Wait(events, 1000)
	assert.Nil(t, err)
	assert.Equal(t, 1, n)

	// 数据未读走，但已被解除布防
	n, err = ep.Wait(events, 50)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	require.Nil(t, ep.Modify(r, EventRead|EventOneShot))
	n, err = ep.Wait(events, 1000)
	assert.Nil(t, err)
	assert.Equal(t, 1, n)
}

func TestPollerPeerHup(t *testing.T) {
	ep := newTestPoller(t)
	r, w := socketPair(t)
	require.Nil(t, ep.Register(r, EventRead|EventPeerHup))
	require.Nil(t, unix.Shutdown(w, unix.SHUT_WR))

	events := make([]Pevent, 16)
	n, err := ep.Wait(events, 1000)
	assert.Nil(t, err)
	require.Equal(t, 1, n)
	assert.NotZero(t, events[0].Events&EventPeerHup)
}

func TestPollerDeregister(t *testing.T) {
	ep := newTestPoller(t)
	r, w := socketPair(t)
	require.Nil(t, ep.Register(r, EventRead))
	require.Nil(t, ep.Deregister(r))

	_, err := unix.Write(w, []byte("x"))
	require.Nil(t, err)

	events := make([]Pevent, 16)
	n, err := ep.Wait(events, 50)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	assert.NotNil(t, ep.Deregister(r))
	assert.NotNil(t, ep.Modify(r, EventRead))
	assert.NotNil(t, ep.Register(-1, EventRead))
}

// TestPollerWakeup 其他 goroutine 唤醒阻塞中的 Wait，唤醒事件本身不会上报
func TestPollerWakeup(t *testing.T) {
	ep := newTestPoller(t)

	done := make(chan int, 1)
	go func() {
		events := make([]Pevent, 16)
		n, _ := ep.Wait(events, -1)
		done <- n
	}()

	time.Sleep(50 * time.Millisecond)
	require.Nil(t, ep.Wakeup())
	require.Nil(t, ep.Wakeup())

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(2 * time.Second):
		t.Fatal("wait not woken up")
	}

	// 计数器已被读空，下一次 Wait 不会被残留的唤醒打断
	events := make([]Pevent, 16)
	n, err := ep.Wait(events, 50)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)
}

func TestPollerClose(t *testing.T) {
	ep, err := NewEpollPoller(0)
	require.Nil(t, err)
	assert.Nil(t, ep.Close())
	assert.Nil(t, ep.Close())
	assert.NotNil(t, ep.Wakeup())
}

// TestPollerWaitEmptyEvents 没有可写入的事件槽时直接报参数错误，不进入 epoll_wait
func TestPollerWaitEmptyEvents(t *testing.T) {
	ep := newTestPoller(t)
	n, err := ep.Wait(nil, 0)
	assert.Equal(t, 0, n)
	assert.Equal(t, errs.InvalidParamErrCode, int(errs.GetCode(err)))

	n, err = ep.Wait([]Pevent{}, -1)
	assert.Equal(t, 0, n)
	assert.Equal(t, errs.InvalidParamErrCode, int(errs.GetCode(err)))
}
