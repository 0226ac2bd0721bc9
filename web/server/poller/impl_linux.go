package poller

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/Trinoooo/eggie_web/errs"
	"golang.org/x/sys/unix"
)

const defaultMaxEvents = 1024

type EpollPoller struct {
	epfd   int
	wakeFd int
	raw    []unix.EpollEvent

	mu     sync.RWMutex // 保护 closed，避免 Close 之后 Wakeup 写到被复用的 fd
	closed bool
}

func NewEpollPoller(maxEvents int) (*EpollPoller, error) {
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errs.NewCreatePollerErr().WithErr(err)
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, errs.NewCreatePollerErr().WithErr(err)
	}

	ep := &EpollPoller{
		epfd:   epfd,
		wakeFd: wakeFd,
		raw:    make([]unix.EpollEvent, maxEvents),
	}
	if err = ep.ctl(unix.EPOLL_CTL_ADD, wakeFd, EventRead); err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(epfd)
		return nil, errs.NewCreatePollerErr().WithErr(err)
	}
	return ep, nil
}

func (ep *EpollPoller) Register(fd int, events uint32) error {
	if err := ep.ctl(unix.EPOLL_CTL_ADD, fd, events); err != nil {
		return errs.NewRegisterEventErr().WithErr(err)
	}
	return nil
}

func (ep *EpollPoller) Modify(fd int, events uint32) error {
	if err := ep.ctl(unix.EPOLL_CTL_MOD, fd, events); err != nil {
		return errs.NewModifyEventErr().WithErr(err)
	}
	return nil
}

func (ep *EpollPoller) Deregister(fd int) error {
	if fd < 0 {
		return errs.NewInvalidParamErr()
	}
	if err := unix.EpollCtl(ep.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{}); err != nil {
		return errs.NewRemoveEventErr().WithErr(err)
	}
	return nil
}

func (ep *EpollPoller) Wait(events []Pevent, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, errs.NewInvalidParamErr()
	}
	if timeoutMs < 0 {
		timeoutMs = -1
	}

	raw := ep.raw
	if len(events) < len(raw) {
		raw = raw[:len(events)]
	}

	n, err := unix.EpollWait(ep.epfd, raw, timeoutMs)
	if err != nil {
		// 被信号打断属于正常情况
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, errs.NewWaitEventErr().WithErr(err)
	}

	cnt := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == ep.wakeFd {
			ep.drainWakeup()
			continue
		}
		events[cnt] = Pevent{
			Fd:     fd,
			Events: fromEpoll(raw[i].Events),
		}
		cnt++
	}
	return cnt, nil
}

func (ep *EpollPoller) Wakeup() error {
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	if ep.closed {
		return errs.NewServerClosedErr()
	}

	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, err := unix.Write(ep.wakeFd, one[:])
	// 计数器已非零时 EAGAIN 也意味着 Wait 会被唤醒
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return err
	}
	return nil
}

func (ep *EpollPoller) Close() error {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.closed {
		return nil
	}
	ep.closed = true

	err := unix.Close(ep.wakeFd)
	if e := unix.Close(ep.epfd); e != nil && err == nil {
		err = e
	}
	return err
}

func (ep *EpollPoller) drainWakeup() {
	var buf [8]byte
	for {
		if _, err := unix.Read(ep.wakeFd, buf[:]); err != nil {
			return
		}
	}
}

func (ep *EpollPoller) ctl(op, fd int, events uint32) error {
	if fd < 0 {
		return errs.NewInvalidParamErr()
	}
	return unix.EpollCtl(ep.epfd, op, fd, &unix.EpollEvent{
		Events: toEpoll(events),
		Fd:     int32(fd),
	})
}

func toEpoll(events uint32) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	if events&EventPeerHup != 0 {
		e |= unix.EPOLLRDHUP
	}
	if events&EventHup != 0 {
		e |= unix.EPOLLHUP
	}
	if events&EventErr != 0 {
		e |= unix.EPOLLERR
	}
	if events&EventEdge != 0 {
		e |= unix.EPOLLET
	}
	if events&EventOneShot != 0 {
		e |= unix.EPOLLONESHOT
	}
	return e
}

func fromEpoll(e uint32) uint32 {
	var events uint32
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLRDHUP != 0 {
		events |= EventPeerHup
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHup
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventErr
	}
	return events
}
