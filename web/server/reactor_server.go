package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/utils"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/Trinoooo/eggie_web/web/server/buffer"
	"github.com/Trinoooo/eggie_web/web/server/connections"
	"github.com/Trinoooo/eggie_web/web/server/poller"
	"github.com/Trinoooo/eggie_web/web/server/pool"
	"github.com/Trinoooo/eggie_web/web/server/protocol"
	"github.com/Trinoooo/eggie_web/web/server/timer"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	defaultTrigMode  = 3
	defaultWorkerNum = 6
	defaultMaxEvents = 1024
	connBufferSize   = consts.KB
)

type Options struct {
	Port       int
	TrigMode   int  // 0: LT+LT 1: LT 监听 + ET 连接 2: ET 监听 + LT 连接 3: ET+ET
	TimeoutMs  int  // 空闲超时，<= 0 表示不超时
	OpenLinger bool // 监听套接字开启 SO_LINGER
	MaxConn    int  // 连接数上限，达到后新连接直接拒绝
	WorkerNum  int
	MaxEvents  int
}

type Stats struct {
	Active       int    `json:"active"`
	Accepted     uint64 `json:"accepted"`
	Rejected     uint64 `json:"rejected"`
	Closed       uint64 `json:"closed"`
	Timeouts     uint64 `json:"timeouts"`
	PendingTasks int    `json:"pending_tasks"`
	Workers      int    `json:"workers"`
}

type action int

const (
	actionArmRead action = iota
	actionArmWrite
	actionClose
)

// completion worker 处理完后交回分发协程的结果，只有分发协程会重新布防
type completion struct {
	id     uint64
	act    action
	reason string
}

type connection struct {
	id   uint64
	fd   int
	conn connections.IConnection

	in  *buffer.Buffer
	out *buffer.Buffer

	keepAlive bool        // 只在 worker 中读写
	closing   atomic.Bool // 分发协程写，worker 读
	busy      bool        // 只在分发协程中读写
	reason    string      // 首次关闭的原因
}

type ReactorServer struct {
	opts     Options
	listenET bool
	connET   bool
	timeout  time.Duration

	listener connections.IListener
	p        poller.Poller
	pool     *pool.Pool
	timers   *timer.Heap
	handler  protocol.IHandler
	mh       *MetricsHelper

	// conns 只有分发协程会修改，worker 持读锁查找
	mutex  sync.RWMutex
	conns  map[uint64]*connection
	fdToId map[int]uint64
	nextId uint64

	cmu         sync.Mutex
	completions []completion

	stateMu  sync.Mutex
	serving  bool
	stopping atomic.Bool
	done     chan struct{}
	once     sync.Once

	accepted atomic.Uint64
	rejected atomic.Uint64
	closed   atomic.Uint64
	timeouts atomic.Uint64
}

func NewReactorServer(opts *Options, handler protocol.IHandler, mh *MetricsHelper) (*ReactorServer, error) {
	if opts == nil || handler == nil {
		return nil, errs.NewInvalidParamErr()
	}

	o := *opts
	if o.TrigMode < 0 || o.TrigMode > 3 {
		o.TrigMode = defaultTrigMode
	}
	if o.WorkerNum <= 0 {
		o.WorkerNum = defaultWorkerNum
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = defaultMaxEvents
	}

	rs := &ReactorServer{
		opts:    o,
		handler: handler,
		mh:      mh,
		timers:  timer.NewHeap(),
		conns:   make(map[uint64]*connection),
		fdToId:  make(map[int]uint64),
		done:    make(chan struct{}),
	}
	rs.initTrigMode()
	if o.TimeoutMs > 0 {
		rs.timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	}

	var err error
	rs.listener, err = connections.Listen(o.Port, o.OpenLinger)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on port %d", o.Port)
	}

	rs.p, err = poller.NewEpollPoller(o.MaxEvents)
	if err != nil {
		_ = rs.listener.Close()
		return nil, err
	}

	listenEvents := poller.EventRead
	if rs.listenET {
		listenEvents |= poller.EventEdge
	}
	if err = rs.p.Register(rs.listener.RawFd(), listenEvents); err != nil {
		_ = rs.p.Close()
		_ = rs.listener.Close()
		return nil, errors.Wrap(err, "register listener")
	}

	rs.pool = pool.NewPool(o.WorkerNum)
	mh.watchPool(rs.pool.Pending)

	logs.Info("reactor server created",
		zap.Int(consts.LogFieldParams, o.TrigMode),
		zap.String(consts.LogFieldValue, rs.listener.Addr().String()),
	)
	return rs, nil
}

func (rs *ReactorServer) initTrigMode() {
	switch rs.opts.TrigMode {
	case 0:
	case 1:
		rs.connET = true
	case 2:
		rs.listenET = true
	default:
		rs.listenET = true
		rs.connET = true
	}
}

func (rs *ReactorServer) Addr() net.Addr {
	return rs.listener.Addr()
}

func (rs *ReactorServer) Stats() Stats {
	rs.mutex.RLock()
	active := len(rs.conns)
	rs.mutex.RUnlock()
	return Stats{
		Active:       active,
		Accepted:     rs.accepted.Load(),
		Rejected:     rs.rejected.Load(),
		Closed:       rs.closed.Load(),
		Timeouts:     rs.timeouts.Load(),
		PendingTasks: rs.pool.Pending(),
		Workers:      rs.pool.Size(),
	}
}

// Serve 在调用方协程上运行分发循环，直到 Close 被调用或出现不可恢复的错误
func (rs *ReactorServer) Serve() error {
	rs.stateMu.Lock()
	if rs.stopping.Load() || rs.serving {
		rs.stateMu.Unlock()
		return errs.NewServerClosedErr()
	}
	rs.serving = true
	rs.stateMu.Unlock()
	defer close(rs.done)

	logs.Info("reactor server start serving", zap.String(consts.LogFieldValue, rs.Addr().String()))
	events := make([]poller.Pevent, rs.opts.MaxEvents)
	listenFd := rs.listener.RawFd()
	for {
		timeoutMs := -1
		if rs.timeout > 0 {
			timeoutMs = rs.timers.NextTick()
		}

		n, err := rs.p.Wait(events, timeoutMs)
		if rs.stopping.Load() {
			break
		}
		if err != nil {
			logs.Error("wait event failed, server exit", zap.Error(err))
			rs.shutdown()
			return err
		}

		for i := 0; i < n; i++ {
			evt := events[i]
			if evt.Fd == listenFd {
				rs.acceptAll()
				continue
			}
			rs.handleEvent(evt)
		}
		rs.drainCompletions()
	}

	rs.shutdown()
	logs.Info("reactor server stopped")
	return nil
}

func (rs *ReactorServer) Close() error {
	rs.once.Do(func() {
		rs.stateMu.Lock()
		rs.stopping.Store(true)
		serving := rs.serving
		rs.stateMu.Unlock()

		if !serving {
			rs.shutdown()
			return
		}
		_ = rs.p.Wakeup()
		<-rs.done
	})
	return nil
}

// shutdown 先回收 worker 再关闭全部连接，保证不会有任务再访问已关闭的 fd
func (rs *ReactorServer) shutdown() {
	rs.pool.Close()

	rs.mutex.Lock()
	for id, c := range rs.conns {
		_ = rs.p.Deregister(c.fd)
		if err := c.conn.Close(); err != nil {
			logs.Warn("close connection failed", zap.Uint64(consts.LogFieldConnId, id), zap.Error(err))
		}
		rs.closed.Add(1)
		rs.mh.onClose(closeReasonShutdown)
	}
	clear(rs.conns)
	rs.mutex.Unlock()
	clear(rs.fdToId)
	rs.timers.Clear()

	utils.WithLock(&rs.cmu, func() { rs.completions = nil })

	if err := rs.listener.Close(); err != nil {
		logs.Warn("close listener failed", zap.Error(err))
	}
	if err := rs.p.Close(); err != nil {
		logs.Warn("close poller failed", zap.Error(err))
	}
}

// acceptAll 监听套接字为 ET 时一次读空 accept 队列
func (rs *ReactorServer) acceptAll() {
	for {
		conn, err := rs.listener.Accept()
		if err != nil {
			switch {
			case errors.Is(err, unix.EAGAIN):
			case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
				continue
			default:
				// 包括 EMFILE/ENFILE，放弃本轮，等下一次通知
				logs.Error("accept connection failed", zap.Error(errs.NewAcceptErr().WithErr(err)))
			}
			return
		}

		if len(rs.conns) >= rs.opts.MaxConn {
			logs.Warn("connection limit reached, reject",
				zap.String(consts.LogFieldRemote, conn.RemoteAddr().String()),
				zap.Int(consts.LogFieldValue, rs.opts.MaxConn),
			)
			if err = connections.RejectBusy(conn); err != nil {
				logs.Warn("reject connection failed", zap.Error(err))
			}
			rs.rejected.Add(1)
			rs.mh.onReject()
		} else {
			rs.addConn(conn)
		}

		if !rs.listenET {
			return
		}
	}
}

func (rs *ReactorServer) addConn(conn connections.IConnection) {
	rs.nextId++
	c := &connection{
		id:   rs.nextId,
		fd:   conn.RawFd(),
		conn: conn,
		in:   buffer.NewBuffer(connBufferSize),
		out:  buffer.NewBuffer(connBufferSize),
	}

	if err := rs.p.Register(c.fd, rs.connEvents(poller.EventRead)); err != nil {
		logs.Error("register connection failed", zap.Int(consts.LogFieldFd, c.fd), zap.Error(err))
		_ = conn.Close()
		return
	}

	rs.mutex.Lock()
	rs.conns[c.id] = c
	rs.mutex.Unlock()
	rs.fdToId[c.fd] = c.id
	rs.extendDeadline(c)

	rs.accepted.Add(1)
	rs.mh.onAccept()
	logs.Debug("connection accepted",
		zap.Uint64(consts.LogFieldConnId, c.id),
		zap.Int(consts.LogFieldFd, c.fd),
		zap.String(consts.LogFieldRemote, conn.RemoteAddr().String()),
	)
}

func (rs *ReactorServer) connEvents(interest uint32) uint32 {
	events := interest | poller.EventPeerHup | poller.EventOneShot
	if rs.connET {
		events |= poller.EventEdge
	}
	return events
}

func (rs *ReactorServer) handleEvent(evt poller.Pevent) {
	id, ok := rs.fdToId[evt.Fd]
	if !ok {
		return
	}
	c := rs.conns[id]
	if c == nil || c.closing.Load() {
		return
	}

	switch {
	case evt.Events&(poller.EventPeerHup|poller.EventHup|poller.EventErr) != 0:
		rs.closeConn(c, closeReasonPeer)
	case evt.Events&poller.EventRead != 0:
		rs.extendDeadline(c)
		rs.submit(c, rs.readTask)
	case evt.Events&poller.EventWrite != 0:
		rs.extendDeadline(c)
		rs.submit(c, rs.writeTask)
	default:
		logs.Warn("unexpected event", zap.Uint32(consts.LogFieldEvents, evt.Events), zap.Uint64(consts.LogFieldConnId, id))
	}
}

func (rs *ReactorServer) submit(c *connection, task func(id uint64)) {
	id := c.id
	c.busy = true
	if err := rs.pool.Submit(func() { task(id) }); err != nil {
		c.busy = false
		logs.Error("submit task failed", zap.Uint64(consts.LogFieldConnId, id), zap.Error(err))
		rs.closeConn(c, closeReasonError)
	}
}

func (rs *ReactorServer) extendDeadline(c *connection) {
	if rs.timeout <= 0 {
		return
	}
	id := c.id
	rs.timers.AddOrUpdate(id, rs.timeout, func() { rs.onDeadline(id) })
}

// onDeadline 运行在分发协程，不管连接上是否有进行中的任务都强制关闭
func (rs *ReactorServer) onDeadline(id uint64) {
	c := rs.conns[id]
	if c == nil {
		return
	}
	rs.timeouts.Add(1)
	rs.mh.onTimeout()
	logs.Debug("connection idle timeout", zap.Uint64(consts.LogFieldConnId, id))
	rs.closeConn(c, closeReasonTimeout)
}

// closeConn 立即注销事件并取消定时器，若有任务在途则等其完成后再关闭 fd
func (rs *ReactorServer) closeConn(c *connection, reason string) {
	if !c.closing.Load() {
		c.closing.Store(true)
		c.reason = reason
		rs.timers.Cancel(c.id)
		if err := rs.p.Deregister(c.fd); err != nil {
			logs.Debug("deregister connection failed", zap.Uint64(consts.LogFieldConnId, c.id), zap.Error(err))
		}
	}
	if c.busy {
		return
	}

	rs.mutex.Lock()
	delete(rs.conns, c.id)
	rs.mutex.Unlock()
	delete(rs.fdToId, c.fd)
	if err := c.conn.Close(); err != nil {
		logs.Warn("close connection failed", zap.Uint64(consts.LogFieldConnId, c.id), zap.Error(err))
	}

	rs.closed.Add(1)
	rs.mh.onClose(c.reason)
	logs.Debug("connection closed",
		zap.Uint64(consts.LogFieldConnId, c.id),
		zap.Int(consts.LogFieldFd, c.fd),
		zap.String(consts.LogFieldReason, c.reason),
	)
}

func (rs *ReactorServer) complete(id uint64, act action, reason string) {
	utils.WithLock(&rs.cmu, func() {
		rs.completions = append(rs.completions, completion{id: id, act: act, reason: reason})
	})
	if err := rs.p.Wakeup(); err != nil && !rs.stopping.Load() {
		logs.Warn("wakeup poller failed", zap.Error(err))
	}
}

func (rs *ReactorServer) drainCompletions() {
	var pending []completion
	utils.WithLock(&rs.cmu, func() {
		pending, rs.completions = rs.completions, nil
	})

	for _, cp := range pending {
		c := rs.conns[cp.id]
		if c == nil {
			continue
		}
		c.busy = false
		if c.closing.Load() {
			rs.closeConn(c, cp.reason)
			continue
		}

		switch cp.act {
		case actionArmRead:
			rs.rearm(c, poller.EventRead)
		case actionArmWrite:
			rs.rearm(c, poller.EventWrite)
		case actionClose:
			rs.closeConn(c, cp.reason)
		}
	}
}

func (rs *ReactorServer) rearm(c *connection, interest uint32) {
	if err := rs.p.Modify(c.fd, rs.connEvents(interest)); err != nil {
		logs.Warn("rearm connection failed", zap.Uint64(consts.LogFieldConnId, c.id), zap.Error(err))
		rs.closeConn(c, closeReasonError)
	}
}

func (rs *ReactorServer) lookup(id uint64) *connection {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()
	c := rs.conns[id]
	if c == nil || c.closing.Load() {
		return nil
	}
	return c
}

func (rs *ReactorServer) readTask(id uint64) {
	c := rs.lookup(id)
	if c == nil {
		rs.complete(id, actionClose, closeReasonDone)
		return
	}

	for {
		n, err := c.in.ReadFrom(c.fd)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			logs.Debug("read connection failed", zap.Uint64(consts.LogFieldConnId, id), zap.Error(errs.NewReadSocketErr().WithErr(err)))
			rs.complete(id, actionClose, closeReasonError)
			return
		}
		if n == 0 {
			rs.complete(id, actionClose, closeReasonPeer)
			return
		}
		if !rs.connET {
			break
		}
	}

	act, reason := rs.process(c)
	rs.complete(id, act, reason)
}

func (rs *ReactorServer) writeTask(id uint64) {
	c := rs.lookup(id)
	if c == nil {
		rs.complete(id, actionClose, closeReasonDone)
		return
	}

	for c.out.ReadableBytes() > 0 {
		if _, err := c.out.WriteTo(c.fd); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				rs.complete(id, actionArmWrite, "")
				return
			}
			logs.Debug("write connection failed", zap.Uint64(consts.LogFieldConnId, id), zap.Error(errs.NewWriteSocketErr().WithErr(err)))
			rs.complete(id, actionClose, closeReasonError)
			return
		}
	}

	if !c.keepAlive {
		rs.complete(id, actionClose, closeReasonDone)
		return
	}
	// 长连接：处理已经读入的流水线请求
	act, reason := rs.process(c)
	rs.complete(id, act, reason)
}

// process 尝试从读缓冲区解析一个请求，成功则渲染到写缓冲区
func (rs *ReactorServer) process(c *connection) (action, string) {
	if c.in.ReadableBytes() == 0 {
		return actionArmRead, ""
	}

	req, err := rs.handler.Parse(c.in)
	if errs.GetCode(err) == errs.NeedMoreDataErrCode {
		return actionArmRead, ""
	}
	if err != nil || req == nil {
		logs.Debug("parse request failed", zap.Uint64(consts.LogFieldConnId, c.id), zap.Error(err))
		return actionClose, closeReasonError
	}

	c.keepAlive = req.KeepAlive()
	if err = rs.handler.Render(req, c.out); err != nil {
		logs.Debug("render response failed", zap.Uint64(consts.LogFieldConnId, c.id), zap.Error(err))
		return actionClose, closeReasonError
	}
	return actionArmWrite, ""
}
