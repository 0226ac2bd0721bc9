package poller

// 事件标志位，与具体平台无关，由实现负责转换
const (
	EventRead uint32 = 1 << iota
	EventWrite
	EventPeerHup // 对端关闭写端（半关闭）
	EventHup
	EventErr
	EventEdge    // 边缘触发，不设置则为水平触发
	EventOneShot // 每次投递后自动解除关注，需 Modify 重新注册
)

type Pevent struct {
	Fd     int
	Events uint32
}

// Poller 多路复用器封装。除 Wakeup 外，其余方法只允许 dispatch 协程调用。
type Poller interface {
	Register(fd int, events uint32) error
	Modify(fd int, events uint32) error
	Deregister(fd int) error
	// Wait 阻塞直到有事件就绪或超时，timeoutMs < 0 表示一直阻塞。
	// 返回写入 events 的事件数，被 Wakeup 唤醒时可能返回 0。
	Wait(events []Pevent, timeoutMs int) (int, error)
	// Wakeup 可由任意协程调用，打断正在进行的 Wait
	Wakeup() error
	Close() error
}
