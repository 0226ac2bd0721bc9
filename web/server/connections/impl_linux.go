package connections

import (
	"net"

	"github.com/Trinoooo/eggie_web/errs"
	"golang.org/x/sys/unix"
)

const (
	backlog = 6
	minPort = 1024
	maxPort = 65535
)

// BusyMessage 连接数达到上限时发给新连接的内容
const BusyMessage = "Server busy!"

type Connection struct {
	fd         int
	remoteAddr *unix.SockaddrInet4
}

func (c *Connection) RemoteAddr() net.Addr {
	return toTCPAddr(c.remoteAddr)
}

func (c *Connection) RawFd() int {
	return c.fd
}

func (c *Connection) Close() error {
	return unix.Close(c.fd)
}

type Listener struct {
	fd        int
	localAddr *unix.SockaddrInet4
}

// Accept 返回的连接已经是非阻塞的，没有待接收连接时返回 unix.EAGAIN
func (l *Listener) Accept() (IConnection, error) {
	fd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, err
	}

	remote, _ := sa.(*unix.SockaddrInet4)
	return &Connection{
		fd:         fd,
		remoteAddr: remote,
	}, nil
}

func (l *Listener) Addr() net.Addr {
	return toTCPAddr(l.localAddr)
}

func (l *Listener) RawFd() int {
	return l.fd
}

func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// Listen 在 0.0.0.0:port 上监听，port 需要在 [1024, 65535] 内
func Listen(port int, openLinger bool) (IListener, error) {
	if port < minPort || port > maxPort {
		return nil, errs.NewInvalidParamErr()
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errs.NewCreateSocketErr().WithErr(err)
	}

	if openLinger {
		// 优雅关闭：close 时最多等 1s 把剩余数据发完
		if err = unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 1}); err != nil {
			_ = unix.Close(fd)
			return nil, errs.NewSetSockOptErr().WithErr(err)
		}
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, errs.NewSetSockOptErr().WithErr(err)
	}

	if err = unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		_ = unix.Close(fd)
		return nil, errs.NewBindErr().WithErr(err)
	}

	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, errs.NewListenErr().WithErr(err)
	}

	local := &unix.SockaddrInet4{Port: port}
	if sa, e := unix.Getsockname(fd); e == nil {
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			local = in4
		}
	}

	return &Listener{
		fd:        fd,
		localAddr: local,
	}, nil
}

// RejectBusy 告知对端服务繁忙并关闭连接，写失败也照样关闭
func RejectBusy(conn IConnection) error {
	_, _ = unix.Write(conn.RawFd(), []byte(BusyMessage))
	if err := conn.Close(); err != nil {
		return errs.NewServerBusyErr().WithErr(err)
	}
	return nil
}

func toTCPAddr(sa *unix.SockaddrInet4) net.Addr {
	if sa == nil {
		return &net.TCPAddr{}
	}
	return &net.TCPAddr{
		IP:   net.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]),
		Port: sa.Port,
	}
}
