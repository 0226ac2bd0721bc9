package connections

import (
	"io"
	"net"
)

type IListener interface {
	Accept() (IConnection, error)
	Addr() net.Addr
	RawFd() int
	io.Closer
}

type IConnection interface {
	RemoteAddr() net.Addr
	RawFd() int
	io.Closer
}
