package store

import "context"

// IConn 一个从池中借出的存储连接，同一时刻只属于一个调用方
type IConn interface {
	// GetPassword 用户不存在时返回 NotFound 错误码
	GetPassword(ctx context.Context, user string) (string, error)
	// CreateUser 用户已存在时返回 UserExist 错误码
	CreateUser(ctx context.Context, user, hash string) error
}

type IPool interface {
	// Acquire 阻塞直到有空闲连接、ctx 结束或池被关闭
	Acquire(ctx context.Context) (IConn, error)
	Release(conn IConn)
	FreeCount() int
	Close() error
}
