package store

import (
	"context"
	"sync"

	"github.com/Trinoooo/eggie_web/errs"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

const userKeyPrefix = "user/"

type pebbleConn struct {
	parent *PebblePool
}

func (pc *pebbleConn) GetPassword(_ context.Context, user string) (string, error) {
	p := pc.parent
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", errs.NewStoreClosedErr()
	}
	return p.get(user)
}

func (pc *pebbleConn) CreateUser(_ context.Context, user, hash string) error {
	p := pc.parent
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errs.NewStoreClosedErr()
	}

	// pebble 没有 CAS，查重和写入需要在同一把锁内完成
	p.wmu.Lock()
	defer p.wmu.Unlock()

	_, err := p.get(user)
	if err == nil {
		return errs.NewUserExistErr()
	}
	if errs.GetCode(err) != errs.NotFoundErrCode {
		return err
	}
	if err = p.db.Set(userKey(user), []byte(hash), pebble.Sync); err != nil {
		return errs.NewStoreQueryErr().WithErr(err)
	}
	return nil
}

func userKey(user string) []byte {
	return []byte(userKeyPrefix + user)
}

// PebblePool 固定数量的句柄放在带缓冲通道里，通道本身既是信号量也是空闲队列
type PebblePool struct {
	db      *pebble.DB
	handles chan *pebbleConn
	stop    chan struct{}
	wmu     sync.Mutex

	mu     sync.RWMutex // 关闭后 db 不可再访问
	closed bool
}

// OpenPebble fs 为 nil 时使用磁盘文件系统
func OpenPebble(dir string, size int, fs vfs.FS) (*PebblePool, error) {
	if size <= 0 {
		return nil, errs.NewInvalidParamErr()
	}

	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errs.NewOpenStoreErr().WithErr(err)
	}

	p := &PebblePool{
		db:      db,
		handles: make(chan *pebbleConn, size),
		stop:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.handles <- &pebbleConn{parent: p}
	}
	return p, nil
}

func (p *PebblePool) Acquire(ctx context.Context) (IConn, error) {
	select {
	case <-p.stop:
		return nil, errs.NewStoreClosedErr()
	default:
	}

	select {
	case <-p.stop:
		return nil, errs.NewStoreClosedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	case conn := <-p.handles:
		return conn, nil
	}
}

func (p *PebblePool) Release(conn IConn) {
	pc, ok := conn.(*pebbleConn)
	if !ok || pc == nil || pc.parent != p {
		return
	}
	select {
	case p.handles <- pc:
	default:
		// 重复归还，丢弃
	}
}

func (p *PebblePool) FreeCount() int {
	return len(p.handles)
}

func (p *PebblePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.stop)
	return p.db.Close()
}

func (p *PebblePool) get(user string) (string, error) {
	val, closer, err := p.db.Get(userKey(user))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", errs.NewNotFoundErr()
		}
		return "", errs.NewStoreQueryErr().WithErr(err)
	}
	// val 只在 closer 关闭前有效
	pwd := string(val)
	if err = closer.Close(); err != nil {
		return "", errs.NewStoreQueryErr().WithErr(err)
	}
	return pwd, nil
}
