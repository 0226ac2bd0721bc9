package buffer

import (
	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/bytedance/gopkg/lang/mcache"
	"golang.org/x/sys/unix"
)

/*
	缓冲区示意图

	buf --> [0, ..., readPos, ..., writePos, ..., len(buf))

	可读区间：    [readPos, writePos)
	前部可写区间：[0, readPos)          已被读走的空间，整理后可复用
	尾部可写区间：[writePos, len(buf))
*/

const (
	defaultInitSize = consts.KB
	stageSize       = 64 * consts.KB
)

type Buffer struct {
	buf      []byte
	readPos  int
	writePos int
}

func NewBuffer(initSize int) *Buffer {
	if initSize <= 0 {
		initSize = defaultInitSize
	}
	return &Buffer{
		buf: make([]byte, initSize),
	}
}

func (b *Buffer) ReadableBytes() int {
	return b.writePos - b.readPos
}

func (b *Buffer) PreWritableBytes() int {
	return b.readPos
}

func (b *Buffer) PostWritableBytes() int {
	return len(b.buf) - b.writePos
}

func (b *Buffer) Capacity() int {
	return len(b.buf)
}

// Peek 返回可读区间的视图，任何后续写入/整理都会使其失效
func (b *Buffer) Peek() []byte {
	return b.buf[b.readPos:b.writePos:b.writePos]
}

// EnsureWritable 保证 PostWritableBytes() >= n
func (b *Buffer) EnsureWritable(n int) {
	if b.PostWritableBytes() >= n {
		return
	}

	if b.PreWritableBytes()+b.PostWritableBytes() >= n {
		// 优先整理，避免稳定流量下内存持续增长
		readable := b.ReadableBytes()
		copy(b.buf, b.buf[b.readPos:b.writePos])
		b.readPos = 0
		b.writePos = readable
		return
	}

	grown := make([]byte, b.writePos+n+1)
	copy(grown, b.buf[:b.writePos])
	b.buf = grown
}

func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.EnsureWritable(len(p))
	copy(b.buf[b.writePos:], p)
	b.writePos += len(p)
}

func (b *Buffer) AppendString(s string) {
	if len(s) == 0 {
		return
	}
	b.EnsureWritable(len(s))
	copy(b.buf[b.writePos:], s)
	b.writePos += len(s)
}

func (b *Buffer) AppendBuffer(other *Buffer) {
	b.Append(other.Peek())
}

func (b *Buffer) Retrieve(n int) error {
	if n < 0 || n > b.ReadableBytes() {
		return errs.NewInvalidParamErr()
	}
	b.readPos += n
	return nil
}

// RetrieveUntil 读走从 readPos 到 offset（相对可读区间起点）之间的数据
func (b *Buffer) RetrieveUntil(offset int) error {
	return b.Retrieve(offset)
}

func (b *Buffer) RetrieveAllToString() string {
	str := string(b.buf[b.readPos:b.writePos])
	b.Clear()
	return str
}

// Clear 清零底层存储，避免复用时泄露旧数据
func (b *Buffer) Clear() {
	clear(b.buf)
	b.readPos = 0
	b.writePos = 0
}

// ReadFrom 一次 readv 同时读入尾部可写区间和 64KB 暂存区，
// 暂存区溢出的数据再 Append 进来，缓冲区只在真正需要时才扩容。
// 返回值与 read(2) 一致，错误为原始 errno（如 unix.EAGAIN）。
func (b *Buffer) ReadFrom(fd int) (int, error) {
	stage := mcache.Malloc(stageSize)
	defer mcache.Free(stage)

	post := b.PostWritableBytes()
	n, err := unix.Readv(fd, [][]byte{b.buf[b.writePos:], stage})
	if err != nil {
		return n, err
	}

	if n <= post {
		b.writePos += n
	} else {
		b.writePos = len(b.buf)
		b.Append(stage[:n-post])
	}
	return n, nil
}

// WriteTo 单次写出整个可读区间，只按实际写出的字节数推进 readPos，
// 调用方需要循环直到 ReadableBytes()==0 或出错。
func (b *Buffer) WriteTo(fd int) (int, error) {
	if b.ReadableBytes() == 0 {
		return 0, nil
	}

	n, err := unix.Write(fd, b.Peek())
	if n > 0 {
		b.readPos += n
	}
	return n, err
}
