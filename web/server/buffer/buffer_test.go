package buffer

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/Trinoooo/eggie_web/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func checkInvariant(t *testing.T, b *Buffer) {
	t.Helper()
	assert.True(t, b.readPos <= b.writePos, "readPos %d > writePos %d", b.readPos, b.writePos)
	assert.True(t, b.writePos <= b.Capacity(), "writePos %d > capacity %d", b.writePos, b.Capacity())
}

// TestBufferGrow 容量4，先写2字节，再写4字节，前后可写空间不足触发扩容
func TestBufferGrow(t *testing.T) {
	b := NewBuffer(4)
	b.AppendString("ab")
	assert.Equal(t, 2, b.ReadableBytes())
	assert.Equal(t, 4, b.Capacity())

	b.AppendString("wxyz")
	assert.GreaterOrEqual(t, b.Capacity(), 7)
	assert.Equal(t, 6, b.ReadableBytes())
	assert.Equal(t, "abwxyz", string(b.Peek()))
	checkInvariant(t, b)
}

// TestBufferCompact 前部可写空间足够时整理而不是扩容
func TestBufferCompact(t *testing.T) {
	b := NewBuffer(8)
	b.AppendString("abcdef")
	require.Nil(t, b.Retrieve(4))
	assert.Equal(t, 4, b.PreWritableBytes())
	assert.Equal(t, 2, b.PostWritableBytes())

	b.AppendString("ghij")
	assert.Equal(t, 8, b.Capacity())
	assert.Equal(t, 0, b.PreWritableBytes())
	assert.Equal(t, "efghij", string(b.Peek()))
	checkInvariant(t, b)
}

func TestBufferEnsureWritable(t *testing.T) {
	b := NewBuffer(2)
	for _, n := range []int{0, 1, 2, 3, 100, 5000} {
		b.EnsureWritable(n)
		assert.GreaterOrEqual(t, b.PostWritableBytes(), n)
		checkInvariant(t, b)
		b.AppendString("x")
		_ = b.Retrieve(1)
	}
}

// TestBufferAppendKeepsZeroBytes 二进制数据中间的 0 字节不能被截断
func TestBufferAppendKeepsZeroBytes(t *testing.T) {
	b := NewBuffer(4)
	payload := []byte{'a', 0, 'b', 0, 0, 'c'}
	b.Append(payload)
	assert.Equal(t, len(payload), b.ReadableBytes())
	assert.Equal(t, payload, []byte(b.RetrieveAllToString()))
}

func TestBufferRetrieve(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, defaultInitSize, b.Capacity())
	b.AppendString("hello world")

	assert.Nil(t, b.RetrieveUntil(6))
	assert.Equal(t, "world", string(b.Peek()))

	err := b.Retrieve(6)
	assert.Equal(t, errs.InvalidParamErrCode, int(errs.GetCode(err)))
	err = b.Retrieve(-1)
	assert.Equal(t, errs.InvalidParamErrCode, int(errs.GetCode(err)))
	assert.Equal(t, "world", string(b.Peek()))
}

// TestBufferRetrieveAllToString 取出后游标归零且底层存储被清零
func TestBufferRetrieveAllToString(t *testing.T) {
	b := NewBuffer(16)
	b.AppendString("secret")
	assert.Equal(t, "secret", b.RetrieveAllToString())
	assert.Equal(t, 0, b.ReadableBytes())
	assert.Equal(t, 0, b.PreWritableBytes())
	assert.Equal(t, bytes.Repeat([]byte{0}, 16), b.buf)
}

func TestBufferAppendBuffer(t *testing.T) {
	src := NewBuffer(2)
	src.AppendString("ab")
	dst := NewBuffer(2)
	dst.AppendString("wx")
	dst.AppendBuffer(src)
	assert.Equal(t, "wxab", dst.RetrieveAllToString())
	assert.Equal(t, "ab", string(src.Peek()))
}

// TestBufferRoundTrip 随机 append/retrieve 序列，读出的数据与写入顺序一致
func TestBufferRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	b := NewBuffer(3)
	var written, read bytes.Buffer

	for i := 0; i < 2000; i++ {
		if rnd.Intn(2) == 0 {
			chunk := make([]byte, rnd.Intn(64))
			rnd.Read(chunk)
			b.Append(chunk)
			written.Write(chunk)
		} else {
			n := rnd.Intn(b.ReadableBytes() + 1)
			read.Write(b.Peek()[:n])
			require.Nil(t, b.Retrieve(n))
		}
		checkInvariant(t, b)
	}
	read.WriteString(b.RetrieveAllToString())

	assert.Equal(t, written.Bytes(), read.Bytes())
	assert.Equal(t, 0, b.ReadableBytes())
}

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestBufferReadFromSmall(t *testing.T) {
	r, w := socketPair(t)
	_, err := unix.Write(w, []byte("ping"))
	require.Nil(t, err)

	b := NewBuffer(16)
	n, err := b.ReadFrom(r)
	assert.Nil(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 16, b.Capacity())
	assert.Equal(t, "ping", string(b.Peek()))
}

// TestBufferReadFromOverflow 尾部可写空间不足时，溢出数据经暂存区追加，字节不丢不重
func TestBufferReadFromOverflow(t *testing.T) {
	r, w := socketPair(t)
	payload := bytes.Repeat([]byte("0123456789"), 100)
	_, err := unix.Write(w, payload)
	require.Nil(t, err)

	b := NewBuffer(8)
	b.AppendString("xy")
	total := 0
	for total < len(payload) {
		n, err := b.ReadFrom(r)
		require.Nil(t, err)
		total += n
	}
	assert.Equal(t, append([]byte("xy"), payload...), b.Peek())
	checkInvariant(t, b)
}

func TestBufferReadFromEOFAndEAGAIN(t *testing.T) {
	r, w := socketPair(t)
	require.Nil(t, unix.SetNonblock(r, true))

	b := NewBuffer(8)
	_, err := b.ReadFrom(r)
	assert.ErrorIs(t, err, unix.EAGAIN)

	require.Nil(t, unix.Shutdown(w, unix.SHUT_WR))
	n, err := b.ReadFrom(r)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)
}

func TestBufferWriteTo(t *testing.T) {
	r, w := socketPair(t)
	b := NewBuffer(4)
	b.AppendString("hello")

	n, err := b.WriteTo(w)
	assert.Nil(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, b.ReadableBytes())

	n, err = b.WriteTo(w)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	got := make([]byte, 5)
	_, err = unix.Read(r, got)
	assert.Nil(t, err)
	assert.Equal(t, "hello", string(got))
}

// TestBufferWriteToPartial 对端不读时非阻塞写会部分写出，readPos 只推进实际写出的长度
func TestBufferWriteToPartial(t *testing.T) {
	r, w := socketPair(t)
	require.Nil(t, unix.SetNonblock(w, true))

	b := NewBuffer(0)
	payload := bytes.Repeat([]byte{'z'}, 4*1024*1024)
	b.Append(payload)

	sent := 0
	for {
		n, err := b.WriteTo(w)
		if err != nil {
			assert.ErrorIs(t, err, unix.EAGAIN)
			break
		}
		sent += n
		if b.ReadableBytes() == 0 {
			break
		}
	}
	assert.Equal(t, len(payload)-sent, b.ReadableBytes())

	drained := 0
	tmp := make([]byte, 64*1024)
	for drained < sent {
		n, err := unix.Read(r, tmp)
		require.Nil(t, err)
		drained += n
	}
	assert.Equal(t, sent, drained)
}
