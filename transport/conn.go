package transport

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnReset          = errors.New("connection reset by peer")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded   = errors.New("deadline exceeded")
	ErrConnRefused        = errors.New("connection refused")
	ErrNetUnreachable     = errors.New("network unreachable")
	ErrAddrAlreadyInUse   = errors.New("address already in use")
)

type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

// BufferedConn is a [Conn] whose halves buffer in-flight bytes,
// so writes may complete before the peer reads.
type BufferedConn interface {
	Conn

	ReadBufSize() uint
	WriteBufSize() uint
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}

// IsBenignClose reports whether err is a normal peer-initiated
// connection teardown rather than a fault.
func IsBenignClose(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, ErrConnClosed) ||
		errors.Is(err, ErrConnReset)
}
