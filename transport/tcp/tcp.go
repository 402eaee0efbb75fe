// Package tcp adapts OS TCP sockets to the [transport] interfaces.
package tcp

import (
	"context"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/ImBIOS/may-minihttp/transport"

	"github.com/pkg/errors"
)

type Addr struct {
	netAddr net.Addr
}

var _ transport.Addr = Addr{}

func (a Addr) Protocol() transport.Protocol { return transport.TCP }

func (a Addr) String() string {
	if a.netAddr == nil {
		return ""
	}
	return a.netAddr.String()
}

// Listen binds a TCP socket on address (host:port).
// Binding happens synchronously; a bind failure is returned immediately.
func Listen(address string) (*Listener, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "binding tcp listener on %q", address)
	}

	return &Listener{lis: lis}, nil
}

type Listener struct {
	lis net.Listener
}

var _ transport.ConnListener = (*Listener)(nil)

func (l *Listener) Addr() transport.Addr { return Addr{netAddr: l.lis.Addr()} }

// Accept waits for the next connection. Canceling ctx closes the
// listener, so it only suits a single long-lived accept loop.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	stop := context.AfterFunc(ctx, func() { _ = l.lis.Close() })
	defer stop()

	nc, err := l.lis.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrConnListenerClosed
		}
		return nil, errors.Wrap(err, "accepting connection")
	}

	return &conn{nc: nc}, nil
}

func (l *Listener) Close() error {
	if err := l.lis.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrConnListenerClosed
		}
		return err
	}
	return nil
}

type Dialer struct {
	d net.Dialer
}

var _ transport.ConnDialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	return d.DialAddress(ctx, addr.String())
}

func (d *Dialer) DialAddress(ctx context.Context, address string) (transport.Conn, error) {
	nc, err := d.d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %q", address)
	}

	return &conn{nc: nc}, nil
}

type conn struct {
	nc net.Conn
}

var _ transport.Conn = (*conn)(nil)

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, mapErr(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, mapErr(err)
}

func (c *conn) Close() error { return mapErr(c.nc.Close()) }

func (c *conn) LocalAddr() transport.Addr  { return Addr{netAddr: c.nc.LocalAddr()} }
func (c *conn) RemoteAddr() transport.Addr { return Addr{netAddr: c.nc.RemoteAddr()} }

func (c *conn) SetReadDeadLine(t time.Time)  { _ = c.nc.SetReadDeadline(t) }
func (c *conn) SetWriteDeadLine(t time.Time) { _ = c.nc.SetWriteDeadline(t) }

// mapErr folds net's error surface onto the transport taxonomy.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, net.ErrClosed):
		return transport.ErrConnClosed
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return transport.ErrConnReset
	case errors.Is(err, os.ErrDeadlineExceeded):
		return transport.ErrDeadLineExceeded
	}
	return err
}
