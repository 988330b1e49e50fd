// Package tcp adapts the kernel TCP stack to the transport interfaces.
package tcp

import (
	"context"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"hunk/transport"

	"github.com/pkg/errors"
)

type Addr struct{ net.Addr }

func (a Addr) Protocol() transport.Protocol { return transport.TCP }

var _ transport.Addr = Addr{}

type conn struct {
	c net.Conn
}

var _ transport.Conn = (*conn)(nil)

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.c.Read(p)
	return n, mapError(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.c.Write(p)
	return n, mapError(err)
}

func (c *conn) Close() error {
	if err := c.c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(err, "closing tcp connection")
	}
	return nil
}

func (c *conn) LocalAddr() transport.Addr  { return Addr{c.c.LocalAddr()} }
func (c *conn) RemoteAddr() transport.Addr { return Addr{c.c.RemoteAddr()} }

func (c *conn) SetReadDeadLine(t time.Time)  { _ = c.c.SetReadDeadline(t) }
func (c *conn) SetWriteDeadLine(t time.Time) { _ = c.c.SetWriteDeadline(t) }

// mapError translates errors of the net package into transport errors,
// so that the upper layers never have to know the underlying stack.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return transport.ErrDeadLineExceeded
	case errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return transport.ErrConnClosed
	}
	return err
}

type Listener struct {
	l *net.TCPListener
}

var _ transport.ConnListener = (*Listener)(nil)

// Listen announces on the given "host:port" address.
func Listen(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", addr)
	}

	l, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.Wrap(transport.ErrAddrAlreadyInUse, addr)
		}
		return nil, errors.Wrapf(err, "listening on %q", addr)
	}

	return &Listener{l: l}, nil
}

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	// Unblock the pending accept as soon as ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = l.l.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c, err := l.l.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = l.l.SetDeadline(time.Time{})
			return nil, ctxErr
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrConnListenerClosed
		}
		return nil, errors.Wrap(err, "accepting tcp connection")
	}

	return &conn{c: c}, nil
}

func (l *Listener) Addr() transport.Addr { return Addr{l.l.Addr()} }

func (l *Listener) Close() error {
	if err := l.l.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrConnListenerClosed
		}
		return errors.Wrap(err, "closing tcp listener")
	}
	return nil
}

type Dialer struct {
	d net.Dialer
}

var _ transport.ConnDialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	c, err := d.d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, transport.ErrConnRefused
		}
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	return &conn{c: c}, nil
}
