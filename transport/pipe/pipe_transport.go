package pipe

import (
	"context"
	"sync"

	"hunk/transport"

	"github.com/benbjohnson/clock"
)

type pipeRequest struct {
	conn     *pipe
	accepted chan struct{}
}

// Transport is an in-memory network of named listeners.
type Transport struct {
	listeners map[Addr]*Listener
	clock     clock.Clock

	mu sync.Mutex
}

func NewTransport(clock clock.Clock) *Transport {
	return &Transport{
		listeners: make(map[Addr]*Listener),
		clock:     clock,
	}
}

var _ transport.ConnDialer = (*Transport)(nil)

func (pt *Transport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pa, ok := addr.(Addr)
	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	pt.mu.Lock()
	listener, ok := pt.listeners[pa]
	pt.mu.Unlock()

	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	p1, p2 := NewPair("dialer", pa.Name, pt.clock)

	req := pipeRequest{
		conn:     p2,
		accepted: make(chan struct{}),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case <-req.accepted:
	}

	return p1, nil
}

func (pt *Transport) Listen(addr Addr) (*Listener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.listeners[addr]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	pl := &Listener{
		addr:      addr,
		transport: pt,
		requests:  make(chan pipeRequest),
		closed:    make(chan struct{}),
	}
	pt.listeners[addr] = pl

	return pl, nil
}

type Listener struct {
	addr      Addr
	transport *Transport

	requests chan pipeRequest
	closed   chan struct{}
	once     sync.Once
}

var _ transport.ConnListener = (*Listener)(nil)

func (pl *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrConnListenerClosed
	case request := <-pl.requests:
		close(request.accepted)
		return request.conn, nil
	}
}

func (pl *Listener) Addr() transport.Addr { return pl.addr }

func (pl *Listener) Close() error {
	err := transport.ErrConnListenerClosed
	pl.once.Do(func() {
		close(pl.closed)

		pl.transport.mu.Lock()
		delete(pl.transport.listeners, pl.addr)
		pl.transport.mu.Unlock()

		err = nil
	})
	return err
}
