package server

import (
	"context"
	"log/slog"
	"sync"

	"hunk/application/http/transfer"
	"hunk/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type Server struct {
	l transport.ConnListener

	closeListener func()
	closeConns    func()
	done          chan struct{}
	wg            sync.WaitGroup

	logger *slog.Logger
	opts   Options

	handle   HandleFunc
	transfer *transfer.CodingPipeliner
	clock    clock.Clock
}

func New(
	l transport.ConnListener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) *Server {
	s := &Server{
		l:        l,
		logger:   logger,
		opts:     opts,
		handle:   handle,
		clock:    clock,
		transfer: transfer.NewCodingPipeliner(opts.ExtraTransferCoders),
		done:     make(chan struct{}),
	}

	return s
}

// Start accepts connections in the background until [Server.Close] is called.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.closeListener = cancel

	connCtx, connCancel := context.WithCancel(context.Background())
	s.closeConns = connCancel

	go func() {
		defer close(s.done)
		for {
			conn, err := s.acceptConn(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Error(
						"unexpected error when accepting connection",
						"error", err.Error(),
					)
				}
				return
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				conn.start(connCtx)
			}()
		}
	}()
}

func (s *Server) acceptConn(ctx context.Context) (*conn, error) {
	con, err := s.l.Accept(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listening for connection")
	}

	logger := s.logger.With("conn", con.RemoteAddr().String())
	logger.Debug("accepted connection")

	return newConn(con, s.handle, s.transfer, s.clock, logger, s.opts), nil
}

// Close stops accepting, cancels every connection and waits for them to finish.
// The listener is left to its owner.
func (s *Server) Close() error {
	s.closeListener()
	<-s.done

	s.closeConns()
	s.wg.Wait()
	return nil
}
