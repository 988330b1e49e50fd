package server

import (
	"context"

	"hunk/application/http"
	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"
	"hunk/transport"

	"github.com/pkg/errors"
)

// HandleFunc answers a single request.
// Returning nil is only allowed after [HandleContext.Error], and closes the connection without a response.
type HandleFunc func(c *HandleContext, request *semantic.Request) *semantic.Response

type HandleContext struct {
	ctx context.Context

	remoteAddr transport.Addr
	version    http.Version

	request *semantic.Request

	closeConn bool

	// Should only be used inside this struct.
	_fatalError error
}

var ErrHandlerPanicked = errors.New("handler panicked")

func (c *HandleContext) doHandle(handle HandleFunc) (res *semantic.Response, err error) {
	defer func() {
		if e := recover(); e != nil {
			res, err = nil, errors.Wrapf(ErrHandlerPanicked, "%v", e)
		}
	}()

	response := handle(c, c.request)
	if c._fatalError != nil {
		return nil, c._fatalError
	}

	if response == nil && !c.closeConn {
		return nil, errors.New("nil response is forbidden")
	}

	return response, nil
}

func (c *HandleContext) RemoteAddr() transport.Addr { return c.remoteAddr }

// Error converts err into a response and marks the connection to be closed after it.
func (c *HandleContext) Error(err error) *semantic.Response {
	if err == nil {
		c._fatalError = errors.New("using Error() with nil error is forbidden")
		return nil
	}

	c.closeConn = true

	if errors.Is(err, transport.ErrConnClosed) {
		return nil
	}

	if statusErr := new(status.Error); errors.As(err, statusErr) {
		return statusErrToResponse(*statusErr, false)
	}

	if errors.Is(err, transport.ErrDeadLineExceeded) {
		return statusErrToResponse(
			status.NewError(nil, status.RequestTimeout),
			true,
		)
	}

	// Internal causes are not exposed to the client.
	return statusErrToResponse(
		status.NewError(nil, status.InternalServerError),
		true,
	)
}

// CloseConn closes the connection after the response is written.
func (c *HandleContext) CloseConn() { c.closeConn = true }

func (c *HandleContext) Context() context.Context  { return c.ctx }
func (c *HandleContext) HTTPVersion() http.Version { return c.version }
