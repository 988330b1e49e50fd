package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"hunk/application/http"
	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"
	"hunk/application/http/transfer"
	iolib "hunk/lib/io"
	"hunk/lib/types/pointer"
	"hunk/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type conn struct {
	con     transport.Conn
	version http.Version

	br  *bufio.Reader
	enc *http.ResponseEncoder

	handle   HandleFunc
	transfer *transfer.CodingPipeliner
	clock    clock.Clock

	logger *slog.Logger

	opts Options
}

func newConn(
	con transport.Conn,
	handle HandleFunc,
	transfer *transfer.CodingPipeliner,
	clock clock.Clock,
	logger *slog.Logger,
	opts Options,
) *conn {
	return &conn{
		con:      con,
		version:  http.Version1_1,
		br:       bufio.NewReader(con),
		enc:      http.NewResponseEncoder(con, opts.Serve.Encode),
		handle:   handle,
		transfer: transfer,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

func (c *conn) start(ctx context.Context) {
	defer func() {
		c.logger.Debug("closing connection")
		if err := c.con.Close(); err != nil {
			c.logger.Error("error when closing connection", "error", err)
		}
	}()

	// Unblocks any pending read or write on cancellation.
	stop := context.AfterFunc(ctx, func() { c.con.Close() })
	defer stop()

	err := c.serve(ctx)

	switch {
	case err == nil:
		// no-op.
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		c.logger.Debug("connection canceled", "error", err)
	case errors.Is(err, ErrIdleTimeoutExceeded):
		c.logger.Debug("idle timeout exceeded")
	case errors.Is(err, errClientClosed):
		c.logger.Debug("client closed connection")
	case errors.Is(err, transport.ErrConnClosed):
		c.logger.Warn("unexpected connection closure", "error", err)
	default:
		c.logger.Error("unknown error occured", "error", err)
	}
}

var errClientClosed = errors.New("client closed connection")

func (c *conn) serve(ctx context.Context) error {
	dec := http.NewRequestDecoder(c.br, c.opts.Serve.Decode)

	for {
		if err := c.waitForRequest(ctx); err != nil {
			if errors.Is(err, transport.ErrConnClosed) || errors.Is(err, io.EOF) {
				// Closing between requests is how clients end a keep-alive connection.
				return errClientClosed
			}
			return errors.Wrap(err, "error while waiting for request")
		}

		request, err := c.readRequest(dec)
		if err != nil {
			if errors.Is(err, transport.ErrConnClosed) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return errors.Wrap(transport.ErrConnClosed, err.Error())
			}

			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
			response := statusErrToResponse(toStatusError(err), true)
			response.Headers.Set("Connection", "close")

			if err := c.writeResponse(response, "", http.Version1_1); err != nil {
				return errors.Wrap(err, "writing error response")
			}
			return nil
		}

		hctx := &HandleContext{
			ctx:        ctx,
			remoteAddr: c.con.RemoteAddr(),
			version:    c.version,
			request:    request,
		}
		response, err := hctx.doHandle(c.handle)
		if err != nil {
			response := statusErrToResponse(status.NewError(nil, status.InternalServerError), true)
			response.Headers.Set("Connection", "close")
			if werr := c.writeResponse(response, request.Method, request.Version); werr != nil {
				c.logger.Debug("failed to write error response", "error", werr)
			}
			return errors.Wrap(err, "unexpected error while handling request")
		}

		if response == nil {
			// Handler asked to drop the connection.
			return nil
		}

		if hctx.closeConn || request.WantsClose() {
			response.Headers.Set("Connection", "close")
		}

		if err := c.writeResponse(response, request.Method, request.Version); err != nil {
			return errors.Wrap(err, "unexpected error while writing response")
		}

		if closesConn(response) {
			return nil
		}

		// Unread content must be consumed before the next request.
		if _, err := io.Copy(io.Discard, request.Body); err != nil {
			return errors.Wrap(err, "discarding request body")
		}
	}
}

var ErrIdleTimeoutExceeded = errors.New("idle timeout exceeded")

// waitForRequest blocks until the first byte of the next request arrives.
func (c *conn) waitForRequest(ctx context.Context) error {
	if c.br.Buffered() > 0 {
		return nil
	}

	timeout := c.opts.Serve.Timeout.IdleTimeout
	if timeout > 0 {
		c.con.SetReadDeadLine(c.clock.Now().Add(timeout))
	} else {
		c.con.SetReadDeadLine(time.Time{})
	}

	signal := make(chan error, 1)
	go func() {
		_, err := c.br.Peek(1)
		if errors.Is(err, transport.ErrDeadLineExceeded) {
			err = ErrIdleTimeoutExceeded
		}

		signal <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-signal:
		return err
	}
}

var ErrContentTooLarge = errors.New("content too large")

func (c *conn) readRequest(d *http.RequestDecoder) (*semantic.Request, error) {
	timeout := c.opts.Serve.Timeout.ReadTimeout

	if timeout > 0 {
		c.con.SetReadDeadLine(c.clock.Now().Add(timeout))
	} else {
		c.con.SetReadDeadLine(time.Time{})
	}

	var raw http.Request
	if err := d.Decode(&raw); err != nil {
		return nil, err
	}

	if raw.Version[0] != 1 {
		return nil, status.NewError(nil, status.HTTPVersionNotSupported)
	}

	request, err := semantic.RequestFrom(&raw, c.opts.Serve.Parse)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a semantic request")
	}

	if request.ContentLength != nil && c.opts.Serve.MaxContentLen > 0 &&
		*request.ContentLength > c.opts.Serve.MaxContentLen {
		return nil, ErrContentTooLarge
	}

	if len(request.TransferEncoding) > 0 {
		if !request.IsChunked() {
			// The message body length cannot be determined reliably.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.3
			return nil, errors.New("transfer encoding without chunked. cannot determine body length")
		}

		request.Body, err = c.transfer.Decode(request.Body, request.TransferEncoding,
			func(f []http.Field) {
				// On chunked transfer's trailer is received,
				// parse it and assign it to request's trailers.
				trailers := semantic.HeadersFrom(f)
				request.Trailers = &trailers
			},
		)
		if err != nil {
			// Could be [transfer.ErrUnsupportedCoding]
			return nil, errors.Wrap(err, "applying transfer coding to body")
		}

		// Body is delimited by last chunk.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.1
		c.con.SetReadDeadLine(time.Time{})
	}

	return request, nil
}

// writeResponse frames and writes response.
// The response body is always closed, whether writing succeeded or not.
func (c *conn) writeResponse(response *semantic.Response, method semantic.Method, requestVersion http.Version) error {
	body := response.Body
	defer func() {
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
	}()

	timeout := c.opts.Serve.Timeout.WriteTimeout
	if timeout > 0 {
		c.con.SetWriteDeadLine(c.clock.Now().Add(timeout))
	} else {
		c.con.SetWriteDeadLine(time.Time{})
	}

	response.Version = c.version

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-6.6.1-6
	response.Date = c.clock.Now()

	noContent := response.HasNoContent(method)

	if !noContent {
		if len(response.TransferEncoding) == 0 && response.ContentLength == nil {
			if response.Body == nil {
				response.ContentLength = pointer.To(uint(0))
			} else {
				response.TransferEncoding = []transfer.Coding{transfer.CodingChunked}
			}
		}

		if len(response.TransferEncoding) > 0 && requestVersion == http.Version1_0 {
			// HTTP/1.0 does not understand transfer codings.
			// Delimit the content by closing the connection instead.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1-15
			response.TransferEncoding = nil
			response.Headers.Del("Transfer-Encoding")
			response.Headers.Set("Connection", "close")
		}
	}

	// Ensures values in fields (e.g. content length, transfer encoding) are set in headers.
	response.EnsureHeadersSet()

	raw := response.RawResponse()

	if !noContent && body != nil {
		framed, err := c.frameBody(response)
		if err != nil {
			return err
		}
		raw.Body = io.NopCloser(framed)
	}

	if err := c.enc.Encode(raw); err != nil {
		return err
	}

	return nil
}

func closesConn(response *semantic.Response) bool {
	options, _ := response.Headers.Values("Connection")
	for _, option := range options {
		if strings.EqualFold(option, "close") {
			return true
		}
	}
	return false
}

func (c *conn) frameBody(response *semantic.Response) (io.Reader, error) {
	if len(response.TransferEncoding) > 0 {
		var err error
		body := iolib.NewMiddlewareReader(response.Body,
			func(wc io.WriteCloser) io.WriteCloser {
				w, e := c.transfer.Encode(wc, response.TransferEncoding,
					func() []http.Field {
						// On chunked transfer's trailer is to be sent,
						// If trailer exists, send it.
						var trailers []http.Field
						if response.Trailers != nil {
							trailers = response.Trailers.ToRawFields()
						}
						return trailers
					},
				)

				if e != nil {
					// Give the error to the outside-func.
					err = e
					return nil
				}

				return w
			},
		)

		if err != nil {
			// Could be [transfer.ErrUnsupportedCoding]
			return nil, errors.Wrap(err, "applying transfer coding to response")
		}

		return body, nil
	}

	if response.ContentLength != nil {
		return iolib.ExactReader(response.Body, *response.ContentLength), nil
	}

	return response.Body, nil
}

// toStatusError converts error into [status.Error].
// It assumes that error is returned when reading request,
// so if it isn't any specific error, it will return error with [status.BadRequest].
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
func toStatusError(err error) status.Error {
	if statusErr := new(status.Error); errors.As(err, statusErr) {
		return *statusErr
	}

	if errors.Is(err, transport.ErrDeadLineExceeded) {
		return status.NewError(nil, status.RequestTimeout)
	}

	if errors.Is(err, semantic.ErrURITooLong) || errors.Is(err, http.ErrRequestLineTooLong) {
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-4
		return status.NewError(err, status.URITooLong)
	}

	if errors.Is(err, http.ErrFieldLineTooLong) || errors.Is(err, http.ErrTooManyFields) {
		// Reference: https://datatracker.ietf.org/doc/html/rfc6585#section-5
		return status.NewError(err, status.RequestHeaderFieldsTooLarge)
	}

	if errors.Is(err, ErrContentTooLarge) {
		return status.NewError(err, status.ContentTooLarge)
	}

	if errors.Is(err, transfer.ErrUnsupportedCoding) {
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1-11
		return status.NewError(err, status.NotImplemented)
	}

	return status.NewError(err, status.BadRequest)
}

func statusErrToResponse(se status.Error, skipBody bool) (res *semantic.Response) {
	res = &semantic.Response{
		Status: se.Status,
		Message: semantic.Message{
			Headers:       semantic.NewHeaders(nil),
			ContentLength: pointer.To(uint(0)),
		},
	}

	if skipBody || se.Cause() == nil {
		return
	}

	content := se.Cause().Error()
	res.ContentLength = pointer.To(uint(len(content)))
	res.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	res.Body = strings.NewReader(content)

	return
}
