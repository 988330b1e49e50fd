// Package client implements a minimal sequential HTTP/1.1 client over a single [transport.Conn].
package client

import (
	"bytes"
	"context"
	"io"

	"hunk/application/http"
	"hunk/application/http/semantic"
	"hunk/application/http/transfer"
	iolib "hunk/lib/io"
	"hunk/transport"

	"github.com/pkg/errors"
)

type Options struct {
	Encode http.EncodeOptions
	Decode http.DecodeOptions

	Parse semantic.ParseResponseOptions

	ExtraTransferCoders []transfer.Coder
}

// Conn sends requests one at a time and reads their responses in order.
// It is not safe for concurrent use, and a response body must be drained before the next round trip.
type Conn struct {
	con transport.Conn

	enc *http.RequestEncoder
	dec *http.ResponseDecoder

	transfer *transfer.CodingPipeliner
	opts     Options
}

func NewConn(con transport.Conn, opts Options) *Conn {
	return &Conn{
		con:      con,
		enc:      http.NewRequestEncoder(con, opts.Encode),
		dec:      http.NewResponseDecoder(con, opts.Decode),
		transfer: transfer.NewCodingPipeliner(opts.ExtraTransferCoders),
		opts:     opts,
	}
}

func Dial(ctx context.Context, dialer transport.ConnDialer, addr transport.Addr, opts Options) (*Conn, error) {
	con, err := dialer.Dial(ctx, addr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing")
	}
	return NewConn(con, opts), nil
}

func (c *Conn) RoundTrip(request *semantic.Request) (*semantic.Response, error) {
	if err := c.WriteRequest(request); err != nil {
		return nil, errors.Wrap(err, "writing request")
	}

	response, err := c.ReadResponse(request.Method)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	return response, nil
}

func (c *Conn) WriteRequest(request *semantic.Request) error {
	request.EnsureHeadersSet()
	raw := request.RawRequest()

	var body io.Reader = bytes.NewReader(nil)
	if request.Body != nil {
		body = request.Body
	}

	switch {
	case len(request.TransferEncoding) > 0:
		if !c.transfer.Supports(request.TransferEncoding) {
			return errors.Wrapf(transfer.ErrUnsupportedCoding, "%v", request.TransferEncoding)
		}
		body = iolib.NewMiddlewareReader(body, func(wc io.WriteCloser) io.WriteCloser {
			w, _ := c.transfer.Encode(wc, request.TransferEncoding, nil)
			return w
		})
	case request.ContentLength != nil:
		body = io.LimitReader(body, int64(*request.ContentLength))
	default:
		body = bytes.NewReader(nil)
	}

	raw.Body = io.NopCloser(body)

	return c.enc.Encode(raw)
}

// WriteRaw writes b as is, for messages the encoder would never produce.
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.con.Write(b)
	return err
}

// ReadResponse reads the next response, answering a request with the given method.
// The body is delimited according to the response framing.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func (c *Conn) ReadResponse(method semantic.Method) (*semantic.Response, error) {
	var raw http.Response
	if err := c.dec.Decode(&raw); err != nil {
		return nil, err
	}

	response, err := semantic.ResponseFrom(&raw, c.opts.Parse)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a semantic response")
	}

	switch {
	case response.HasNoContent(method):
		response.Body = bytes.NewReader(nil)
	case len(response.TransferEncoding) > 0:
		response.Body, err = c.transfer.Decode(response.Body, response.TransferEncoding,
			func(f []http.Field) {
				trailers := semantic.HeadersFrom(f)
				response.Trailers = &trailers
			},
		)
		if err != nil {
			return nil, err
		}

		if !response.IsChunked() {
			// The message is finished when server closes connection.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.2
			response.Body = &connClosedReader{r: response.Body}
		}
	case response.ContentLength != nil:
		// Already delimited by Content-Length.
	default:
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.8
		response.Body = &connClosedReader{r: response.Body}
	}

	return response, nil
}

func (c *Conn) Close() error { return c.con.Close() }

// connClosedReader overwrites [transport.ErrConnClosed] as [io.EOF].
type connClosedReader struct{ r io.Reader }

func (r *connClosedReader) Read(p []byte) (n int, err error) {
	n, err = r.r.Read(p)
	if errors.Is(err, transport.ErrConnClosed) {
		return n, io.EOF
	}
	return n, err
}
