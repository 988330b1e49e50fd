package iolib

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// MiddlewareReader turns a writer-side transformation into a reader.
// Bytes read from src are written through the middleware, and its output is what Read returns.
type MiddlewareReader struct {
	src  io.Reader
	buf  *bytes.Buffer
	bufw io.WriteCloser
	eof  bool

	chunk []byte
}

func NewMiddlewareReader(
	src io.Reader, middleware func(io.WriteCloser) io.WriteCloser,
) *MiddlewareReader {
	mr := &MiddlewareReader{
		src: src,
		buf: bytes.NewBuffer(nil),
	}
	mr.bufw = middleware(nopWriteCloser{mr.buf})
	return mr
}

func (mr *MiddlewareReader) Read(p []byte) (n int, err error) {
	// A middleware may hold its output back (e.g. compressors),
	// so keep feeding it until something comes out or the source ends.
	for mr.buf.Len() == 0 && !mr.eof {
		if err := mr.fill(len(p)); err != nil {
			return 0, err
		}
	}

	if mr.buf.Len() == 0 {
		return 0, io.EOF
	}

	return mr.buf.Read(p)
}

func (mr *MiddlewareReader) fill(size int) error {
	if size < 512 {
		size = 512
	}
	if cap(mr.chunk) < size {
		mr.chunk = make([]byte, size)
	}
	chunk := mr.chunk[:size]

	n, err := mr.src.Read(chunk)
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "reading from source")
	}

	if _, werr := mr.bufw.Write(chunk[:n]); werr != nil {
		return errors.Wrap(werr, "failed to write")
	}

	if err == io.EOF {
		mr.eof = true
		if err := mr.bufw.Close(); err != nil {
			return errors.Wrap(err, "failed to close middleware")
		}
	}

	return nil
}

// Close closes the source if it is an [io.Closer].
func (mr *MiddlewareReader) Close() error {
	if c, ok := mr.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
