package static

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ChunkStream produces the bytes of a body one chunk at a time.
// Nothing is produced until Next is called.
type ChunkStream interface {
	// Next returns the following chunk, or io.EOF after the last one.
	// The chunk is only valid until the next call.
	Next(ctx context.Context) ([]byte, error)
	// Close releases the stream. It can be called at any point.
	Close() error
}

type fileStream struct {
	res *Resource

	offset uint64
	end    uint64
	buf    []byte
}

var _ ChunkStream = (*fileStream)(nil)

func (s *fileStream) Next(ctx context.Context) ([]byte, error) {
	if s.offset >= s.end {
		return nil, io.EOF
	}

	chunk := s.buf[:min(uint64(len(s.buf)), s.end-s.offset)]

	var (
		n   int
		err error
	)
	submitErr := s.res.pool.Submit(ctx, func() {
		n, err = s.res.file.ReadAt(chunk, int64(s.offset))
	})
	if submitErr != nil {
		return nil, errors.Wrap(submitErr, "submitting read")
	}

	if n < len(chunk) {
		if err == nil || errors.Is(err, io.EOF) {
			// File was truncated after it was opened.
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "reading at %d", s.offset)
	}

	s.offset += uint64(n)
	return chunk, nil
}

func (s *fileStream) Close() error {
	s.offset = s.end
	return s.res.Close()
}

// streamReader exposes a ChunkStream as an io.ReadCloser.
type streamReader struct {
	ctx     context.Context
	stream  ChunkStream
	pending []byte
}

func newStreamReader(ctx context.Context, stream ChunkStream) io.ReadCloser {
	return &streamReader{ctx: ctx, stream: stream}
}

func (r *streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(r.pending) == 0 {
		chunk, err := r.stream.Next(r.ctx)
		if err != nil {
			return 0, err
		}
		r.pending = chunk
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *streamReader) Close() error { return r.stream.Close() }
