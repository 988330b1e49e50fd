package static

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// gzipStream compresses the chunks of src.
// The compressor belongs to the stream and is dropped with it.
type gzipStream struct {
	src ChunkStream

	buf  bytes.Buffer
	zw   *gzip.Writer
	done bool
}

var _ ChunkStream = (*gzipStream)(nil)

func newGzipStream(src ChunkStream, level int) (*gzipStream, error) {
	s := &gzipStream{src: src}

	zw, err := gzip.NewWriterLevel(&s.buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating gzip writer")
	}
	s.zw = zw

	return s, nil
}

func (s *gzipStream) Next(ctx context.Context) ([]byte, error) {
	s.buf.Reset()

	for s.buf.Len() == 0 && !s.done {
		chunk, err := s.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			if err := s.zw.Close(); err != nil {
				return nil, errors.Wrap(err, "closing gzip writer")
			}
			s.done = true
			break
		}
		if err != nil {
			return nil, err
		}

		if _, err := s.zw.Write(chunk); err != nil {
			return nil, errors.Wrap(err, "compressing")
		}
	}

	if s.buf.Len() == 0 {
		return nil, io.EOF
	}
	return s.buf.Bytes(), nil
}

func (s *gzipStream) Close() error {
	s.done = true
	return s.src.Close()
}
