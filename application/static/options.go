package static

import (
	"path/filepath"

	"github.com/pkg/errors"
)

const DefaultChunkSize = 64 << 10

// GzipPolicy enables on-the-fly gzip compression.
type GzipPolicy struct {
	// Level is between 1 and 9.
	Level int
	// Resources shorter than Threshold bytes are sent as is.
	Threshold uint64
	// AlsoExtensions are compressed even if their content type is not.
	// Matched case-insensitively, without the leading dot.
	AlsoExtensions []string
}

type CachePolicy struct {
	// MaxAge is in seconds.
	MaxAge uint
}

// CorsPolicy allows cross-origin requests.
// Empty Origins means any origin is allowed, without credentials.
type CorsPolicy struct {
	Origins []string
}

type Options struct {
	// Root is an absolute, canonical directory.
	Root string

	Browse bool

	Gzip  *GzipPolicy
	Cache *CachePolicy
	Cors  *CorsPolicy

	// ChunkSize is the size of a single file read. Zero means [DefaultChunkSize].
	ChunkSize uint

	// OnRequest is called once for every answered request.
	OnRequest func(RequestLog)
}

var (
	ErrRootNotAbsolute  = errors.New("root should be an absolute path")
	ErrInvalidGzipLevel = errors.New("gzip level should be between 1 and 9")
)

func (o Options) validate() error {
	if !filepath.IsAbs(o.Root) {
		return errors.Wrapf(ErrRootNotAbsolute, "root: %q", o.Root)
	}

	if o.Gzip != nil && (o.Gzip.Level < 1 || 9 < o.Gzip.Level) {
		return errors.Wrapf(ErrInvalidGzipLevel, "level: %d", o.Gzip.Level)
	}

	return nil
}

func (o Options) chunkSize() uint {
	if o.ChunkSize == 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}
