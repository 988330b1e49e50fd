package static

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"io/fs"
	"sync"
	"time"

	"hunk/lib/workerpool"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// File is the part of [os.File] a Resource reads from.
type File interface {
	io.ReaderAt
	io.Closer
	Stat() (fs.FileInfo, error)
}

var ErrIsDirectory = errors.New("resource is a directory")

// Resource is a snapshot of an open regular file.
// It owns the file until [Resource.Close], or until a stream created by [Resource.GetRange] is closed.
type Resource struct {
	file File
	pool *workerpool.Pool

	length       uint64
	lastModified time.Time
	contentType  ContentType

	identityETag string
	encodedETag  string

	once     sync.Once
	closeErr error
}

// NewResource stats file. It blocks, so it should run on pool.
func NewResource(file File, pool *workerpool.Pool, contentType ContentType) (*Resource, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}

	r := &Resource{
		file:        file,
		pool:        pool,
		length:      uint64(info.Size()),
		contentType: contentType,
		// HTTP-date has a resolution of seconds.
		lastModified: info.ModTime().UTC().Truncate(time.Second),
	}

	tag := digest(r.length, info.ModTime())
	r.identityETag = `"` + tag + `"`
	r.encodedETag = `"` + tag + `-gzip"`

	return r, nil
}

// ETag returns the validator of the representation that is going to be sent.
func (r *Resource) ETag(preferIdentity bool) string {
	if preferIdentity {
		return r.identityETag
	}
	return r.encodedETag
}

func (r *Resource) ContentType() ContentType { return r.contentType }
func (r *Resource) Len() uint64              { return r.length }
func (r *Resource) LastModified() time.Time  { return r.lastModified }

// GetRange returns a stream over [start, end).
// The range should already be validated against [Resource.Len].
// Closing the stream closes the resource.
func (r *Resource) GetRange(start, end uint64, chunkSize uint) ChunkStream {
	if start > end || end > r.length {
		panic(errors.Errorf("range %d-%d is out of %d bytes", start, end, r.length))
	}

	return &fileStream{
		res:    r,
		offset: start,
		end:    end,
		buf:    make([]byte, min(uint64(chunkSize), end-start)),
	}
}

func (r *Resource) Close() error {
	r.once.Do(func() { r.closeErr = r.file.Close() })
	return r.closeErr
}

var etagDomainKey = [32]byte{
	'h', 'u', 'n', 'k', '.', 'e', 't', 'a', 'g', 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// digest derives an opaque tag from the size and the modification time.
// The content itself is never read.
func digest(size uint64, modTime time.Time) string {
	var input [16]byte
	binary.BigEndian.PutUint64(input[:8], size)
	binary.BigEndian.PutUint64(input[8:], uint64(modTime.UnixNano()))

	hasher, err := blake3.NewKeyed(etagDomainKey[:])
	if err != nil {
		panic(errors.Wrap(err, "blake3 keyed hasher"))
	}
	_, _ = hasher.Write(input[:])

	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
