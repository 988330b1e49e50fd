package static

import (
	"bytes"
	"log/slog"
	"os"
	"strconv"

	"hunk/application/http/actor/server"
	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"
	"hunk/application/http/transfer"
	"hunk/lib/types/pointer"
	"hunk/lib/workerpool"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Handler serves the files under a root directory.
type Handler struct {
	opts   Options
	pool   *workerpool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// NewHandler creates a handler. Every blocking file system call of it runs on pool.
func NewHandler(opts Options, pool *workerpool.Pool, clock clock.Clock, logger *slog.Logger) (*Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	return &Handler{
		opts:   opts,
		pool:   pool,
		clock:  clock,
		logger: logger,
	}, nil
}

var _ server.HandleFunc = (*Handler)(nil).Handle

func (h *Handler) Handle(c *server.HandleContext, req *semantic.Request) *semantic.Response {
	start := h.clock.Now()

	response := h.serve(c, req)

	if h.opts.OnRequest != nil && response != nil {
		h.opts.OnRequest(RequestLog{
			ID:         uuid.New(),
			RemoteAddr: c.RemoteAddr().String(),
			Method:     string(req.Method),
			Path:       req.URI.Path,
			Status:     response.Status.Code,
			Start:      start,
			Duration:   h.clock.Since(start),
		})
	}

	return response
}

// opened is what a request found on the file system.
// Exactly one of the fields is set.
type opened struct {
	resource *Resource
	listing  []byte
}

var errNotFound = errors.New("not found")

func (h *Handler) serve(c *server.HandleContext, req *semantic.Request) *semantic.Response {
	switch req.Method {
	case semantic.MethodGet, semantic.MethodHead, semantic.MethodOptions:
	default:
		return methodNotAllowed()
	}

	if req.URI.IsAsterisk() {
		return allow(semantic.NewHeaders(nil))
	}

	path, ok := ResolvePath(h.opts.Root, req.URI.Path)
	if !ok {
		return notFound()
	}

	var (
		found   opened
		openErr error
	)
	err := h.pool.Submit(c.Context(), func() {
		found, openErr = h.open(path)
	})
	if err != nil {
		return c.Error(errors.Wrap(err, "submitting open"))
	}
	if openErr != nil {
		h.logger.Debug("resource unavailable", "path", path, "error", openErr)
		return notFound()
	}

	if found.listing != nil {
		if req.Method == semantic.MethodOptions {
			return allow(semantic.NewHeaders(nil))
		}
		return listingResponse(found.listing)
	}

	res := found.resource
	streaming := false
	defer func() {
		if !streaming {
			res.Close()
		}
	}()

	headers, short := EvaluateCors(h.opts.Cors, req)
	if short != nil {
		return emptyResponse(*short, headers)
	}

	if req.Method == semantic.MethodOptions {
		return allow(headers)
	}

	compress := shouldCompress(
		h.opts.Gzip, res, path, NegotiateEncoding(&req.Headers),
	)

	validators := Validators{
		ETag:         res.ETag(!compress),
		LastModified: res.LastModified(),
	}

	if h.opts.Gzip != nil {
		// The representation depends on Accept-Encoding even when it is not compressed this time.
		headers.Add("Vary", "Accept-Encoding")
	}
	if h.opts.Cache != nil {
		headers.Set("Cache-Control", "public, max-age="+strconv.FormatUint(uint64(h.opts.Cache.MaxAge), 10))
	}

	if IsNotModified(&req.Headers, validators) {
		headers.Set("ETag", validators.ETag)
		return &semantic.Response{
			Message: semantic.Message{Headers: headers},
			Status:  status.NotModified,
		}
	}

	if IsPreconditionFailed(&req.Headers, validators) {
		return emptyResponse(status.PreconditionFailed, headers)
	}

	// Ranges over an encoding made on the fly are meaningless.
	requested := RequestedRange{Outcome: RangeNone}
	if !compress {
		value, present := req.Headers.Get("Range")
		requested = ResolveRange(value, present, res.Len())
	}

	if requested.Outcome == RangeNotSatisfiable {
		headers.Set("Content-Range", unsatisfiedRange(res.Len()))
		return emptyResponse(status.RangeNotSatisfiable, headers)
	}

	headers.Set("ETag", validators.ETag)
	headers.Set("Accept-Ranges", "bytes")
	headers.Set("Last-Modified", semantic.FormatDate(validators.LastModified))
	headers.Set("Content-Type", res.ContentType().MIME)

	response := &semantic.Response{
		Message: semantic.Message{Headers: headers},
		Status:  status.OK,
	}

	// [start, end)
	start, end := uint64(0), res.Len()
	if requested.Outcome == RangeSatisfiable {
		response.Status = status.PartialContent
		response.Headers.Set("Content-Range", contentRange(requested.Range, res.Len()))
		start, end = requested.Range.Start, requested.Range.End+1
	}

	if compress {
		response.Headers.Set("Content-Encoding", string(EncodingGzip))
		response.TransferEncoding = []transfer.Coding{transfer.CodingChunked}
	} else {
		response.ContentLength = pointer.To(uint(end - start))
	}

	if req.Method == semantic.MethodHead {
		return response
	}

	var stream ChunkStream = res.GetRange(start, end, h.opts.chunkSize())
	if compress {
		gzipped, err := newGzipStream(stream, h.opts.Gzip.Level)
		if err != nil {
			return c.Error(err)
		}
		stream = gzipped
	}

	streaming = true
	response.Body = newStreamReader(c.Context(), stream)
	return response
}

// open runs on the pool.
func (h *Handler) open(path string) (opened, error) {
	file, err := os.Open(path)
	if err != nil {
		return opened{}, errors.Wrap(err, "opening")
	}

	res, err := NewResource(file, h.pool, ContentTypeOf(path))
	if err == nil {
		return opened{resource: res}, nil
	}
	file.Close()

	if !errors.Is(err, ErrIsDirectory) {
		return opened{}, err
	}
	if !h.opts.Browse {
		return opened{}, errNotFound
	}

	listing, err := listDirectory(h.opts.Root, path, h.clock.Now())
	if err != nil {
		return opened{}, err
	}
	return opened{listing: listing}, nil
}

func emptyResponse(st status.Status, headers semantic.Headers) *semantic.Response {
	return &semantic.Response{
		Message: semantic.Message{
			Headers:       headers,
			ContentLength: pointer.To(uint(0)),
		},
		Status: st,
	}
}

func textResponse(st status.Status, headers semantic.Headers, text string) *semantic.Response {
	headers.Set("Content-Type", "text/plain; charset=utf-8")
	return &semantic.Response{
		Message: semantic.Message{
			Headers:       headers,
			ContentLength: pointer.To(uint(len(text))),
			Body:          bytes.NewReader([]byte(text)),
		},
		Status: st,
	}
}

func notFound() *semantic.Response {
	return textResponse(status.NotFound, semantic.NewHeaders(nil), "Not Found")
}

func methodNotAllowed() *semantic.Response {
	headers := semantic.NewHeaders(nil)
	headers.Set("Allow", allowedMethods)
	return textResponse(
		status.MethodNotAllowed, headers,
		"This resource only supports GET, HEAD, and OPTIONS.",
	)
}

func allow(headers semantic.Headers) *semantic.Response {
	headers.Set("Allow", allowedMethods)
	return emptyResponse(status.OK, headers)
}

func listingResponse(listing []byte) *semantic.Response {
	headers := semantic.NewHeaders(nil)
	headers.Set("Content-Type", "text/html; charset=utf-8")
	return &semantic.Response{
		Message: semantic.Message{
			Headers:       headers,
			ContentLength: pointer.To(uint(len(listing))),
			Body:          bytes.NewReader(listing),
		},
		Status: status.OK,
	}
}
