package static

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hunk/application/http"
	"hunk/application/http/actor/client"
	"hunk/application/http/actor/server"
	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"
	"hunk/application/util/uri"
	"hunk/lib/workerpool"
	"hunk/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type HandlerTestSuite struct {
	suite.Suite

	root  string
	clock *clock.Mock
	pool  *workerpool.Pool

	transport *pipe.Transport
	listener  *pipe.Listener
	server    *server.Server
	client    *client.Conn
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

var modTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func (s *HandlerTestSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.clock = clock.NewMock()

	s.writeFile("ten.txt", "0123456789")
	s.writeFile("empty.txt", "")
	s.writeFile("big.txt", strings.Repeat("compress me please. ", 200))
	s.writeFile("image.png", strings.Repeat("\x89PNG", 512))
	s.writeFile("sub/nested.css", "body {}")

	var err error
	s.pool, err = workerpool.New(2)
	s.Require().NoError(err)

	s.transport = pipe.NewTransport(s.clock)
	s.listener, err = s.transport.Listen(pipe.Addr{Name: "hunk"})
	s.Require().NoError(err)
}

func (s *HandlerTestSuite) TearDownTest() {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
	s.listener.Close()
	s.pool.Close()

	goleak.VerifyNone(s.T())
}

func (s *HandlerTestSuite) writeFile(name, content string) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	s.Require().NoError(os.Chtimes(path, modTime, modTime))
}

// start serves s.root with opts, where Root is filled in.
func (s *HandlerTestSuite) start(opts Options) {
	opts.Root = s.root

	handler, err := NewHandler(opts, s.pool, s.clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)

	s.server = server.New(s.listener, slog.New(slog.NewTextHandler(io.Discard, nil)), s.clock, handler.Handle, server.Options{})
	s.server.Start()

	s.client, err = client.Dial(context.Background(), s.transport, pipe.Addr{Name: "hunk"}, client.Options{})
	s.Require().NoError(err)
}

func request(method semantic.Method, path string, headers map[string][]string) *semantic.Request {
	return &semantic.Request{
		Method:  method,
		URI:     uri.URI{Path: path},
		Host:    "localhost",
		Message: semantic.Message{Version: http.Version1_1, Headers: semantic.NewHeaders(headers)},
	}
}

func (s *HandlerTestSuite) roundTrip(req *semantic.Request) (*semantic.Response, string) {
	response, err := s.client.RoundTrip(req)
	s.Require().NoError(err)

	body, err := io.ReadAll(response.Body)
	s.Require().NoError(err)

	return response, string(body)
}

func (s *HandlerTestSuite) header(response *semantic.Response, key string) string {
	v, ok := response.Headers.Get(key)
	s.True(ok, "missing %s", key)
	return v
}

func (s *HandlerTestSuite) TestGet() {
	s.start(Options{})

	response, body := s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))

	s.Equal(status.OK.Code, response.Status.Code)
	s.Equal("0123456789", body)
	s.Equal("10", s.header(response, "Content-Length"))
	s.Equal("bytes", s.header(response, "Accept-Ranges"))
	s.Equal("text/plain; charset=utf-8", s.header(response, "Content-Type"))
	s.Equal(semantic.FormatDate(modTime), s.header(response, "Last-Modified"))
	s.Equal(semantic.FormatDate(s.clock.Now()), s.header(response, "Date"))
	s.NotEmpty(s.header(response, "ETag"))

	s.False(response.Headers.Has("Vary"))
	s.False(response.Headers.Has("Cache-Control"))
	s.False(response.Headers.Has("Access-Control-Allow-Origin"))
}

func (s *HandlerTestSuite) TestGetInManyChunks() {
	s.start(Options{ChunkSize: 3})

	response, body := s.roundTrip(request(semantic.MethodGet, "/big.txt", nil))
	s.Equal(status.OK.Code, response.Status.Code)
	s.Equal(strings.Repeat("compress me please. ", 200), body)
}

func (s *HandlerTestSuite) TestGetIsIdempotent() {
	s.start(Options{})

	first, _ := s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))
	second, _ := s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))

	for _, key := range []string{"ETag", "Last-Modified", "Content-Length"} {
		s.Equal(s.header(first, key), s.header(second, key), key)
	}
}

func (s *HandlerTestSuite) TestHead() {
	s.start(Options{})

	response, body := s.roundTrip(request(semantic.MethodHead, "/ten.txt", nil))

	s.Equal(status.OK.Code, response.Status.Code)
	s.Empty(body)
	s.Equal("10", s.header(response, "Content-Length"))
	s.NotEmpty(s.header(response, "ETag"))

	// The connection is still usable.
	response, body = s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))
	s.Equal(status.OK.Code, response.Status.Code)
	s.Equal("0123456789", body)
}

func (s *HandlerTestSuite) TestNotFound() {
	s.start(Options{})

	testcases := []struct {
		desc string
		path string
	}{
		{desc: "missing file", path: "/missing.txt"},
		{desc: "traversal", path: "/../etc/passwd"},
		{desc: "traversal inside", path: "/sub/../../etc/passwd"},
		{desc: "directory without browsing", path: "/sub"},
		{desc: "root without browsing", path: "/"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			response, body := s.roundTrip(request(semantic.MethodGet, tc.path, nil))
			s.Equal(status.NotFound.Code, response.Status.Code)
			s.Equal("Not Found", body)
			s.Equal("9", s.header(response, "Content-Length"))
		})
	}
}

func (s *HandlerTestSuite) TestMethodNotAllowed() {
	s.start(Options{})

	for _, method := range []semantic.Method{semantic.MethodPost, semantic.MethodPut, semantic.MethodDelete} {
		response, body := s.roundTrip(request(method, "/ten.txt", nil))
		s.Equal(status.MethodNotAllowed.Code, response.Status.Code)
		s.Equal("GET, HEAD, OPTIONS", s.header(response, "Allow"))
		s.Equal("This resource only supports GET, HEAD, and OPTIONS.", body)
	}
}

func (s *HandlerTestSuite) TestOptions() {
	s.start(Options{})

	testcases := []struct {
		desc   string
		path   string
		status status.Status
	}{
		{desc: "asterisk", path: "*", status: status.OK},
		{desc: "existing resource", path: "/ten.txt", status: status.OK},
		{desc: "missing resource", path: "/missing.txt", status: status.NotFound},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			response, _ := s.roundTrip(request(semantic.MethodOptions, tc.path, nil))
			s.Equal(tc.status.Code, response.Status.Code)
			if tc.status == status.OK {
				s.Equal("GET, HEAD, OPTIONS", s.header(response, "Allow"))
				s.Equal("0", s.header(response, "Content-Length"))
			}
		})
	}
}

func (s *HandlerTestSuite) TestConditional() {
	s.start(Options{})

	first, _ := s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))
	etag := s.header(first, "ETag")

	testcases := []struct {
		desc    string
		headers map[string][]string
		status  status.Status
	}{
		{desc: "etag echoed", headers: map[string][]string{"If-None-Match": {etag}}, status: status.NotModified},
		{desc: "other etag", headers: map[string][]string{"If-None-Match": {`"other"`}}, status: status.OK},
		{desc: "not modified since", headers: map[string][]string{"If-Modified-Since": {semantic.FormatDate(modTime)}}, status: status.NotModified},
		{desc: "modified since", headers: map[string][]string{"If-Modified-Since": {semantic.FormatDate(modTime.Add(-time.Hour))}}, status: status.OK},
		{desc: "stale if-match", headers: map[string][]string{"If-Match": {`"stale-etag"`}}, status: status.PreconditionFailed},
		{
			desc:    "stale if-match with range",
			headers: map[string][]string{"If-Match": {`"stale-etag"`}, "Range": {"bytes=0-1"}},
			status:  status.PreconditionFailed,
		},
		{desc: "matching if-match", headers: map[string][]string{"If-Match": {etag}}, status: status.OK},
		{desc: "modified after", headers: map[string][]string{"If-Unmodified-Since": {semantic.FormatDate(modTime.Add(-time.Hour))}}, status: status.PreconditionFailed},
		{
			desc:    "not modified wins over precondition",
			headers: map[string][]string{"If-None-Match": {etag}, "If-Match": {`"stale-etag"`}},
			status:  status.NotModified,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			response, body := s.roundTrip(request(semantic.MethodGet, "/ten.txt", tc.headers))
			s.Equal(tc.status.Code, response.Status.Code)

			switch tc.status {
			case status.NotModified:
				s.Empty(body)
				s.Equal(etag, s.header(response, "ETag"))
				s.False(response.Headers.Has("Content-Type"))
				s.False(response.Headers.Has("Content-Length"))
			case status.PreconditionFailed:
				s.Empty(body)
				s.Equal("0", s.header(response, "Content-Length"))
			case status.OK:
				s.Equal("0123456789", body)
			}
		})
	}
}

func (s *HandlerTestSuite) TestRange() {
	s.start(Options{})

	testcases := []struct {
		desc         string
		path         string
		value        string
		status       status.Status
		contentRange string
		body         string
	}{
		{desc: "last byte", path: "/ten.txt", value: "bytes=9-", status: status.PartialContent, contentRange: "bytes 9-9/10", body: "9"},
		{desc: "middle", path: "/ten.txt", value: "bytes=2-4", status: status.PartialContent, contentRange: "bytes 2-4/10", body: "234"},
		{desc: "suffix", path: "/ten.txt", value: "bytes=-3", status: status.PartialContent, contentRange: "bytes 7-9/10", body: "789"},
		{desc: "clamped end", path: "/ten.txt", value: "bytes=8-100", status: status.PartialContent, contentRange: "bytes 8-9/10", body: "89"},
		{desc: "past the end", path: "/ten.txt", value: "bytes=10-", status: status.RangeNotSatisfiable, contentRange: "bytes */10"},
		{desc: "malformed", path: "/ten.txt", value: "bytes=x-y", status: status.RangeNotSatisfiable, contentRange: "bytes */10"},
		{desc: "empty file", path: "/empty.txt", value: "bytes=0-0", status: status.RangeNotSatisfiable, contentRange: "bytes */0"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			headers := map[string][]string{"Range": {tc.value}}
			response, body := s.roundTrip(request(semantic.MethodGet, tc.path, headers))

			s.Equal(tc.status.Code, response.Status.Code)
			s.Equal(tc.contentRange, s.header(response, "Content-Range"))
			s.Equal(tc.body, body)
			s.Equal(len(tc.body), int(*response.ContentLength))
		})
	}
}

func (s *HandlerTestSuite) TestGzip() {
	s.start(Options{Gzip: &GzipPolicy{Level: 6, Threshold: 100}})

	identity, _ := s.roundTrip(request(semantic.MethodGet, "/big.txt", nil))
	s.Equal("Accept-Encoding", s.header(identity, "Vary"))
	s.False(identity.Headers.Has("Content-Encoding"))

	headers := map[string][]string{"Accept-Encoding": {"gzip, deflate"}, "Range": {"bytes=0-9"}}
	response, body := s.roundTrip(request(semantic.MethodGet, "/big.txt", headers))

	s.Equal(status.OK.Code, response.Status.Code, "range is ignored when compressing")
	s.False(response.Headers.Has("Content-Range"))
	s.False(response.Headers.Has("Content-Length"))
	s.Equal("chunked", s.header(response, "Transfer-Encoding"))
	s.Equal("gzip", s.header(response, "Content-Encoding"))
	s.Equal("Accept-Encoding", s.header(response, "Vary"))
	s.NotEqual(s.header(identity, "ETag"), s.header(response, "ETag"))

	zr, err := gzip.NewReader(bytes.NewReader([]byte(body)))
	s.Require().NoError(err)
	plain, err := io.ReadAll(zr)
	s.Require().NoError(err)
	s.Equal(strings.Repeat("compress me please. ", 200), string(plain))

	// The encoded validator only matches the encoded representation.
	headers = map[string][]string{"Accept-Encoding": {"gzip"}, "If-None-Match": {s.header(response, "ETag")}}
	notModified, _ := s.roundTrip(request(semantic.MethodGet, "/big.txt", headers))
	s.Equal(status.NotModified.Code, notModified.Status.Code)

	headers = map[string][]string{"If-None-Match": {s.header(response, "ETag")}}
	modified, _ := s.roundTrip(request(semantic.MethodGet, "/big.txt", headers))
	s.Equal(status.OK.Code, modified.Status.Code)
}

func (s *HandlerTestSuite) TestGzipNotEligible() {
	s.start(Options{Gzip: &GzipPolicy{Level: 6, Threshold: 100}})

	headers := map[string][]string{"Accept-Encoding": {"gzip"}}

	testcases := []struct {
		desc string
		path string
	}{
		{desc: "under threshold", path: "/ten.txt"},
		{desc: "incompressible type", path: "/image.png"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			response, _ := s.roundTrip(request(semantic.MethodGet, tc.path, headers))
			s.False(response.Headers.Has("Content-Encoding"))
			s.NotNil(response.ContentLength)
			s.Equal("Accept-Encoding", s.header(response, "Vary"))
		})
	}
}

func (s *HandlerTestSuite) TestGzipHead() {
	s.start(Options{Gzip: &GzipPolicy{Level: 6, Threshold: 100}})

	headers := map[string][]string{"Accept-Encoding": {"gzip"}}
	response, body := s.roundTrip(request(semantic.MethodHead, "/big.txt", headers))

	s.Empty(body)
	s.Equal("gzip", s.header(response, "Content-Encoding"))
	s.Equal("chunked", s.header(response, "Transfer-Encoding"))
}

func (s *HandlerTestSuite) TestCacheControl() {
	s.start(Options{Cache: &CachePolicy{MaxAge: 3600}})

	response, _ := s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))
	s.Equal("public, max-age=3600", s.header(response, "Cache-Control"))
}

func (s *HandlerTestSuite) TestCors() {
	s.start(Options{Cors: &CorsPolicy{Origins: []string{"https://example.com"}}})

	s.Run("allowed", func() {
		headers := map[string][]string{"Origin": {"https://example.com"}}
		response, body := s.roundTrip(request(semantic.MethodGet, "/ten.txt", headers))
		s.Equal(status.OK.Code, response.Status.Code)
		s.Equal("0123456789", body)
		s.Equal("https://example.com", s.header(response, "Access-Control-Allow-Origin"))
		s.Equal("true", s.header(response, "Access-Control-Allow-Credentials"))
	})

	s.Run("preflight", func() {
		headers := map[string][]string{
			"Origin":                        {"https://example.com"},
			"Access-Control-Request-Method": {"GET"},
		}
		response, body := s.roundTrip(request(semantic.MethodOptions, "/ten.txt", headers))
		s.Equal(status.OK.Code, response.Status.Code)
		s.Empty(body)
		s.Equal("GET, HEAD, OPTIONS", s.header(response, "Access-Control-Allow-Methods"))
	})

	s.Run("credentialed from elsewhere", func() {
		headers := map[string][]string{"Origin": {"https://evil.example"}, "Cookie": {"session=1"}}
		response, body := s.roundTrip(request(semantic.MethodGet, "/ten.txt", headers))
		s.Equal(status.Forbidden.Code, response.Status.Code)
		s.Empty(body)
	})

	s.Run("uncredentialed from elsewhere", func() {
		headers := map[string][]string{"Origin": {"https://evil.example"}}
		response, body := s.roundTrip(request(semantic.MethodGet, "/ten.txt", headers))
		s.Equal(status.OK.Code, response.Status.Code)
		s.Equal("0123456789", body)
		s.False(response.Headers.Has("Access-Control-Allow-Origin"))
	})
}

func (s *HandlerTestSuite) TestBrowse() {
	s.start(Options{Browse: true})

	response, body := s.roundTrip(request(semantic.MethodGet, "/", nil))
	s.Equal(status.OK.Code, response.Status.Code)
	s.Equal("text/html; charset=utf-8", s.header(response, "Content-Type"))
	s.Contains(body, `href="/sub/"`)
	s.Contains(body, `href="/ten.txt"`)

	response, body = s.roundTrip(request(semantic.MethodGet, "/sub/", nil))
	s.Equal(status.OK.Code, response.Status.Code)
	s.Contains(body, `href="/sub/nested.css"`)
	s.Contains(body, ">..</a>")
}

func (s *HandlerTestSuite) TestOnRequest() {
	var (
		mu   sync.Mutex
		logs []RequestLog
	)
	s.start(Options{OnRequest: func(l RequestLog) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, l)
	}})

	s.roundTrip(request(semantic.MethodGet, "/ten.txt", nil))
	s.roundTrip(request(semantic.MethodHead, "/missing.txt", nil))

	mu.Lock()
	defer mu.Unlock()

	s.Require().Len(logs, 2)
	s.Equal("GET", logs[0].Method)
	s.Equal("/ten.txt", logs[0].Path)
	s.Equal(status.OK.Code, logs[0].Status)
	s.Equal("HEAD", logs[1].Method)
	s.Equal(status.NotFound.Code, logs[1].Status)
	s.NotEqual(logs[0].ID, logs[1].ID)
	s.Equal("dialer", logs[0].RemoteAddr)
}

func (s *HandlerTestSuite) TestNewHandlerInvalidOptions() {
	testcases := []struct {
		desc string
		opts Options
		err  error
	}{
		{desc: "relative root", opts: Options{Root: "public"}, err: ErrRootNotAbsolute},
		{desc: "gzip level", opts: Options{Root: "/srv", Gzip: &GzipPolicy{Level: 10}}, err: ErrInvalidGzipLevel},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			_, err := NewHandler(tc.opts, s.pool, s.clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
			s.ErrorIs(err, tc.err)
		})
	}
}
