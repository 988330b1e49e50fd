package semantic

import (
	"strings"

	"hunk/application/http"
	"hunk/application/util/uri"
	iolib "hunk/lib/io"

	"github.com/pkg/errors"
)

type Request struct {
	Message
	raw *http.Request

	Method Method
	URI    uri.URI

	Host string
}

type ParseRequestOptions struct {
	ParseMessageOptions

	MaxURILen uint
}

func RequestFrom(raw *http.Request, opts ParseRequestOptions) (*Request, error) {
	request := Request{
		raw:    raw,
		Method: Method(raw.Method),
	}

	var err error
	request.Message, err = createMessage(
		raw.Version, raw.Headers, raw.Body, opts.ParseMessageOptions,
	)
	if err != nil {
		return nil, err
	}

	if request.ContentLength == nil && len(request.TransferEncoding) == 0 {
		// A request without framing has no content.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.7
		request.Body = iolib.LimitReader(request.Body, 0)
	}

	request.Host, err = extractHost(request.Headers)
	if err != nil {
		return nil, errors.Wrap(err, "extracting host")
	}

	request.URI, err = parseAndValidateURI(raw.Target, request.Method, opts.MaxURILen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse URI")
	}

	if request.URI.IsAbsoluteURI() {
		// Reference:
		// - https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2-7
		// - https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2-8
		host := ""
		if request.URI.Authority != nil {
			host = request.URI.Authority.Host
		}
		request.Headers.Set("Host", host)
		request.Host = host
	}

	return &request, nil
}

func (r *Request) EnsureHeadersSet() {
	r.Message.EnsureHeadersSet()

	r.Headers.Set("Host", r.Host)
}

func (r *Request) RawRequest() http.Request {
	if r.raw != nil {
		return *r.raw
	}

	return http.Request{
		RequestLine: http.RequestLine{
			Method:  string(r.Method),
			Target:  r.URI.String(),
			Version: r.Version,
		},
		Headers: r.Headers.ToRawFields(),
	}
}

// WantsClose reports whether the client asked to close the connection after the response.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-9.3
func (r *Request) WantsClose() bool {
	options, _ := r.Headers.Values("Connection")
	for _, option := range options {
		switch strings.ToLower(option) {
		case "close":
			return true
		case "keep-alive":
			return false
		}
	}

	// HTTP/1.0 closes by default.
	return r.Version == http.Version1_0
}

func extractHost(h Headers) (string, error) {
	v, ok := h.Get("Host")
	if !ok {
		return "", nil
	}

	host, portPart := v, ""
	if idx := strings.LastIndexByte(v, ':'); idx >= 0 && !strings.HasSuffix(v, "]") {
		host, portPart = v[:idx], v[idx:]
	}

	if err := uri.AssertValidHost(host); err != nil {
		return "", errors.Wrap(err, "host value is not valid")
	}
	if _, _, err := uri.ParsePort(portPart); err != nil {
		return "", errors.Wrap(err, "host port is not valid")
	}

	return v, nil
}

var ErrURITooLong = errors.New("uri too long")

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
func parseAndValidateURI(raw string, method Method, maxLen uint) (uri.URI, error) {
	if maxLen > 0 && uint(len(raw)) > maxLen {
		return uri.URI{}, ErrURITooLong
	}

	if method == MethodConnect {
		// authority-form is only used by CONNECT, which is never served.
		// Keep the target aside instead of parsing it as a URI.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.3
		return uri.URI{}, nil
	}

	u, err := uri.Parse(raw)
	if err != nil {
		return uri.URI{}, err
	}

	switch {
	case u.IsAsterisk():
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.4
		if method != MethodOptions {
			return uri.URI{}, errors.New("asterisk-form is only allowed for OPTIONS")
		}
	case u.IsAbsoluteURI():
		// absolute-form
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2
		if !(u.Scheme == "http" || u.Scheme == "https") {
			return uri.URI{}, errors.New("scheme is invalid. allowed schemes are: http, https")
		}
		if u.Authority == nil {
			return uri.URI{}, errors.New("absoulte-form needs authority")
		}
		if u.Path == "" {
			u.Path = "/"
		}
	default:
		// origin-form
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
		if u.Authority != nil || u.Fragment != nil || !strings.HasPrefix(u.Path, "/") {
			return uri.URI{}, errors.New("origin-form uri's path should start with /")
		}
	}

	return u, nil
}
