package semantic

import (
	"time"

	"hunk/application/http"
	"hunk/application/http/semantic/status"

	"github.com/pkg/errors"
)

type Response struct {
	Message
	raw *http.Response

	Status status.Status
	Date   time.Time
}

type ParseResponseOptions struct {
	ParseMessageOptions
}

func ResponseFrom(raw *http.Response, opts ParseResponseOptions) (*Response, error) {
	st, _ := status.FromCode(raw.StatusCode)
	st.ReasonPhrase = raw.ReasonPhrase

	response := Response{
		raw:    raw,
		Status: st,
	}

	var err error
	response.Message, err = createMessage(raw.Version, raw.Headers, raw.Body, opts.ParseMessageOptions)
	if err != nil {
		return nil, err
	}

	response.Date, err = extractDate(response.Headers)
	if err != nil {
		return nil, errors.Wrap(err, "extracting date")
	}

	return &response, nil
}

func (r *Response) EnsureHeadersSet() {
	r.Message.EnsureHeadersSet()

	if !r.Date.IsZero() {
		r.Headers.Set("Date", FormatDate(r.Date))
	}
}

// RawResponse converts r into its wire form.
// Body is left to the caller, since it depends on the transfer codings.
func (r *Response) RawResponse() http.Response {
	if r.raw != nil {
		return *r.raw
	}

	return http.Response{
		StatusLine: http.StatusLine{
			Version:      r.Version,
			StatusCode:   r.Status.Code,
			ReasonPhrase: r.Status.ReasonPhrase,
		},
		Headers: r.Headers.ToRawFields(),
	}
}

// HasNoContent reports whether the response must not carry content, regardless of its framing headers.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.1
func (r *Response) HasNoContent(requestMethod Method) bool {
	code := r.Status.Code
	return requestMethod == MethodHead ||
		(100 <= code && code < 200) ||
		code == status.NoContent.Code ||
		code == status.NotModified.Code
}

func extractDate(h Headers) (time.Time, error) {
	v, ok := h.Get("Date")
	if !ok {
		return time.Time{}, nil
	}

	return ParseDate(v)
}
