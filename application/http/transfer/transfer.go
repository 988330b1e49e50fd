// Package transfer implements transfer codings of HTTP/1.1 message bodies.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7
package transfer

import (
	"io"

	"hunk/application/http"

	"github.com/pkg/errors"
)

type Coding string

const (
	CodingChunked Coding = "chunked"
)

type Coder interface {
	Coding() Coding
	NewReader(r io.Reader) io.Reader
	NewWriter(w io.WriteCloser) io.WriteCloser
}

// CodingPipeliner stacks coders in the order a message lists its transfer codings.
type CodingPipeliner struct{ coders map[Coding]Coder }

func NewCodingPipeliner(customs []Coder) *CodingPipeliner {
	cp := &CodingPipeliner{}
	cp.coders = map[Coding]Coder{
		CodingChunked: NewChunkedCoder(),
	}

	for _, coder := range customs {
		cp.coders[coder.Coding()] = coder
	}

	return cp
}

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// Supports reports whether every coding can be applied.
func (cp *CodingPipeliner) Supports(codings []Coding) bool {
	for _, coding := range codings {
		if _, ok := cp.coders[coding]; !ok {
			return false
		}
	}
	return true
}

func (cp *CodingPipeliner) Decode(r io.Reader, codings []Coding, onTrailer func(f []http.Field)) (io.Reader, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrap(ErrUnsupportedCoding, string(coding))
		}

		r = coder.NewReader(r)
		if cr, ok := r.(*ChunkedReader); ok && onTrailer != nil {
			cr.SetOnTrailerReceived(func(f []http.Field) {
				if len(f) == 0 {
					return
				}
				onTrailer(f)
			})
		}
	}

	return r, nil
}

func (cp *CodingPipeliner) Encode(w io.WriteCloser, codings []Coding, sendTrailers func() []http.Field) (io.WriteCloser, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrap(ErrUnsupportedCoding, string(coding))
		}

		w = coder.NewWriter(w)
		if cw, ok := w.(*ChunkedWriter); ok && sendTrailers != nil {
			cw.SetSendTrailers(sendTrailers)
		}
	}

	return w, nil
}
