package iolib

import "io"

// LimitReader reads at most n bytes from r. A shorter r simply ends early.
func LimitReader(r io.Reader, n uint) io.Reader { return &LimitedReader{R: r, N: n} }

// LimitedReader is [io.LimitedReader] counting in uint.
type LimitedReader struct {
	R io.Reader
	N uint // remaining
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N == 0 {
		return 0, io.EOF
	}
	if uint(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err = l.R.Read(p)
	l.N -= uint(n)
	return n, err
}

// ExactReader reads exactly n bytes from r.
// It fails with [io.ErrUnexpectedEOF] if r ends first,
// so a body never comes out shorter than the length announced for it.
func ExactReader(r io.Reader, n uint) io.Reader {
	return &exactReader{LimitedReader{R: r, N: n}}
}

type exactReader struct{ l LimitedReader }

func (e *exactReader) Read(p []byte) (int, error) {
	n, err := e.l.Read(p)
	if err == io.EOF && e.l.N > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}
