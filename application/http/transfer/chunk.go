package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"hunk/application/http"
	"hunk/application/util/rule"

	"github.com/pkg/errors"
)

// maxLineLength bounds chunk headers and trailer lines.
const maxLineLength = 4096

var (
	ErrLineTooLong      = errors.New("chunk line length exceeds limit")
	ErrMissingDelimiter = errors.New("CRLF delimiter not found")
)

type ChunkedCoder struct{}

var _ Coder = ChunkedCoder{}

func NewChunkedCoder() ChunkedCoder { return ChunkedCoder{} }

func (ChunkedCoder) Coding() Coding { return CodingChunked }

func (ChunkedCoder) NewReader(r io.Reader) io.Reader { return NewChunkedReader(r) }

func (ChunkedCoder) NewWriter(w io.WriteCloser) io.WriteCloser { return NewChunkedWriter(w) }

type Chunk struct {
	Size       uint
	Extensions [][2]string
	data       io.Reader
}

// lineReader is satisfied by [bufio.Reader].
// Reading a line byte by byte never consumes bytes that follow the chunked body.
type lineReader interface {
	io.Reader
	io.ByteReader
}

type ChunkedReader struct {
	br       lineReader
	chunk    *Chunk
	read     uint // reset for each chunk
	crlfDump []byte
	done     bool

	onTrailerReceived func([]http.Field)
}

var _ io.Reader = (*ChunkedReader)(nil)

// NewChunkedReader converts chunked http message into byte stream.
// If r is not a [io.ByteReader], it will be buffered.
func NewChunkedReader(r io.Reader) *ChunkedReader {
	br, ok := r.(lineReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &ChunkedReader{
		br:       br,
		crlfDump: make([]byte, 2),
	}
}

func (cr *ChunkedReader) SetOnTrailerReceived(f func([]http.Field)) {
	cr.onTrailerReceived = f
}

func (cr *ChunkedReader) Read(b []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}

	if cr.chunk == nil {
		if err := cr.decodeChunk(); err != nil {
			return 0, errors.Wrap(err, "decoding chunk")
		}

		if cr.chunk.Size == 0 {
			// Last chunk.
			if err := cr.decodeTrailers(); err != nil {
				return 0, errors.Wrap(err, "decoding trailer")
			}
			cr.done = true
			return 0, io.EOF
		}
	}

	remain := cr.chunk.Size - cr.read
	if uint(len(b)) > remain {
		b = b[:remain]
	}

	n, err := cr.chunk.data.Read(b)
	cr.read += uint(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, errors.Wrap(err, "reading chunk data")
	}

	if cr.read == cr.chunk.Size {
		if _, err := io.ReadFull(cr.chunk.data, cr.crlfDump); err != nil {
			return n, errors.Wrap(err, "reading chunk delimiter")
		}

		if !bytes.Equal(cr.crlfDump, rule.CRLF) {
			return n, ErrMissingDelimiter
		}

		cr.chunk = nil
		cr.read = 0
	}

	return n, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
func (cr *ChunkedReader) decodeChunk() error {
	line, err := readLine(cr.br)
	if err != nil {
		return err
	}

	parts := bytes.Split(line, []byte{';'})

	sizeRaw := bytes.TrimFunc(parts[0], rule.IsWhitespace)
	chunkSize, err := decodeChunkSize(sizeRaw)
	if err != nil {
		return errors.Wrap(err, "decoding chunk size")
	}

	// Decode chunk extensions
	parts = parts[1:]
	extensions := make([][2]string, 0, len(parts))
	for _, part := range parts {
		k, v, _ := bytes.Cut(part, []byte{'='})
		// Trim BWS.
		k = bytes.TrimFunc(k, rule.IsWhitespace)
		v = bytes.TrimFunc(v, rule.IsWhitespace)

		extensions = append(extensions, [2]string{
			string(k),
			string(rule.Unquote(v)),
		})
	}

	cr.chunk = &Chunk{
		Size:       chunkSize,
		Extensions: extensions,
		data:       cr.br,
	}

	return nil
}

func decodeChunkSize(b []byte) (uint, error) {
	if len(b) == 0 {
		return 0, errors.New("chunk size is empty")
	}
	for _, c := range b {
		if !rule.IsHex(rune(c)) {
			return 0, errors.Errorf("failed to decode hex: %q", string(b))
		}
	}

	size, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return 0, errors.Errorf("chunk size larger than 64bit: %q", string(b))
	}

	return uint(size), nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1.2
func (cr *ChunkedReader) decodeTrailers() error {
	fields := make([]http.Field, 0)
	for {
		line, err := readLine(cr.br)
		if err != nil {
			return errors.Wrap(err, "reading line")
		}

		if len(line) == 0 {
			// Last field.
			break
		}

		field, err := http.ParseField(line)
		if err != nil {
			return errors.Wrap(err, "parsing field")
		}

		fields = append(fields, field)
	}

	if cr.onTrailerReceived != nil {
		cr.onTrailerReceived(fields)
	}

	return nil
}

type ChunkedWriter struct {
	w         io.WriteCloser
	headerBuf *bytes.Buffer

	extensions   [][2]string
	sendTrailers func() []http.Field
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

// NewChunkedWriter writes every non-empty Write as a single chunk.
// Close writes the last chunk and trailers, then closes w.
func NewChunkedWriter(w io.WriteCloser) *ChunkedWriter {
	return &ChunkedWriter{
		w:         w,
		headerBuf: bytes.NewBuffer(nil),
	}
}

// SetExtensions sets extension to the chunk.
// extension lives until [ChunkedWriter.Write].
func (cw *ChunkedWriter) SetExtensions(extensions [][2]string) {
	cw.extensions = extensions
}

func (cw *ChunkedWriter) SetSendTrailers(f func() []http.Field) {
	cw.sendTrailers = f
}

func (cw *ChunkedWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		// We should ignore 0 length chunks since it means EOF.
		return 0, nil
	}

	chunk := Chunk{
		Size:       uint(len(p)),
		Extensions: cw.extensions,
		data:       bytes.NewReader(p),
	}

	cw.extensions = nil

	n, err = cw.encodeChunk(chunk)
	if err != nil {
		return n, errors.Wrap(err, "encoding chunk")
	}

	return n, nil
}

func (cw *ChunkedWriter) Close() error {
	chunk := Chunk{
		Size:       0,
		Extensions: cw.extensions,
	}

	if _, err := cw.encodeChunk(chunk); err != nil {
		return errors.Wrap(err, "encoding chunk")
	}

	if err := cw.encodeTrailers(); err != nil {
		return errors.Wrap(err, "encoding trailers")
	}

	return cw.w.Close()
}

func (cw *ChunkedWriter) encodeChunk(chunk Chunk) (n int, err error) {
	// size and extensions
	buf := cw.headerBuf
	buf.Reset()
	buf.WriteString(strconv.FormatUint(uint64(chunk.Size), 16))
	for _, ext := range chunk.Extensions {
		buf.WriteByte(';')
		buf.WriteString(ext[0])
		buf.WriteByte('=')
		buf.WriteString(ext[1])
	}

	if err := writeLine(cw.w, buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "writing chunk header")
	}

	if chunk.Size == 0 {
		// Last chunk. only write header.
		return 0, nil
	}

	// chunk data + CRLF
	r := io.MultiReader(chunk.data, bytes.NewReader(rule.CRLF))

	n64, err := io.Copy(cw.w, r)
	if err != nil {
		return int(max(0, n64-int64(len(rule.CRLF)))), errors.Wrap(err, "writing data")
	}

	return int(n64) - len(rule.CRLF), nil
}

func (cw *ChunkedWriter) encodeTrailers() error {
	if cw.sendTrailers != nil {
		for _, field := range cw.sendTrailers() {
			if err := writeLine(cw.w, field.Text()); err != nil {
				return errors.Wrap(err, "writing trailer")
			}
		}
	}

	if err := writeLine(cw.w, nil); err != nil {
		return errors.Wrap(err, "writing last trailer line")
	}

	return nil
}

// readLine reads until CRLF and cuts it.
func readLine(br io.ByteReader) ([]byte, error) {
	line := make([]byte, 0, 16)
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		line = append(line, c)
		if len(line) > maxLineLength {
			return nil, ErrLineTooLong
		}

		if bytes.HasSuffix(line, rule.CRLF) {
			return line[:len(line)-2], nil
		}
	}
}

func writeLine(w io.Writer, line []byte) error {
	r := bytes.NewReader(append(line, rule.CRLF...))

	_, err := io.Copy(w, r)
	if err != nil {
		return errors.Wrap(err, "writing line")
	}

	return nil
}
