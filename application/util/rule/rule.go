package rule

const (
	CR     byte = '\r'
	LF     byte = '\n'
	SP     byte = ' '
	HTAB   byte = '\t'
	VT     byte = 0x0B
	FF     byte = 0x0C
	DQUOTE byte = '"'
)

var (
	OWS         = []byte{SP, HTAB}
	CRLF        = []byte{CR, LF}
	Whitespaces = []byte{SP, HTAB, VT, FF, CR}
)

func IsWhitespace(r rune) bool {
	for _, ws := range Whitespaces {
		if r == rune(ws) {
			return true
		}
	}
	return false
}

func IsOWS(r rune) bool { return r == rune(SP) || r == rune(HTAB) }

func IsAlpha(r rune) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
func IsDigit(r rune) bool { return '0' <= r && r <= '9' }
func IsHex(r rune) bool {
	return IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// Reference: https://datatracker.ietf.org/doc/html/rfc5234#appendix-B.1
func IsVisible(r rune) bool { return 0x21 <= r && r <= 0x7E }
