package rule

import (
	"bytes"
	"strings"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if IsAlpha(c) || IsDigit(c) {
			continue
		}

		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}

		return false
	}

	return true
}

// Unquote unquotes token if it was quoted with double quotes.
// If quoted string includes escaped character, it will be un-escaped.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4
func Unquote(token []byte) []byte {
	quoted := false
	if len(token) >= 2 {
		first, last := 0, len(token)-1
		if token[first] == DQUOTE && token[last] == DQUOTE {
			token = token[first+1 : last]
			quoted = true
		}
	}

	if !quoted {
		return bytes.Clone(token)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(token)))
	for idx := 0; idx < len(token); idx++ {
		c := token[idx]
		if c == '\\' && idx+1 < len(token) {
			// quoted-pair
			idx++
			c = token[idx]
		}
		buf.WriteByte(c)
	}

	return buf.Bytes()
}

// SplitList splits a comma-separated field value into its elements.
// Commas inside quoted strings do not split, quotes are preserved,
// and empty elements are dropped.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
func SplitList(value string) []string {
	elems := make([]string, 0)

	quoted, escaped := false, false
	start := 0
	for idx := 0; idx < len(value); idx++ {
		c := value[idx]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == DQUOTE:
			quoted = !quoted
		case c == ',' && !quoted:
			elems = appendElem(elems, value[start:idx])
			start = idx + 1
		}
	}

	return appendElem(elems, value[start:])
}

func appendElem(elems []string, elem string) []string {
	elem = strings.TrimFunc(elem, IsOWS)
	if elem == "" {
		return elems
	}
	return append(elems, elem)
}

// CutParams splits "name;param;param" into its trimmed head and parameters.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.6
func CutParams(elem string) (head string, params map[string]string) {
	parts := strings.Split(elem, ";")
	head = strings.TrimFunc(parts[0], IsOWS)

	params = make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		name, value, _ := strings.Cut(p, "=")
		name = strings.ToLower(strings.TrimFunc(name, IsOWS))
		if name == "" {
			continue
		}
		value = strings.TrimFunc(value, IsOWS)
		params[name] = string(Unquote([]byte(value)))
	}

	return head, params
}
