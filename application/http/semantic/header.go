package semantic

import (
	"slices"
	"strings"

	"hunk/application/http"
	"hunk/application/util/rule"
)

// Headers holds field values keyed by canonical field name.
// Every field line is kept as received; list-based fields are split on demand by [Headers.Values].
type Headers struct{ underlying map[string][]string }

func NewHeaders(initial map[string][]string) Headers {
	clone := make(map[string][]string, len(initial))
	for k, v := range initial {
		clone[canonical(k)] = slices.Clone(v)
	}

	return Headers{underlying: clone}
}

// HeadersFrom creates semantic header from raw fields.
// Field lines with the same name are kept in order.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.3
func HeadersFrom(fields []http.Field) Headers {
	h := NewHeaders(nil)
	for _, field := range fields {
		h.Add(string(field.Name), string(field.Value))
	}
	return h
}

// Fields returns all the key-values in the header.
func (h *Headers) Fields() map[string][]string {
	clone := make(map[string][]string, len(h.underlying))
	for k, v := range h.underlying {
		clone[k] = slices.Clone(v)
	}
	return clone
}

// ToRawFields returns one field line per name, sorted by name.
func (h *Headers) ToRawFields() []http.Field {
	keys := make([]string, 0, len(h.underlying))
	for k := range h.underlying {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make([]http.Field, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(h.underlying[k], ", ")
		fields = append(fields, http.Field{Name: []byte(k), Value: []byte(value)})
	}

	return fields
}

// Get assumes the field is a singleton field.
// Even if key has multiple field lines, it will only return the first one.
// For list-based field, use [Headers.Values].
func (h *Headers) Get(key string) (value string, ok bool) {
	v, ok := h.underlying[canonical(key)]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func (h *Headers) Has(key string) bool {
	_, ok := h.underlying[canonical(key)]
	return ok
}

// Values returns the elements of a list-based field, across all of its field lines.
// Quoted elements keep their quotes.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
func (h *Headers) Values(key string) (values []string, ok bool) {
	lines, ok := h.underlying[canonical(key)]
	if !ok {
		return nil, false
	}

	values = make([]string, 0, len(lines))
	for _, line := range lines {
		values = append(values, rule.SplitList(line)...)
	}
	return values, true
}

// Set assumes the field is a singleton field.
// It overwrites existing value instead of appending to it.
// For list-based field, use [Headers.Add].
func (h *Headers) Set(key, value string) {
	if h.underlying == nil {
		h.underlying = make(map[string][]string)
	}
	h.underlying[canonical(key)] = []string{value}
}

func (h *Headers) Add(key, value string) {
	if h.underlying == nil {
		h.underlying = make(map[string][]string)
	}
	key = canonical(key)
	h.underlying[key] = append(h.underlying[key], value)
}

func (h *Headers) Del(key string) {
	delete(h.underlying, canonical(key))
}

// Merge sets every field of other, replacing the fields of the same name.
func (h *Headers) Merge(other Headers) {
	for k, v := range other.underlying {
		if h.underlying == nil {
			h.underlying = make(map[string][]string)
		}
		h.underlying[k] = slices.Clone(v)
	}
}

func (h *Headers) Len() int { return len(h.underlying) }

func canonical(s string) string {
	if rule.IsValidToken(s) {
		s = toCanonicalFieldName(s)
	}
	return s
}

// This only works for valid token.
func toCanonicalFieldName(s string) string {
	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}
