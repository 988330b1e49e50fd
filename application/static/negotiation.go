package static

import (
	"strconv"
	"strings"

	"hunk/application/http/semantic"
	"hunk/application/util/rule"
)

type Encoding string

const (
	EncodingIdentity Encoding = "identity"
	EncodingGzip     Encoding = "gzip"
)

// NegotiateEncoding picks gzip when Accept-Encoding gives it, or "*", a nonzero weight.
// An explicit gzip entry wins over "*".
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.5.3
func NegotiateEncoding(h *semantic.Headers) Encoding {
	elems, ok := h.Values("Accept-Encoding")
	if !ok {
		return EncodingIdentity
	}

	var gzipWeight, anyWeight *float64
	for _, elem := range elems {
		coding, params := rule.CutParams(elem)
		weight := qvalue(params)

		switch strings.ToLower(coding) {
		case "gzip", "x-gzip":
			gzipWeight = &weight
		case "*":
			anyWeight = &weight
		}
	}

	switch {
	case gzipWeight != nil:
		if *gzipWeight > 0 {
			return EncodingGzip
		}
	case anyWeight != nil:
		if *anyWeight > 0 {
			return EncodingGzip
		}
	}
	return EncodingIdentity
}

// qvalue defaults to 1. Malformed weights count as 0.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.4.2
func qvalue(params map[string]string) float64 {
	raw, ok := params["q"]
	if !ok {
		return 1
	}

	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q < 0 || q > 1 {
		return 0
	}
	return q
}

// shouldCompress reports whether the representation of name is eligible for gzip.
func shouldCompress(policy *GzipPolicy, res *Resource, name string, negotiated Encoding) bool {
	if policy == nil || negotiated != EncodingGzip {
		return false
	}
	if res.Len() < policy.Threshold {
		return false
	}

	if res.ContentType().Compressible {
		return true
	}

	ext := extension(name)
	for _, also := range policy.AlsoExtensions {
		if ext != "" && strings.EqualFold(strings.TrimPrefix(also, "."), ext) {
			return true
		}
	}
	return false
}
