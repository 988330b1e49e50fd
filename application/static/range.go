package static

import (
	"math"
	"strconv"
	"strings"

	"hunk/application/util/rule"
)

type RangeOutcome uint8

const (
	// RangeNone means no Range was requested.
	RangeNone RangeOutcome = iota
	RangeNotSatisfiable
	RangeSatisfiable
)

// ByteRange is inclusive on both ends, as written in Range and Content-Range.
type ByteRange struct {
	Start uint64
	End   uint64
}

func (r ByteRange) Len() uint64 { return r.End - r.Start + 1 }

type RequestedRange struct {
	Outcome RangeOutcome
	// Range is only set when Outcome is RangeSatisfiable.
	Range ByteRange
}

type rangeSpecKind uint8

const (
	rangeFromTo rangeSpecKind = iota
	rangeAllFrom
	rangeLast
)

type rangeSpec struct {
	kind  rangeSpecKind
	first uint64
	last  uint64
}

// ResolveRange classifies the Range field of a request against a resource of length bytes.
// Only the first range of a multi-range request is honored.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-14.2
func ResolveRange(value string, present bool, length uint64) RequestedRange {
	if !present {
		return RequestedRange{Outcome: RangeNone}
	}

	spec, ok := parseRangeSpec(value)
	if !ok || length == 0 {
		return RequestedRange{Outcome: RangeNotSatisfiable}
	}

	maxEnd := length - 1

	var start, end uint64
	switch spec.kind {
	case rangeFromTo:
		start, end = spec.first, min(spec.last, maxEnd)
	case rangeAllFrom:
		start, end = spec.first, maxEnd
	case rangeLast:
		if spec.last == 0 {
			return RequestedRange{Outcome: RangeNotSatisfiable}
		}
		start, end = length-min(spec.last, length), maxEnd
	}

	if start > end || start > maxEnd {
		return RequestedRange{Outcome: RangeNotSatisfiable}
	}

	return RequestedRange{
		Outcome: RangeSatisfiable,
		Range:   ByteRange{Start: start, End: end},
	}
}

// parseRangeSpec returns the first byte-range-spec of a bytes range set.
func parseRangeSpec(value string) (rangeSpec, bool) {
	unit, set, ok := strings.Cut(strings.TrimFunc(value, rule.IsOWS), "=")
	if !ok || !strings.EqualFold(unit, "bytes") {
		return rangeSpec{}, false
	}

	specs := rule.SplitList(set)
	if len(specs) == 0 {
		return rangeSpec{}, false
	}

	first, last, ok := strings.Cut(specs[0], "-")
	if !ok {
		return rangeSpec{}, false
	}

	if first == "" {
		n, ok := parsePos(last)
		return rangeSpec{kind: rangeLast, last: n}, ok
	}

	start, ok := parsePos(first)
	if !ok {
		return rangeSpec{}, false
	}
	if last == "" {
		return rangeSpec{kind: rangeAllFrom, first: start}, true
	}

	end, ok := parsePos(last)
	if !ok {
		return rangeSpec{}, false
	}
	return rangeSpec{kind: rangeFromTo, first: start, last: end}, true
}

// parsePos parses 1*DIGIT. Values too large for uint64 saturate.
func parsePos(s string) (uint64, bool) {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return !rule.IsDigit(r) }) >= 0 {
		return 0, false
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return math.MaxUint64, true
	}
	return n, true
}

// contentRange formats the Content-Range of a satisfiable range.
func contentRange(r ByteRange, length uint64) string {
	return "bytes " + strconv.FormatUint(r.Start, 10) + "-" +
		strconv.FormatUint(r.End, 10) + "/" + strconv.FormatUint(length, 10)
}

// unsatisfiedRange formats the Content-Range of a 416 response.
func unsatisfiedRange(length uint64) string {
	return "bytes */" + strconv.FormatUint(length, 10)
}
