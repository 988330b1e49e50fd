package static

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRange(t *testing.T) {
	satisfiable := func(start, end uint64) RequestedRange {
		return RequestedRange{Outcome: RangeSatisfiable, Range: ByteRange{Start: start, End: end}}
	}
	notSatisfiable := RequestedRange{Outcome: RangeNotSatisfiable}

	testcases := []struct {
		desc     string
		value    string
		present  bool
		length   uint64
		expected RequestedRange
	}{
		{desc: "absent", present: false, length: 10, expected: RequestedRange{Outcome: RangeNone}},
		{desc: "from to", value: "bytes=2-5", present: true, length: 10, expected: satisfiable(2, 5)},
		{desc: "single byte", value: "bytes=0-0", present: true, length: 10, expected: satisfiable(0, 0)},
		{desc: "end clamped", value: "bytes=5-100", present: true, length: 10, expected: satisfiable(5, 9)},
		{desc: "huge end clamped", value: "bytes=5-99999999999999999999999", present: true, length: 10, expected: satisfiable(5, 9)},
		{desc: "all from last byte", value: "bytes=9-", present: true, length: 10, expected: satisfiable(9, 9)},
		{desc: "all from past the end", value: "bytes=10-", present: true, length: 10, expected: notSatisfiable},
		{desc: "from to past the end", value: "bytes=10-20", present: true, length: 10, expected: notSatisfiable},
		{desc: "start after end", value: "bytes=5-2", present: true, length: 10, expected: notSatisfiable},
		{desc: "suffix", value: "bytes=-3", present: true, length: 10, expected: satisfiable(7, 9)},
		{desc: "suffix longer than resource", value: "bytes=-30", present: true, length: 10, expected: satisfiable(0, 9)},
		{desc: "suffix of zero", value: "bytes=-0", present: true, length: 10, expected: notSatisfiable},
		{desc: "only first of many", value: "bytes=0-1, 4-5", present: true, length: 10, expected: satisfiable(0, 1)},
		{desc: "unit is case-insensitive", value: "Bytes=1-2", present: true, length: 10, expected: satisfiable(1, 2)},
		{desc: "empty resource", value: "bytes=0-0", present: true, length: 0, expected: notSatisfiable},
		{desc: "empty resource suffix", value: "bytes=-1", present: true, length: 0, expected: notSatisfiable},
		{desc: "unknown unit", value: "items=0-1", present: true, length: 10, expected: notSatisfiable},
		{desc: "no unit", value: "0-1", present: true, length: 10, expected: notSatisfiable},
		{desc: "empty set", value: "bytes=", present: true, length: 10, expected: notSatisfiable},
		{desc: "empty value", value: "", present: true, length: 10, expected: notSatisfiable},
		{desc: "no dash", value: "bytes=5", present: true, length: 10, expected: notSatisfiable},
		{desc: "not a number", value: "bytes=a-b", present: true, length: 10, expected: notSatisfiable},
		{desc: "signed", value: "bytes=+1-2", present: true, length: 10, expected: notSatisfiable},
		{desc: "only dash", value: "bytes=-", present: true, length: 10, expected: notSatisfiable},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveRange(tc.value, tc.present, tc.length))
		})
	}
}

func TestResolveRangeClamping(t *testing.T) {
	const length = 16

	for start := uint64(0); start < length+2; start++ {
		for end := start; end < length+4; end++ {
			value := fmt.Sprintf("bytes=%d-%d", start, end)
			got := ResolveRange(value, true, length)

			if start <= length-1 {
				assert.Equal(t, RangeSatisfiable, got.Outcome, value)
				assert.Equal(t, ByteRange{Start: start, End: min(end, length-1)}, got.Range, value)
			} else {
				assert.Equal(t, RangeNotSatisfiable, got.Outcome, value)
			}
		}
	}
}

func TestContentRange(t *testing.T) {
	assert.Equal(t, "bytes 9-9/10", contentRange(ByteRange{Start: 9, End: 9}, 10))
	assert.Equal(t, "bytes */10", unsatisfiedRange(10))
	assert.Equal(t, uint64(1), ByteRange{Start: 9, End: 9}.Len())
}
