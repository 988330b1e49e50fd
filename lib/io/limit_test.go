package iolib

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitReader(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		n        uint
		expected string
	}{
		{desc: "shorter limit", input: "Hello, World", n: 5, expected: "Hello"},
		{desc: "longer limit", input: "Hi", n: 5, expected: "Hi"},
		{desc: "zero limit", input: "Hi", n: 0, expected: ""},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			b, err := io.ReadAll(LimitReader(strings.NewReader(tc.input), tc.n))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(b))
		})
	}
}

func TestExactReader(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		n        uint
		expected string
		err      error
	}{
		{desc: "exact length", input: "Hello", n: 5, expected: "Hello"},
		{desc: "longer source", input: "Hello, World", n: 5, expected: "Hello"},
		{desc: "zero length", input: "Hi", n: 0, expected: ""},
		{desc: "short source", input: "Hi", n: 5, expected: "Hi", err: io.ErrUnexpectedEOF},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			b, err := io.ReadAll(ExactReader(strings.NewReader(tc.input), tc.n))
			assert.Equal(t, tc.expected, string(b))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
