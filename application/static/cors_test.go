package static

import (
	"testing"

	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCors(t *testing.T) {
	anyOrigin := &CorsPolicy{}
	allowList := &CorsPolicy{Origins: []string{"https://example.com"}}

	testcases := []struct {
		desc     string
		policy   *CorsPolicy
		method   semantic.Method
		headers  map[string][]string
		expected map[string][]string
		status   *status.Status
	}{
		{
			desc:     "disabled",
			policy:   nil,
			method:   semantic.MethodGet,
			headers:  map[string][]string{"Origin": {"https://example.com"}},
			expected: map[string][]string{},
		},
		{
			desc:     "same origin",
			policy:   anyOrigin,
			method:   semantic.MethodGet,
			headers:  nil,
			expected: map[string][]string{},
		},
		{
			desc:    "any origin",
			policy:  anyOrigin,
			method:  semantic.MethodGet,
			headers: map[string][]string{"Origin": {"https://a.example"}},
			expected: map[string][]string{
				"Access-Control-Allow-Origin":   {"*"},
				"Access-Control-Expose-Headers": {exposedHeaders},
			},
		},
		{
			desc:    "any origin with credentials",
			policy:  anyOrigin,
			method:  semantic.MethodGet,
			headers: map[string][]string{"Origin": {"https://a.example"}, "Cookie": {"a=b"}},
			expected: map[string][]string{
				"Access-Control-Allow-Origin":   {"*"},
				"Access-Control-Expose-Headers": {exposedHeaders},
			},
		},
		{
			desc:    "listed origin",
			policy:  allowList,
			method:  semantic.MethodGet,
			headers: map[string][]string{"Origin": {"https://EXAMPLE.com"}},
			expected: map[string][]string{
				"Access-Control-Allow-Origin":      {"https://EXAMPLE.com"},
				"Access-Control-Allow-Credentials": {"true"},
				"Access-Control-Expose-Headers":    {exposedHeaders},
				"Vary":                             {"Origin"},
			},
		},
		{
			desc:     "unlisted origin",
			policy:   allowList,
			method:   semantic.MethodGet,
			headers:  map[string][]string{"Origin": {"https://evil.example"}},
			expected: map[string][]string{},
		},
		{
			desc:     "unlisted origin with cookie",
			policy:   allowList,
			method:   semantic.MethodGet,
			headers:  map[string][]string{"Origin": {"https://evil.example"}, "Cookie": {"a=b"}},
			expected: map[string][]string{},
			status:   &status.Forbidden,
		},
		{
			desc:     "unlisted origin with authorization",
			policy:   allowList,
			method:   semantic.MethodHead,
			headers:  map[string][]string{"Origin": {"https://evil.example"}, "Authorization": {"Bearer x"}},
			expected: map[string][]string{},
			status:   &status.Forbidden,
		},
		{
			desc:   "preflight with any origin",
			policy: anyOrigin,
			method: semantic.MethodOptions,
			headers: map[string][]string{
				"Origin":                         {"https://a.example"},
				"Access-Control-Request-Method":  {"GET"},
				"Access-Control-Request-Headers": {"Range, If-None-Match"},
			},
			expected: map[string][]string{
				"Access-Control-Allow-Origin":  {"*"},
				"Access-Control-Allow-Methods": {allowedMethods},
				"Access-Control-Allow-Headers": {"Range, If-None-Match"},
				"Access-Control-Max-Age":       {"86400"},
			},
			status: &status.OK,
		},
		{
			desc:   "preflight with listed origin",
			policy: allowList,
			method: semantic.MethodOptions,
			headers: map[string][]string{
				"Origin":                        {"https://example.com"},
				"Access-Control-Request-Method": {"GET"},
			},
			expected: map[string][]string{
				"Access-Control-Allow-Origin":      {"https://example.com"},
				"Access-Control-Allow-Credentials": {"true"},
				"Access-Control-Allow-Methods":     {allowedMethods},
				"Access-Control-Max-Age":           {"86400"},
				"Vary":                             {"Origin"},
			},
			status: &status.OK,
		},
		{
			desc:   "preflight with unlisted origin",
			policy: allowList,
			method: semantic.MethodOptions,
			headers: map[string][]string{
				"Origin":                        {"https://evil.example"},
				"Access-Control-Request-Method": {"GET"},
			},
			expected: map[string][]string{},
			status:   &status.OK,
		},
		{
			desc:    "plain options",
			policy:  anyOrigin,
			method:  semantic.MethodOptions,
			headers: map[string][]string{"Origin": {"https://a.example"}},
			expected: map[string][]string{
				"Access-Control-Allow-Origin":   {"*"},
				"Access-Control-Expose-Headers": {exposedHeaders},
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			req := &semantic.Request{
				Method:  tc.method,
				Message: semantic.Message{Headers: semantic.NewHeaders(tc.headers)},
			}

			h, st := EvaluateCors(tc.policy, req)
			assert.Equal(t, tc.expected, h.Fields())
			assert.Equal(t, tc.status, st)
		})
	}
}
