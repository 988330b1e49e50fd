package static

import (
	"strings"

	"hunk/application/http/semantic"
	"hunk/application/http/semantic/status"
	"hunk/lib/types/pointer"
)

const (
	allowedMethods  = "GET, HEAD, OPTIONS"
	exposedHeaders  = "ETag, Content-Range, Content-Encoding"
	preflightMaxAge = "86400"
)

// EvaluateCors returns the CORS fields of the response.
// A non-nil status means the request should be answered right away with it and an empty body.
//
// Reference: https://fetch.spec.whatwg.org/#http-cors-protocol
func EvaluateCors(policy *CorsPolicy, req *semantic.Request) (semantic.Headers, *status.Status) {
	h := semantic.NewHeaders(nil)

	origin, ok := req.Headers.Get("Origin")
	if policy == nil || !ok {
		return h, nil
	}

	anyOrigin := len(policy.Origins) == 0
	allowed := anyOrigin || policy.allows(origin)

	allowOrigin := func() {
		if anyOrigin {
			h.Set("Access-Control-Allow-Origin", "*")
			return
		}
		// "*" is never used with credentials.
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	}

	if req.Method == semantic.MethodOptions && req.Headers.Has("Access-Control-Request-Method") {
		if allowed {
			allowOrigin()
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			if requested, ok := req.Headers.Get("Access-Control-Request-Headers"); ok {
				h.Set("Access-Control-Allow-Headers", requested)
			}
			h.Set("Access-Control-Max-Age", preflightMaxAge)
		}
		return h, pointer.To(status.OK)
	}

	if !allowed {
		if req.Headers.Has("Cookie") || req.Headers.Has("Authorization") {
			return h, pointer.To(status.Forbidden)
		}
		// Browsers block the response by themselves.
		return h, nil
	}

	allowOrigin()
	h.Set("Access-Control-Expose-Headers", exposedHeaders)
	return h, nil
}

func (p *CorsPolicy) allows(origin string) bool {
	for _, allowed := range p.Origins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
