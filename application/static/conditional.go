package static

import (
	"strings"
	"time"

	"hunk/application/http/semantic"
)

// Validators describe the representation that is about to be sent.
type Validators struct {
	// ETag is a strong entity-tag, quotes included.
	ETag         string
	LastModified time.Time
}

// IsNotModified evaluates If-None-Match, then If-Modified-Since when the former is absent.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-13.2.2
func IsNotModified(h *semantic.Headers, v Validators) bool {
	if tags, ok := h.Values("If-None-Match"); ok {
		return matchesAny(tags, v.ETag, weakMatch)
	}

	if since, ok := headerDate(h, "If-Modified-Since"); ok {
		return !v.LastModified.After(since)
	}

	return false
}

// IsPreconditionFailed evaluates If-Match, then If-Unmodified-Since when the former is absent.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-13.2.2
func IsPreconditionFailed(h *semantic.Headers, v Validators) bool {
	if tags, ok := h.Values("If-Match"); ok {
		return !matchesAny(tags, v.ETag, strongMatch)
	}

	if since, ok := headerDate(h, "If-Unmodified-Since"); ok {
		return v.LastModified.After(since)
	}

	return false
}

type entityTag struct {
	weak   bool
	opaque string
}

// parseEntityTag parses [ weak ] opaque-tag, keeping the quotes in opaque.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.8.3
func parseEntityTag(s string) (entityTag, bool) {
	tag := entityTag{}
	if rest, ok := strings.CutPrefix(s, "W/"); ok {
		tag.weak, s = true, rest
	}

	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return entityTag{}, false
	}
	if strings.Contains(s[1:len(s)-1], `"`) {
		return entityTag{}, false
	}

	tag.opaque = s
	return tag, true
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.8.3.2
func weakMatch(a, b entityTag) bool { return a.opaque == b.opaque }

func strongMatch(a, b entityTag) bool {
	return !a.weak && !b.weak && a.opaque == b.opaque
}

func matchesAny(tags []string, current string, match func(a, b entityTag) bool) bool {
	currentTag, ok := parseEntityTag(current)
	if !ok {
		return false
	}

	for _, raw := range tags {
		if raw == "*" {
			return true
		}

		tag, ok := parseEntityTag(raw)
		if ok && match(tag, currentTag) {
			return true
		}
	}
	return false
}

// headerDate ignores values that are not a valid HTTP-date.
func headerDate(h *semantic.Headers, key string) (time.Time, bool) {
	raw, ok := h.Get(key)
	if !ok {
		return time.Time{}, false
	}

	t, err := semantic.ParseDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
