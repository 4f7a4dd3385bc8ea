package observability

import (
	"net/url"
	"unicode"
)

const defaultStringLimit = 256

// sanitizeString drops control characters and caps the rune count.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}

	cleaned := make([]rune, 0, min(len(value), limit))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		cleaned = append(cleaned, r)
		if len(cleaned) == limit {
			break
		}
	}
	return string(cleaned)
}

// SanitizeRoute decodes percent-escapes so festival titles read as text in
// logs, then strips control characters. Undecodable paths are kept as sent.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	if decoded, err := url.PathUnescape(route); err == nil {
		route = decoded
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod removes control characters in HTTP methods.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}
