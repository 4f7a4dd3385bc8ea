package view

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/format"
	"github.com/ericyum/tour-agent-frontend/internal/i18n"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/richtext"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

func funcMap(bundle *i18n.Bundle, now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"t": bundle.T,
		"tf": func(lang, key string, args ...any) string {
			return fmt.Sprintf(bundle.T(lang, key), args...)
		},
		"option": func(lang, value string) string {
			if value == search.All || value == "" {
				return bundle.T(lang, "filters.all")
			}
			return value
		},
		"statusLabel": func(lang string, s search.Status) string {
			return bundle.T(lang, "status."+strings.ToLower(string(s)))
		},
		"fmtDate":   format.FmtDate,
		"dateRange": format.FmtDateRange,
		"badge": func(start, end, lang string) format.Badge {
			return format.FestivalStatus(start, end, now(), lang)
		},
		"truncate": format.Truncate,
		"distance": format.Distance,
		"score":    format.Score,
		"number":   format.Number,
		"markdown": richtext.Markdown,
		"safeHTML": richtext.HTML,
		"plain":    richtext.PlainText,
		"pre":      richtext.Preformatted,
		"pngData":  pngData,
		"imageSrc": imageSrc,
		"pathEscape": func(s string) string {
			return url.PathEscape(s)
		},
		"pages": func(current, total int) []int {
			return search.PageWindow(current, total, 5)
		},
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"scope":      scope,
		"num":        num,
		"entityHref": entityHref,
		"nearbyGroup": func(kind string, entries []backend.Details) NearbyGroup {
			return NearbyGroup{Kind: kind, Entries: entries}
		},
	}
}

// NearbyGroup is one kind of nearby recommendation.
type NearbyGroup struct {
	Kind    string
	Entries []backend.Details
}

// scope hands a partial the page chrome with different data.
func scope(p Page, data any) Page {
	p.Data = data
	return p
}

// num reads a numeric detail field, zero when missing.
func num(d backend.Details, key string) float64 {
	v, _ := d.Float(key)
	return v
}

// entityHref links an entity by kind. Unknown kinds yield "".
func entityHref(kind any, title string) string {
	var prefix string
	switch fmt.Sprint(kind) {
	case string(itinerary.KindFestival):
		prefix = "/festivals/"
	case string(itinerary.KindCourse):
		prefix = "/courses/"
	case string(itinerary.KindFacility):
		prefix = "/facilities/"
	default:
		return ""
	}
	return prefix + url.PathEscape(title)
}

// pngData turns a bare base64 PNG into a data URI. Anything that is not plain
// base64 yields an empty URL.
func pngData(b64 string) template.URL {
	b64 = strings.TrimSpace(b64)
	if b64 == "" || strings.HasPrefix(b64, "data:") {
		return imageSrc(b64)
	}
	for _, c := range b64 {
		if !isBase64(c) {
			return ""
		}
	}
	return template.URL("data:image/png;base64," + b64)
}

// imageSrc accepts http(s) URLs, site-relative paths and image data URIs.
func imageSrc(s string) template.URL {
	s = strings.TrimSpace(s)
	switch {
	case s == "", strings.HasPrefix(s, "//"):
		return ""
	case strings.HasPrefix(s, "data:image/"):
		payload := s[strings.IndexByte(s, ',')+1:]
		for _, c := range payload {
			if !isBase64(c) {
				return ""
			}
		}
		return template.URL(s)
	case strings.HasPrefix(s, "https://"), strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "/"):
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		return template.URL(u.String())
	}
	return ""
}

func isBase64(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '+' || c == '/' || c == '=' || c == '\n' || c == '\r'
}
