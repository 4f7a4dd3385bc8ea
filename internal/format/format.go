// Package format holds the display helpers shared by templates and the CLI.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ericyum/tour-agent-frontend/internal/search"
)

const backendDateLayout = "20060102"

// FmtDate renders a yyyyMMdd date for lang. Empty input yields "-" and
// unparseable input is returned unchanged.
// Example: FmtDate("20250718", "ko") => "2025년 7월 18일"
func FmtDate(s, lang string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	t, err := time.Parse(backendDateLayout, s)
	if err != nil {
		return s
	}
	switch strings.ToLower(lang) {
	case "en":
		return t.Format("Jan 2, 2006")
	default:
		return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day())
	}
}

// FmtDateRange renders a festival period, tolerating either end being unknown.
func FmtDateRange(start, end, lang string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		if strings.ToLower(lang) == "en" {
			return "Dates TBA"
		}
		return "날짜 미정"
	case start == "":
		return "~ " + FmtDate(end, lang)
	case end == "":
		return FmtDate(start, lang) + " ~"
	}
	return FmtDate(start, lang) + " ~ " + FmtDate(end, lang)
}

// Badge is a status label with its CSS classes.
type Badge struct {
	Label string
	Class string
}

var badges = map[string]map[search.Status]Badge{
	"ko": {
		search.StatusOngoing:  {Label: "진행중", Class: "badge badge-ongoing"},
		search.StatusUpcoming: {Label: "진행 예정", Class: "badge badge-upcoming"},
		search.StatusEnded:    {Label: "종료", Class: "badge badge-ended"},
		search.StatusAll:      {Label: "미정", Class: "badge badge-unknown"},
	},
	"en": {
		search.StatusOngoing:  {Label: "Ongoing", Class: "badge badge-ongoing"},
		search.StatusUpcoming: {Label: "Upcoming", Class: "badge badge-upcoming"},
		search.StatusEnded:    {Label: "Ended", Class: "badge badge-ended"},
		search.StatusAll:      {Label: "TBA", Class: "badge badge-unknown"},
	},
}

// FestivalStatus classifies a festival relative to today. Missing dates give
// the "unknown" badge.
func FestivalStatus(start, end string, today time.Time, lang string) Badge {
	set, ok := badges[strings.ToLower(lang)]
	if !ok {
		set = badges["ko"]
	}
	status, ok := search.StatusOn(strings.TrimSpace(start), strings.TrimSpace(end), today)
	if !ok {
		return set[search.StatusAll]
	}
	return set[status]
}

// Truncate shortens text to max runes, appending "...".
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

// Distance renders metres as kilometres with two decimals.
func Distance(metres float64) string {
	return fmt.Sprintf("%.2f km", metres/1000)
}

// Score renders a ranking or sentiment score.
func Score(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Number groups digits for lang.
// Example: Number(12345, "ko") => "12,345"
func Number(n int, lang string) string {
	tag := language.Korean
	if strings.ToLower(lang) == "en" {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprintf("%d", n)
}
