package search

import "time"

const dateLayout = "20060102"

// StatusOn classifies a festival running from start to end (yyyyMMdd) as seen
// on day today. ok is false when either date is missing or malformed.
func StatusOn(start, end string, today time.Time) (status Status, ok bool) {
	from, err := time.ParseInLocation(dateLayout, start, today.Location())
	if err != nil {
		return "", false
	}
	to, err := time.ParseInLocation(dateLayout, end, today.Location())
	if err != nil {
		return "", false
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	switch {
	case day.Before(from):
		return StatusUpcoming, true
	case day.After(to):
		return StatusEnded, true
	default:
		return StatusOngoing, true
	}
}
