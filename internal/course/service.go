// Package course implements the itinerary-wide actions: AI validation, nearby
// recommendations around the first stop, and festival ranking. Preconditions
// are checked here so that an invalid request never reaches the backend.
package course

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
)

var (
	// ErrEmptyItinerary is returned when an action needs at least one item.
	ErrEmptyItinerary = errors.New("course: itinerary is empty")
	// ErrInvalidDuration is returned for a trip length outside Durations.
	ErrInvalidDuration = errors.New("course: invalid duration")
	// ErrMissingLocation is returned when the first item has no coordinates.
	ErrMissingLocation = errors.New("course: first item has no location")
	// ErrRankSelection is returned when fewer than two festivals are selected.
	ErrRankSelection = errors.New("course: select at least two festivals to rank")
	// ErrInvalidService is returned by NewService without a backend.
	ErrInvalidService = errors.New("course: backend service is required")
)

// Durations lists the trip lengths the validator understands.
var Durations = []string{"당일치기", "1박 2일", "2박 3일", "3박 4일", "4박 5일"}

// DefaultDuration is preselected in the validation form.
const DefaultDuration = "1박 2일"

const (
	// MaxTopN caps how many festivals a ranking returns.
	MaxTopN       = 5
	minNumReviews = 1
	maxNumReviews = 10
	// DefaultRadiusKm is the nearby search radius when none is given.
	DefaultRadiusKm = 5
	maxRadiusKm     = 20
)

// Backend is the subset of backend.Service the course actions use.
type Backend interface {
	ValidateCourse(ctx context.Context, items []itinerary.Item, duration string) (string, error)
	Nearby(ctx context.Context, q backend.NearbyQuery) (backend.Nearby, error)
	Rank(ctx context.Context, titles []string, numReviews, topN int) (backend.Ranking, error)
}

// Service checks preconditions and forwards course actions to the backend.
type Service struct {
	backend Backend
}

// NewService wires a Service.
func NewService(b Backend) (*Service, error) {
	if b == nil {
		return nil, ErrInvalidService
	}
	return &Service{backend: b}, nil
}

// ParseDuration validates a duration label. Empty selects DefaultDuration.
func ParseDuration(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDuration, nil
	}
	for _, d := range Durations {
		if d == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDuration, s)
}

// Validate asks the backend to review the itinerary for a trip of duration.
// The report is markdown.
func (s *Service) Validate(ctx context.Context, items []itinerary.Item, duration string) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyItinerary
	}
	d, err := ParseDuration(duration)
	if err != nil {
		return "", err
	}
	report, err := s.backend.ValidateCourse(ctx, items, d)
	if err != nil {
		return "", fmt.Errorf("course: validate: %w", err)
	}
	return report, nil
}

// Nearby finds recommendations within radiusKm of the first item. Zero selects
// DefaultRadiusKm; other values are clamped to [1, 20].
func (s *Service) Nearby(ctx context.Context, items []itinerary.Item, radiusKm int) (backend.Nearby, error) {
	if len(items) == 0 {
		return backend.Nearby{}, ErrEmptyItinerary
	}
	first := items[0]
	lat, lon, ok := first.Coordinates()
	if !ok {
		requestctx.Logger(ctx).Debug("nearby skipped", zap.String("title", first.Title))
		return backend.Nearby{}, fmt.Errorf("%w: %q", ErrMissingLocation, first.Title)
	}
	q := backend.NearbyQuery{
		Latitude:          lat,
		Longitude:         lon,
		Radius:            ClampRadiusKm(radiusKm) * 1000,
		CurrentFestivalID: first.ContentID(),
	}
	nearby, err := s.backend.Nearby(ctx, q)
	if err != nil {
		return backend.Nearby{}, fmt.Errorf("course: nearby: %w", err)
	}
	return nearby, nil
}

// Rank compares the selected festivals. topN is clamped to
// [1, min(MaxTopN, len(titles))] and numReviews to [1, 10].
func (s *Service) Rank(ctx context.Context, titles []string, numReviews, topN int) (backend.Ranking, error) {
	selected := UniqueTitles(titles)
	if len(selected) < 2 {
		return backend.Ranking{}, ErrRankSelection
	}
	ranking, err := s.backend.Rank(ctx, selected, ClampNumReviews(numReviews), ClampTopN(topN, len(selected)))
	if err != nil {
		return backend.Ranking{}, fmt.Errorf("course: rank: %w", err)
	}
	return ranking, nil
}

// ClampTopN bounds topN for a selection of n festivals.
func ClampTopN(topN, n int) int {
	upper := MaxTopN
	if n < upper {
		upper = n
	}
	if topN > upper {
		topN = upper
	}
	if topN < 1 {
		topN = 1
	}
	return topN
}

// ClampNumReviews bounds the per-festival review sample.
func ClampNumReviews(n int) int {
	if n < minNumReviews {
		return minNumReviews
	}
	if n > maxNumReviews {
		return maxNumReviews
	}
	return n
}

// ClampRadiusKm bounds a nearby radius. Zero selects DefaultRadiusKm.
func ClampRadiusKm(km int) int {
	switch {
	case km == 0:
		return DefaultRadiusKm
	case km < 1:
		return 1
	case km > maxRadiusKm:
		return maxRadiusKm
	}
	return km
}

// UniqueTitles trims titles and drops blanks and repeats, keeping order.
func UniqueTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	seen := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
