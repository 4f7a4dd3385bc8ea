// Package backend talks to the festival analysis backend. Every method maps to
// one backend operation; nothing is cached beyond collapsing identical
// in-flight reads.
package backend

import (
	"context"

	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

// Service is the full set of backend operations the client consumes.
type Service interface {
	Areas(ctx context.Context) ([]string, error)
	SubAreas(ctx context.Context, area string) ([]string, error)
	MainCategories(ctx context.Context) ([]string, error)
	MediumCategories(ctx context.Context, mainCategory string) ([]string, error)
	SmallCategories(ctx context.Context, mainCategory, mediumCategory string) ([]string, error)

	Search(ctx context.Context, filters search.Filters) (search.Results, error)

	Festival(ctx context.Context, title string) (FestivalDetail, error)
	// Details returns the record for a course or facility. Festivals go through Festival.
	Details(ctx context.Context, kind itinerary.Kind, title string) (Details, error)

	Trend(ctx context.Context, title string) (Trend, error)
	Sentiment(ctx context.Context, title string, numReviews int) (Sentiment, error)
	Images(ctx context.Context, title string, numBlogs int) ([]string, error)
	WordCloud(ctx context.Context, title string, numReviews int) (WordCloud, error)
	ReviewSummary(ctx context.Context, title string, numReviews int) (string, error)
	Precautions(ctx context.Context, title string) (string, error)
	Render(ctx context.Context, title string) (Rendering, error)
	Rank(ctx context.Context, titles []string, numReviews, topN int) (Ranking, error)

	ValidateCourse(ctx context.Context, items []itinerary.Item, duration string) (string, error)
	Nearby(ctx context.Context, q NearbyQuery) (Nearby, error)
}
