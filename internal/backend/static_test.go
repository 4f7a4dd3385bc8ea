package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

func newStatic(t *testing.T) *backend.StaticService {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC) }
	svc, err := backend.NewStaticService(nil, now)
	require.NoError(t, err)
	return svc
}

func TestStaticServiceImplementsService(t *testing.T) {
	t.Parallel()

	var _ backend.Service = newStatic(t)
	var _ backend.Service = (*backend.HTTPService)(nil)
}

func TestStaticServiceOptionsStartWithAll(t *testing.T) {
	t.Parallel()

	svc := newStatic(t)
	ctx := context.Background()

	areas, err := svc.Areas(ctx)
	require.NoError(t, err)
	require.Equal(t, search.All, areas[0])
	require.Contains(t, areas, "서울특별시")

	subAreas, err := svc.SubAreas(ctx, "부산광역시")
	require.NoError(t, err)
	require.Equal(t, []string{search.All, "해운대구", "수영구"}, subAreas)

	subAreas, err = svc.SubAreas(ctx, search.All)
	require.NoError(t, err)
	require.Equal(t, []string{search.All}, subAreas)

	medium, err := svc.MediumCategories(ctx, "자연")
	require.NoError(t, err)
	require.Equal(t, []string{search.All, "자연관광지"}, medium)

	small, err := svc.SmallCategories(ctx, "축제/공연/행사", "공연/행사")
	require.NoError(t, err)
	require.Equal(t, []string{search.All, "전통공연", "음악회"}, small)
}

func TestStaticServiceSearch(t *testing.T) {
	t.Parallel()

	svc := newStatic(t)
	ctx := context.Background()

	all, err := svc.Search(ctx, search.DefaultFilters())
	require.NoError(t, err)
	require.Equal(t, 7, all.Total)
	require.Equal(t, 1, all.TotalPages)

	cases := []struct {
		name   string
		field  search.Field
		value  string
		titles []string
	}{
		{name: "ongoing", field: search.FieldStatus, value: "ONGOING", titles: []string{"서울빛초롱축제"}},
		{name: "upcoming", field: search.FieldStatus, value: "UPCOMING", titles: []string{"안동국제탈춤페스티벌"}},
		{name: "area", field: search.FieldArea, value: "경상남도", titles: []string{"진해군항제", "진주남강유등축제"}},
		{name: "category", field: search.FieldMainCategory, value: "자연", titles: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filters, err := search.UpdateField(search.DefaultFilters(), tc.field, tc.value)
			require.NoError(t, err)
			results, err := svc.Search(ctx, filters)
			require.NoError(t, err)

			var got []string
			for _, f := range results.Festivals {
				got = append(got, f.Title)
			}
			require.Equal(t, tc.titles, got)
		})
	}

	ended, err := search.UpdateField(search.DefaultFilters(), search.FieldStatus, "ENDED")
	require.NoError(t, err)
	results, err := svc.Search(ctx, ended)
	require.NoError(t, err)
	require.Equal(t, 4, results.Total)

	beyond, err := svc.Search(ctx, search.DefaultFilters().WithPage(3))
	require.NoError(t, err)
	require.NotNil(t, beyond.Festivals)
	require.Empty(t, beyond.Festivals)
	require.Equal(t, 7, beyond.Total)
}

func TestStaticServicePagination(t *testing.T) {
	t.Parallel()

	catalog, err := backend.LoadCatalog()
	require.NoError(t, err)
	catalog.PageSize = 3

	svc, err := backend.NewStaticService(catalog, nil)
	require.NoError(t, err)

	page, err := svc.Search(context.Background(), search.DefaultFilters().WithPage(3))
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Festivals, 1)
	require.Equal(t, "진주남강유등축제", page.Festivals[0].Title)
}

func TestStaticServiceDetailsNotFound(t *testing.T) {
	t.Parallel()

	svc := newStatic(t)
	ctx := context.Background()

	festival, err := svc.Festival(ctx, "보령머드축제")
	require.NoError(t, err)
	require.Equal(t, "1234567", festival.Details.String("contentid"))

	course, err := svc.Details(ctx, itinerary.KindCourse, "청계천 야경 산책 코스")
	require.NoError(t, err)
	require.Len(t, course.List("subpoints"), 2)

	_, err = svc.Details(ctx, itinerary.KindFacility, "없는 시설")
	require.True(t, backend.IsNotFound(err))

	_, err = svc.Trend(ctx, "없는 축제")
	require.True(t, backend.IsNotFound(err))
}

func TestStaticServiceNearby(t *testing.T) {
	t.Parallel()

	svc := newStatic(t)
	nearby, err := svc.Nearby(context.Background(), backend.NearbyQuery{
		Latitude:          37.5692,
		Longitude:         126.9779,
		Radius:            5000,
		CurrentFestivalID: "2738501",
	})
	require.NoError(t, err)
	require.Len(t, nearby.Facilities, 1)
	require.Equal(t, "청계천 공영주차장", nearby.Facilities[0].Title())
	dist, ok := nearby.Facilities[0].Float("dist")
	require.True(t, ok)
	require.Greater(t, dist, 0.0)
	require.Less(t, dist, 1000.0)
	require.Len(t, nearby.Courses, 1)
	require.Empty(t, nearby.Festivals)

	far, err := svc.Nearby(context.Background(), backend.NearbyQuery{Latitude: 33.0, Longitude: 124.0, Radius: 1000})
	require.NoError(t, err)
	require.True(t, far.Empty())
}

func TestStaticServiceRankIsDeterministic(t *testing.T) {
	t.Parallel()

	svc := newStatic(t)
	titles := []string{"보령머드축제", "진해군항제", "서울빛초롱축제"}

	first, err := svc.Rank(context.Background(), titles, 5, 2)
	require.NoError(t, err)
	second, err := svc.Rank(context.Background(), titles, 5, 2)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first.Festivals, 2)
	require.Equal(t, 1, first.Festivals[0].Rank)
	require.GreaterOrEqual(t, first.Festivals[0].Score, first.Festivals[1].Score)
	require.NotEmpty(t, first.Analysis)
}

func TestStaticServiceSentimentHonoursReviewCount(t *testing.T) {
	t.Parallel()

	svc := newStatic(t)
	sentiment, err := svc.Sentiment(context.Background(), "보령머드축제", 3)
	require.NoError(t, err)
	require.Len(t, sentiment.BlogResults, 3)
	require.NotNil(t, sentiment.Charts.Donut)
	require.Equal(t, 3, sentiment.TotalScoreCount)
}
