package backend

import (
	"context"
	"embed"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

//go:embed fixtures/catalog.yaml
var fixtures embed.FS

// 1x1 transparent PNG used wherever the backend would return a generated image.
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// Catalog is the fixture data set behind StaticService.
type Catalog struct {
	PageSize   int              `yaml:"page_size"`
	Areas      []CatalogArea    `yaml:"areas"`
	Categories []CatalogMain    `yaml:"categories"`
	Festivals  []CatalogEntry   `yaml:"festivals"`
	Courses    []CatalogEntry   `yaml:"courses"`
	Facilities []CatalogEntry   `yaml:"facilities"`
	Analysis   CatalogNarrative `yaml:"analysis"`
}

// CatalogArea is a province with its districts.
type CatalogArea struct {
	Name     string   `yaml:"name"`
	SubAreas []string `yaml:"sub_areas"`
}

// CatalogMain is a top-level category.
type CatalogMain struct {
	Name   string          `yaml:"name"`
	Medium []CatalogMedium `yaml:"medium"`
}

// CatalogMedium is a second-level category.
type CatalogMedium struct {
	Name  string   `yaml:"name"`
	Small []string `yaml:"small"`
}

// CatalogEntry is one festival, course or facility.
type CatalogEntry struct {
	Area           string         `yaml:"area"`
	SubArea        string         `yaml:"sub_area"`
	MainCategory   string         `yaml:"main_category"`
	MediumCategory string         `yaml:"medium_category"`
	SmallCategory  string         `yaml:"small_category"`
	Details        map[string]any `yaml:"details"`
}

// CatalogNarrative holds canned analysis text.
type CatalogNarrative struct {
	Summary          string `yaml:"summary"`
	Precautions      string `yaml:"precautions"`
	Validation       string `yaml:"validation"`
	Ranking          string `yaml:"ranking"`
	TrendMessage     string `yaml:"trend_message"`
	WordCloudMessage string `yaml:"wordcloud_message"`
}

// LoadCatalog parses the embedded fixture catalog.
func LoadCatalog() (*Catalog, error) {
	data, err := fixtures.ReadFile("fixtures/catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("backend: read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("backend: parse catalog: %w", err)
	}
	if catalog.PageSize <= 0 {
		catalog.PageSize = 12
	}
	return &catalog, nil
}

// StaticService answers every Service call from a Catalog. It backs local
// development and tests when no backend is reachable.
type StaticService struct {
	catalog *Catalog
	now     func() time.Time
}

// NewStaticService builds a StaticService. A nil catalog loads the embedded one.
func NewStaticService(catalog *Catalog, now func() time.Time) (*StaticService, error) {
	if catalog == nil {
		loaded, err := LoadCatalog()
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	if now == nil {
		now = time.Now
	}
	return &StaticService{catalog: catalog, now: now}, nil
}

// Areas implements Service.
func (s *StaticService) Areas(context.Context) ([]string, error) {
	out := []string{search.All}
	for _, area := range s.catalog.Areas {
		out = append(out, area.Name)
	}
	return out, nil
}

// SubAreas implements Service.
func (s *StaticService) SubAreas(_ context.Context, area string) ([]string, error) {
	out := []string{search.All}
	for _, a := range s.catalog.Areas {
		if a.Name == area {
			out = append(out, a.SubAreas...)
		}
	}
	return out, nil
}

// MainCategories implements Service.
func (s *StaticService) MainCategories(context.Context) ([]string, error) {
	out := []string{search.All}
	for _, c := range s.catalog.Categories {
		out = append(out, c.Name)
	}
	return out, nil
}

// MediumCategories implements Service.
func (s *StaticService) MediumCategories(_ context.Context, mainCategory string) ([]string, error) {
	out := []string{search.All}
	for _, c := range s.catalog.Categories {
		if c.Name != mainCategory {
			continue
		}
		for _, m := range c.Medium {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

// SmallCategories implements Service.
func (s *StaticService) SmallCategories(_ context.Context, mainCategory, mediumCategory string) ([]string, error) {
	out := []string{search.All}
	for _, c := range s.catalog.Categories {
		if c.Name != mainCategory {
			continue
		}
		for _, m := range c.Medium {
			if m.Name == mediumCategory {
				out = append(out, m.Small...)
			}
		}
	}
	return out, nil
}

// Search implements Service.
func (s *StaticService) Search(ctx context.Context, filters search.Filters) (search.Results, error) {
	if err := ctx.Err(); err != nil {
		return search.Results{}, err
	}
	filters = filters.Normalize()
	today := s.now()

	var matched []search.Festival
	for _, entry := range s.catalog.Festivals {
		if !matches(filters.Area, entry.Area) || !matches(filters.SubArea, entry.SubArea) ||
			!matches(filters.MainCategory, entry.MainCategory) || !matches(filters.MediumCategory, entry.MediumCategory) ||
			!matches(filters.SmallCategory, entry.SmallCategory) {
			continue
		}
		d := Details(entry.Details)
		if filters.Status != search.StatusAll {
			status, ok := search.StatusOn(d.String("eventstartdate"), d.String("eventenddate"), today)
			if !ok || status != filters.Status {
				continue
			}
		}
		matched = append(matched, search.Festival{
			Title:     d.Title(),
			Image:     d.String("firstimage"),
			StartDate: d.String("eventstartdate"),
			EndDate:   d.String("eventenddate"),
		})
	}

	size := s.catalog.PageSize
	total := len(matched)
	totalPages := (total + size - 1) / size
	start := (filters.Page - 1) * size
	page := []search.Festival{}
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		page = matched[start:end]
	}
	return search.Results{Festivals: page, Total: total, Page: filters.Page, TotalPages: totalPages}, nil
}

// Festival implements Service.
func (s *StaticService) Festival(_ context.Context, title string) (FestivalDetail, error) {
	entry, ok := find(s.catalog.Festivals, title)
	if !ok {
		return FestivalDetail{}, notFound("festival", title)
	}
	d := Details(entry.Details)
	return FestivalDetail{Details: d, BestImagePath: d.String("firstimage")}, nil
}

// Details implements Service.
func (s *StaticService) Details(ctx context.Context, kind itinerary.Kind, title string) (Details, error) {
	var entries []CatalogEntry
	switch kind {
	case itinerary.KindFestival:
		detail, err := s.Festival(ctx, title)
		return detail.Details, err
	case itinerary.KindCourse:
		entries = s.catalog.Courses
	case itinerary.KindFacility:
		entries = s.catalog.Facilities
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	entry, ok := find(entries, title)
	if !ok {
		return nil, notFound(string(kind), title)
	}
	return Details(entry.Details), nil
}

// Trend implements Service.
func (s *StaticService) Trend(_ context.Context, title string) (Trend, error) {
	if _, ok := find(s.catalog.Festivals, title); !ok {
		return Trend{}, notFound("trend", title)
	}
	uri := "data:image/png;base64," + placeholderPNG
	return Trend{YearlyTrend: uri, EventTrend: uri, Message: s.catalog.Analysis.TrendMessage}, nil
}

// Sentiment implements Service.
func (s *StaticService) Sentiment(_ context.Context, title string, numReviews int) (Sentiment, error) {
	if _, ok := find(s.catalog.Festivals, title); !ok {
		return Sentiment{}, notFound("sentiment", title)
	}
	if numReviews < 1 {
		numReviews = 1
	}
	seed := seedOf(title)
	positive := numReviews*3 + int(seed%5)
	negative := numReviews + int(seed%3)
	neutral := numReviews / 2

	results := make([]BlogResult, 0, numReviews)
	for i := 0; i < numReviews; i++ {
		score := 3.0 + float64((int(seed)+i)%20)/10
		results = append(results, BlogResult{
			Title:             fmt.Sprintf("%s 후기 #%d", title, i+1),
			Link:              fmt.Sprintf("https://blog.example.com/%d/%d", seed%1000, i+1),
			SentimentScore:    Text(fmt.Sprintf("%.2f", score)),
			PositiveSentences: Text(fmt.Sprint(3 + i%4)),
			NegativeSentences: Text(fmt.Sprint(i % 3)),
			PositiveRatio:     Text(fmt.Sprintf("%.1f", 70+float64(i%4)*5)),
			NegativeRatio:     Text(fmt.Sprintf("%.1f", 30-float64(i%4)*5)),
			Summary:           "<b>긍정</b>: 분위기가 좋았어요",
			Satisfaction:      Text(fmt.Sprintf("%.1f", score)),
		})
	}

	return Sentiment{
		Summary:       s.catalog.Analysis.Summary,
		PositiveCount: positive,
		NegativeCount: negative,
		NeutralCount:  neutral,
		Charts: SentimentCharts{
			Donut:        &DonutData{Positive: float64(positive), Negative: float64(negative)},
			Satisfaction: &SeriesData{Labels: []string{"매우 불만족", "불만족", "보통", "만족", "매우 만족"}, Counts: []float64{1, 2, 4, 8, 5}},
			Absolute:     &SeriesData{Labels: []string{"0-1", "1-2", "2-3", "3-4", "4-5"}, Counts: []float64{0, 1, 3, 9, 7}},
			Outlier:      &OutlierData{Min: 1.2, Q1: 3.1, Median: 3.8, Q3: 4.4, Max: 5, LowerBound: 1.15, UpperBound: 6.35, Outliers: []float64{}},
		},
		BlogResults:        results,
		PositiveKeywords:   "<span>야경</span> <span>분위기</span>",
		NegativeSummary:    "주차 공간이 부족하다는 의견이 있습니다.",
		OutlierDescription: "이상치가 발견되지 않았습니다.",
		TotalScoreCount:    numReviews,
		OverallSummary:     s.catalog.Analysis.Summary,
	}, nil
}

// Images implements Service.
func (s *StaticService) Images(_ context.Context, title string, numBlogs int) ([]string, error) {
	entry, ok := find(s.catalog.Festivals, title)
	if !ok {
		return nil, notFound("images", title)
	}
	image := Details(entry.Details).String("firstimage")
	if image == "" {
		return []string{}, nil
	}
	out := make([]string, 0, numBlogs)
	for i := 0; i < numBlogs; i++ {
		out = append(out, fmt.Sprintf("%s?blog=%d", image, i+1))
	}
	return out, nil
}

// WordCloud implements Service.
func (s *StaticService) WordCloud(_ context.Context, title string, _ int) (WordCloud, error) {
	if _, ok := find(s.catalog.Festivals, title); !ok {
		return WordCloud{}, notFound("wordcloud", title)
	}
	return WordCloud{Image: placeholderPNG, Message: s.catalog.Analysis.WordCloudMessage}, nil
}

// ReviewSummary implements Service.
func (s *StaticService) ReviewSummary(_ context.Context, title string, _ int) (string, error) {
	if _, ok := find(s.catalog.Festivals, title); !ok {
		return "", notFound("review_summary", title)
	}
	return s.catalog.Analysis.Summary, nil
}

// Precautions implements Service.
func (s *StaticService) Precautions(_ context.Context, title string) (string, error) {
	if _, ok := find(s.catalog.Festivals, title); !ok {
		return "", notFound("precautions", title)
	}
	return s.catalog.Analysis.Precautions, nil
}

// Render implements Service.
func (s *StaticService) Render(_ context.Context, title string) (Rendering, error) {
	if _, ok := find(s.catalog.Festivals, title); !ok {
		return Rendering{}, notFound("render", title)
	}
	return Rendering{
		Representative: &RenderedImage{ImageBase64: placeholderPNG, Prompt: title + " 대표 이미지"},
		Conditional: []RenderedImage{
			{ImageBase64: placeholderPNG, Prompt: title + " 야간"},
			{ImageBase64: placeholderPNG, Prompt: title + " 주간"},
		},
	}, nil
}

// Rank implements Service.
func (s *StaticService) Rank(_ context.Context, titles []string, _ int, topN int) (Ranking, error) {
	ranked := make([]RankedFestival, 0, len(titles))
	for _, title := range titles {
		ranked = append(ranked, RankedFestival{Title: title, Score: float64(seedOf(title)%500) / 100})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return Ranking{Festivals: ranked, Analysis: s.catalog.Analysis.Ranking}, nil
}

// ValidateCourse implements Service.
func (s *StaticService) ValidateCourse(_ context.Context, items []itinerary.Item, duration string) (string, error) {
	var b strings.Builder
	b.WriteString(s.catalog.Analysis.Validation)
	fmt.Fprintf(&b, "\n- 기간: %s\n- 항목 수: %d\n", duration, len(items))
	return b.String(), nil
}

// Nearby implements Service.
func (s *StaticService) Nearby(_ context.Context, q NearbyQuery) (Nearby, error) {
	collect := func(entries []CatalogEntry) []Details {
		out := []Details{}
		for _, entry := range entries {
			d := Details(entry.Details)
			if q.CurrentFestivalID != "" && d.String("contentid") == q.CurrentFestivalID {
				continue
			}
			lat, okLat := d.Float("mapy")
			lon, okLon := d.Float("mapx")
			if !okLat || !okLon {
				continue
			}
			dist := haversine(q.Latitude, q.Longitude, lat, lon)
			if dist > float64(q.Radius) {
				continue
			}
			copied := make(Details, len(d)+1)
			for k, v := range d {
				copied[k] = v
			}
			copied["dist"] = math.Round(dist)
			out = append(out, copied)
		}
		sort.SliceStable(out, func(i, j int) bool {
			di, _ := out[i].Float("dist")
			dj, _ := out[j].Float("dist")
			return di < dj
		})
		return out
	}
	return Nearby{
		Facilities: collect(s.catalog.Facilities),
		Courses:    collect(s.catalog.Courses),
		Festivals:  collect(s.catalog.Festivals),
	}, nil
}

func matches(filter, value string) bool {
	return filter == search.All || filter == value
}

func find(entries []CatalogEntry, title string) (CatalogEntry, bool) {
	for _, entry := range entries {
		if Details(entry.Details).Title() == title {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}

func notFound(op, title string) error {
	return &APIError{Op: op, Status: 404, Message: fmt.Sprintf("'%s'을(를) 찾을 수 없습니다.", title)}
}

func seedOf(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// haversine returns the great-circle distance in metres.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}
