package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

const (
	instrumentationName = "github.com/ericyum/tour-agent-frontend/internal/backend"
	maxErrorBody        = 1 << 16
	defaultAllLabel     = "전체"
)

var statusLabels = map[search.Status]string{
	search.StatusOngoing:  "축제 진행중",
	search.StatusUpcoming: "진행 예정",
	search.StatusEnded:    "종료된 축제",
}

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises an HTTPService.
type Option func(*HTTPService)

// WithAllLabel sets the backend's spelling of the "no restriction" sentinel.
func WithAllLabel(label string) Option {
	return func(s *HTTPService) {
		if strings.TrimSpace(label) != "" {
			s.allLabel = label
		}
	}
}

// WithTimeout bounds every request. Zero, the default, leaves duration to the
// caller's context; analysis endpoints can run for minutes.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPService) {
		s.timeout = d
	}
}

// HTTPService implements Service against the backend's REST endpoints.
type HTTPService struct {
	base     *url.URL
	client   HTTPClient
	allLabel string
	timeout  time.Duration

	reads  singleflight.Group
	tracer trace.Tracer
	calls  metric.Int64Counter
}

// NewHTTPService constructs a Service rooted at baseURL (including any path
// prefix such as /api). A nil client gets an instrumented http.Client without
// a timeout.
func NewHTTPService(baseURL string, client HTTPClient, opts ...Option) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("backend: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	meter := otel.Meter(instrumentationName)
	calls, err := meter.Int64Counter("backend.calls", metric.WithDescription("Backend calls by operation and outcome."))
	if err != nil {
		return nil, fmt.Errorf("backend: create counter: %w", err)
	}

	s := &HTTPService{
		base:     parsed,
		client:   client,
		allLabel: defaultAllLabel,
		tracer:   otel.Tracer(instrumentationName),
		calls:    calls,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Areas implements Service.
func (s *HTTPService) Areas(ctx context.Context) ([]string, error) {
	var payload struct {
		Areas []string `json:"areas"`
	}
	if err := s.get(ctx, "areas", "config/areas", nil, &payload); err != nil {
		return nil, err
	}
	return s.options(payload.Areas), nil
}

// SubAreas implements Service.
func (s *HTTPService) SubAreas(ctx context.Context, area string) ([]string, error) {
	var payload struct {
		SubAreas []string `json:"sigungus"`
	}
	query := url.Values{"area": {s.wire(area)}}
	if err := s.get(ctx, "sub_areas", "config/sigungus", query, &payload); err != nil {
		return nil, err
	}
	return s.options(payload.SubAreas), nil
}

// MainCategories implements Service.
func (s *HTTPService) MainCategories(ctx context.Context) ([]string, error) {
	var payload struct {
		Categories []string `json:"main_categories"`
	}
	if err := s.get(ctx, "main_categories", "config/categories", nil, &payload); err != nil {
		return nil, err
	}
	return s.options(payload.Categories), nil
}

// MediumCategories implements Service.
func (s *HTTPService) MediumCategories(ctx context.Context, mainCategory string) ([]string, error) {
	var payload struct {
		Categories []string `json:"medium_categories"`
	}
	query := url.Values{"main_cat": {s.wire(mainCategory)}}
	if err := s.get(ctx, "medium_categories", "config/categories/medium", query, &payload); err != nil {
		return nil, err
	}
	return s.options(payload.Categories), nil
}

// SmallCategories implements Service.
func (s *HTTPService) SmallCategories(ctx context.Context, mainCategory, mediumCategory string) ([]string, error) {
	var payload struct {
		Categories []string `json:"small_categories"`
	}
	query := url.Values{
		"main_cat":   {s.wire(mainCategory)},
		"medium_cat": {s.wire(mediumCategory)},
	}
	if err := s.get(ctx, "small_categories", "config/categories/small", query, &payload); err != nil {
		return nil, err
	}
	return s.options(payload.Categories), nil
}

type searchRequest struct {
	Area      string `json:"area"`
	Sigungu   string `json:"sigungu"`
	MainCat   string `json:"main_cat"`
	MediumCat string `json:"medium_cat"`
	SmallCat  string `json:"small_cat"`
	Status    string `json:"status"`
	Page      int    `json:"page"`
}

// Search implements Service.
func (s *HTTPService) Search(ctx context.Context, filters search.Filters) (search.Results, error) {
	filters = filters.Normalize()
	body := searchRequest{
		Area:      s.wire(filters.Area),
		Sigungu:   s.wire(filters.SubArea),
		MainCat:   s.wire(filters.MainCategory),
		MediumCat: s.wire(filters.MediumCategory),
		SmallCat:  s.wire(filters.SmallCategory),
		Status:    s.statusLabel(filters.Status),
		Page:      filters.Page,
	}
	var payload search.Results
	if err := s.post(ctx, "search", "festivals/search", body, &payload); err != nil {
		return search.Results{}, err
	}
	if payload.Festivals == nil {
		payload.Festivals = []search.Festival{}
	}
	return payload, nil
}

// Festival implements Service.
func (s *HTTPService) Festival(ctx context.Context, title string) (FestivalDetail, error) {
	var payload FestivalDetail
	if err := s.get(ctx, "festival", entityPath("festivals", title), nil, &payload); err != nil {
		return FestivalDetail{}, err
	}
	return payload, nil
}

// Details implements Service.
func (s *HTTPService) Details(ctx context.Context, kind itinerary.Kind, title string) (Details, error) {
	var collection string
	switch kind {
	case itinerary.KindCourse:
		collection = "courses"
	case itinerary.KindFacility:
		collection = "facilities"
	case itinerary.KindFestival:
		detail, err := s.Festival(ctx, title)
		if err != nil {
			return nil, err
		}
		return detail.Details, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	var payload struct {
		Details Details `json:"details"`
	}
	if err := s.get(ctx, string(kind), entityPath(collection, title), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Details, nil
}

// Trend implements Service.
func (s *HTTPService) Trend(ctx context.Context, title string) (Trend, error) {
	var payload Trend
	err := s.get(ctx, "trend", entityPath("festivals", title, "trend"), nil, &payload)
	return payload, err
}

// Sentiment implements Service.
func (s *HTTPService) Sentiment(ctx context.Context, title string, numReviews int) (Sentiment, error) {
	var payload Sentiment
	query := url.Values{"num_reviews": {strconv.Itoa(numReviews)}}
	err := s.get(ctx, "sentiment", entityPath("festivals", title, "sentiment"), query, &payload)
	return payload, err
}

// Images implements Service.
func (s *HTTPService) Images(ctx context.Context, title string, numBlogs int) ([]string, error) {
	var payload struct {
		URLs []string `json:"image_urls"`
	}
	query := url.Values{"num_blogs": {strconv.Itoa(numBlogs)}}
	if err := s.get(ctx, "images", entityPath("festivals", title, "images"), query, &payload); err != nil {
		return nil, err
	}
	return payload.URLs, nil
}

// WordCloud implements Service.
func (s *HTTPService) WordCloud(ctx context.Context, title string, numReviews int) (WordCloud, error) {
	var payload WordCloud
	query := url.Values{"num_reviews": {strconv.Itoa(numReviews)}}
	err := s.get(ctx, "wordcloud", entityPath("festivals", title, "wordcloud"), query, &payload)
	return payload, err
}

// ReviewSummary implements Service.
func (s *HTTPService) ReviewSummary(ctx context.Context, title string, numReviews int) (string, error) {
	var payload struct {
		Summary string `json:"summary"`
	}
	query := url.Values{"num_reviews": {strconv.Itoa(numReviews)}}
	if err := s.get(ctx, "review_summary", entityPath("festivals", title, "review-summary"), query, &payload); err != nil {
		return "", err
	}
	return payload.Summary, nil
}

// Precautions implements Service.
func (s *HTTPService) Precautions(ctx context.Context, title string) (string, error) {
	var payload struct {
		Precautions string `json:"precautions"`
	}
	if err := s.get(ctx, "precautions", entityPath("festivals", title, "precautions"), nil, &payload); err != nil {
		return "", err
	}
	return payload.Precautions, nil
}

// Render implements Service.
func (s *HTTPService) Render(ctx context.Context, title string) (Rendering, error) {
	var payload Rendering
	err := s.post(ctx, "render", entityPath("festivals", title, "render"), nil, &payload)
	return payload, err
}

// Rank implements Service.
func (s *HTTPService) Rank(ctx context.Context, titles []string, numReviews, topN int) (Ranking, error) {
	body := struct {
		Festivals  []string `json:"festivals"`
		NumReviews int      `json:"num_reviews"`
		TopN       int      `json:"top_n"`
	}{Festivals: titles, NumReviews: numReviews, TopN: topN}
	var payload Ranking
	err := s.post(ctx, "rank", "festivals/ranking", body, &payload)
	return payload, err
}

// ValidateCourse implements Service.
func (s *HTTPService) ValidateCourse(ctx context.Context, items []itinerary.Item, duration string) (string, error) {
	if items == nil {
		items = []itinerary.Item{}
	}
	body := struct {
		Course   []itinerary.Item `json:"course"`
		Duration string           `json:"duration"`
	}{Course: items, Duration: duration}
	var payload struct {
		Result string `json:"validation_result"`
	}
	if err := s.post(ctx, "validate_course", "course/validate", body, &payload); err != nil {
		return "", err
	}
	return payload.Result, nil
}

// Nearby implements Service.
func (s *HTTPService) Nearby(ctx context.Context, q NearbyQuery) (Nearby, error) {
	var payload Nearby
	err := s.post(ctx, "nearby", "nearby/search", q, &payload)
	return payload, err
}

// get issues a GET. Identical concurrent reads share one round trip.
func (s *HTTPService) get(ctx context.Context, op, endpoint string, query url.Values, dst any) error {
	target := s.resolve(endpoint, query)
	ch := s.reads.DoChan(target, func() (any, error) {
		// Detached so one caller going away does not fail the others.
		shared := context.WithoutCancel(ctx)
		return s.roundTrip(shared, op, http.MethodGet, target, nil)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return s.decode(op, res.Val.([]byte), dst)
	}
}

func (s *HTTPService) post(ctx context.Context, op, endpoint string, payload, dst any) error {
	var body []byte
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("backend: %s: encode payload: %w", op, err)
		}
		body = buf.Bytes()
	}
	data, err := s.roundTrip(ctx, op, http.MethodPost, s.resolve(endpoint, nil), body)
	if err != nil {
		return err
	}
	return s.decode(op, data, dst)
}

func (s *HTTPService) roundTrip(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("backend.op", op), attribute.String("http.request.method", method))

	logger := requestctx.Logger(ctx)
	start := time.Now()

	data, status, err := s.exchange(ctx, op, method, target, body)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("backend call failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
	} else {
		logger.Debug("backend call", zap.String("op", op), zap.Duration("latency", time.Since(start)))
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	s.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", outcome)))
	return data, err
}

func (s *HTTPService) exchange(ctx context.Context, op, method, target string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("backend: %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("backend: %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errorFromResponse(op, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("backend: %s: read body: %w", op, err)
	}
	return data, resp.StatusCode, nil
}

func (s *HTTPService) decode(op string, data []byte, dst any) error {
	if dst == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("backend: %s: decode response: %w", op, err)
	}
	return nil
}

func (s *HTTPService) resolve(endpoint string, query url.Values) string {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		ref = &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	}
	u := s.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// wire maps the client sentinel onto the backend's label.
func (s *HTTPService) wire(value string) string {
	if value == "" || value == search.All {
		return s.allLabel
	}
	return value
}

func (s *HTTPService) statusLabel(status search.Status) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return s.allLabel
}

// options maps the backend's sentinel back to search.All, keeps it first and
// drops blanks and duplicates.
func (s *HTTPService) options(values []string) []string {
	out := []string{search.All}
	seen := map[string]struct{}{search.All: {}}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == s.allLabel {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func entityPath(collection string, title string, rest ...string) string {
	parts := append([]string{collection, url.PathEscape(strings.TrimSpace(title))}, rest...)
	return strings.Join(parts, "/")
}

func errorFromResponse(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Op: op, Status: resp.StatusCode}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		apiErr.Code = strings.TrimSpace(payload.Code)
		if apiErr.Code == "" {
			apiErr.Code = strings.TrimSpace(payload.Error)
		}
		apiErr.Message = detailText(payload.Detail)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(payload.Message)
		}
	}
	if apiErr.Message == "" && len(body) > 0 && !json.Valid(body) {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// detailText flattens a detail field that may be a string or a list of
// validation errors with "msg" entries.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, entry := range list {
			if entry.Msg != "" {
				msgs = append(msgs, entry.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(raw))
}
