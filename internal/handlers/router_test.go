package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/handlers"
	"github.com/ericyum/tour-agent-frontend/internal/i18n"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	mw "github.com/ericyum/tour-agent-frontend/internal/middleware"
	"github.com/ericyum/tour-agent-frontend/internal/view"
)

var today = func() time.Time { return time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC) }

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, opts ...func(*handlers.Deps)) *harness {
	t.Helper()
	static, err := backend.NewStaticService(nil, today)
	require.NoError(t, err)
	courses, err := course.NewService(static)
	require.NoError(t, err)
	registry, err := itinerary.NewRegistry(itinerary.RegistryDeps{Storage: itinerary.NewMemoryStorage()})
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	bundle, err := i18n.Load("", "ko", []string{"ko", "en"})
	require.NoError(t, err)
	renderer, err := view.New(view.Options{Bundle: bundle, Now: today})
	require.NoError(t, err)
	sessions, err := mw.NewSessionManager(mw.SessionConfig{HashKey: []byte(strings.Repeat("h", 32))})
	require.NoError(t, err)

	deps := handlers.Deps{
		Backend:     static,
		Course:      courses,
		Itineraries: registry,
		Renderer:    renderer,
		Bundle:      bundle,
		Sessions:    sessions,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	router, err := handlers.NewRouter(deps)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{t: t, srv: srv, client: client}
}

func (h *harness) do(method, path string, form url.Values, htmx bool) *http.Response {
	h.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(h.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) json(method, path, payload string) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(payload))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func festivalPath(title string) string {
	return "/festivals/" + url.PathEscape(title)
}

func TestNewRouterRequiresDeps(t *testing.T) {
	_, err := handlers.NewRouter(handlers.Deps{})
	require.ErrorIs(t, err, handlers.ErrInvalidDeps)
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "ok", payload["status"])

	resp = h.do(http.MethodGet, "/readyz", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHomeShowsFilters(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	require.Equal(t, 1, doc.Find(`select[name="area"]`).Length())
	require.True(t, doc.Find(`select[name="subArea"]`).Is("[disabled]"))
	require.Equal(t, "ko", resp.Header.Get("Content-Language"))
}

func TestSearchPageListsFestivals(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/search", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	require.Equal(t, 7, doc.Find("#results .cards li").Length())
	require.Contains(t, doc.Find(`select[name="area"]`).Text(), "경상남도")
	require.Equal(t, "진행중", strings.TrimSpace(doc.Find(`#results a[href="`+festivalPath("서울빛초롱축제")+`"]`).Parent().Find(".badge-ongoing").Text()))
}

func TestFilterUpdateCascadesAndSearchUsesIt(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodPost, "/search/filters?field=area", url.Values{"area": {"경상남도"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	sub := doc.Find(`select[name="subArea"]`)
	require.False(t, sub.Is("[disabled]"))
	require.Contains(t, sub.Text(), "진주시")

	resp = h.do(http.MethodPost, "/search/filters", url.Values{"field": {"subArea"}, "value": {"진주시"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodPost, "/search", url.Values{}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = document(t, resp)
	require.Equal(t, 1, doc.Find(".cards li").Length())
	require.Contains(t, doc.Find(".cards h3").Text(), "진주남강유등축제")

	// changing the parent drops the district
	resp = h.do(http.MethodPost, "/search/filters", url.Values{"field": {"area"}, "value": {"경상남도"}}, true)
	doc = document(t, resp)
	selected, _ := doc.Find(`select[name="subArea"] option[selected]`).Attr("value")
	require.Equal(t, "ALL", selected)
}

func TestFilterUpdateRejectsUnknownField(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodPost, "/search/filters", url.Values{"field": {"colour"}, "value": {"red"}}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, document(t, resp).Find(".inline-error").Text(), "알 수 없는 검색 조건")
}

func TestPlainSearchPostRedirects(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodPost, "/search", url.Values{"status": {"UPCOMING"}}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/search", resp.Header.Get("Location"))

	doc := document(t, h.do(http.MethodGet, "/search", nil, false))
	require.Equal(t, 1, doc.Find("#results .cards li").Length())
	require.Contains(t, doc.Find("#results h3").Text(), "안동국제탈춤페스티벌")
}

func TestRankNeedsTwoFestivals(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodPost, "/search/rank", url.Values{"title": {"진해군항제", "진해군항제"}}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, document(t, resp).Text(), "2개 이상")

	resp = h.do(http.MethodPost, "/search/rank", url.Values{
		"title": {"진해군항제", "보령머드축제", "서울빛초롱축제"},
		"top_n": {"9"},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, document(t, resp).Find("ol li").Length())

	resp = h.do(http.MethodPost, "/search/rank", url.Values{
		"title": {"진해군항제", " 진해군항제 ", "보령머드축제"},
		"top_n": {"9"},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := document(t, resp).Find("ol[data-top-n]")
	require.Equal(t, 2, list.Find("li").Length())
	topN, _ := list.Attr("data-top-n")
	require.Equal(t, "2", topN)
}

func TestFestivalPage(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, festivalPath("서울빛초롱축제"), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	require.Equal(t, "서울빛초롱축제", doc.Find("h1").First().Text())
	require.Equal(t, 8, doc.Find(`.tabs button[role="tab"]`).Length())
	// overview markup is flattened to text
	require.Contains(t, doc.Find("article p").Text(), "빛의 축제")
	require.Equal(t, 0, doc.Find("article b").Length())

	resp = h.do(http.MethodGet, festivalPath("없는축제"), nil, false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPanels(t *testing.T) {
	h := newHarness(t)
	base := festivalPath("서울빛초롱축제") + "/panels/"

	resp := h.do(http.MethodGet, base+"nearby?radius_km=5", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	require.Contains(t, doc.Text(), "청계천 공영주차장")
	require.Contains(t, doc.Text(), "km")

	resp = h.do(http.MethodGet, base+"rendering", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = document(t, resp)
	require.Equal(t, 0, doc.Find("img").Length())
	require.Equal(t, 1, doc.Find(`button[hx-get$="?run=1"]`).Length())

	resp = h.do(http.MethodGet, base+"rendering?run=1", nil, true)
	require.Equal(t, 3, document(t, resp).Find(`img[src^="data:image/png;base64,"]`).Length())

	resp = h.do(http.MethodGet, base+"images?num_blogs=99", nil, true)
	doc = document(t, resp)
	value, _ := doc.Find(`input[name="num_blogs"]`).Attr("value")
	require.Equal(t, "10", value)

	resp = h.do(http.MethodGet, base+"sentiment", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.LessOrEqual(t, document(t, resp).Find("tbody tr").Length(), 5+10)

	resp = h.do(http.MethodGet, base+"weather", nil, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// a failing panel renders inline with a retry
	resp = h.do(http.MethodGet, festivalPath("없는축제")+"/panels/trend", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = document(t, resp)
	require.Equal(t, 1, doc.Find(".inline-error").Length())
}

func TestCourseFlow(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodPost, "/course/items", url.Values{"kind": {"festival"}, "title": {"서울빛초롱축제"}}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/course", resp.Header.Get("Location"))

	resp = h.do(http.MethodPost, "/course/items", url.Values{"kind": {"festival"}, "title": {"서울빛초롱축제"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	require.Contains(t, doc.Text(), "이미 코스에 있습니다")
	require.Equal(t, "1", doc.Find("#course-count").Text())

	resp = h.do(http.MethodPost, "/course/items", url.Values{"kind": {"facility"}, "title": {"청계천 공영주차장"}, "return": {"//evil.example"}}, false)
	require.Equal(t, "/course", resp.Header.Get("Location"))

	resp = h.do(http.MethodGet, "/api/v1/course", nil, false)
	var list struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 2, list.Count)
	require.Equal(t, "서울빛초롱축제", list.Items[0]["title"])
	require.Equal(t, "126.9779", list.Items[0]["mapx"])

	resp = h.do(http.MethodPost, "/course/reorder", url.Values{"from": {"0"}, "to": {"1"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = document(t, resp)
	require.Equal(t, "청계천 공영주차장", doc.Find(".itinerary li strong").First().Text())

	resp = h.do(http.MethodPost, "/course/reorder", url.Values{"from": {"x"}}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.do(http.MethodPost, "/course/validate", url.Values{"duration": {"1박 2일"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, document(t, resp).Text(), "항목 수: 2")

	resp = h.do(http.MethodPost, "/course/validate", url.Values{"duration": {"열흘"}}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.do(http.MethodPost, "/course/nearby", url.Values{"radius_km": {"5"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, document(t, resp).Text(), "청계천 야경 산책 코스")

	resp = h.do(http.MethodPost, "/course/items/remove", url.Values{"title": {"청계천 공영주차장"}}, true)
	require.Equal(t, 1, document(t, resp).Find(".itinerary li").Length())

	resp = h.do(http.MethodPost, "/course/clear", url.Values{}, true)
	doc = document(t, resp)
	require.Equal(t, 0, doc.Find(".itinerary li").Length())
	require.Equal(t, "0", doc.Find("#course-count").Text())

	resp = h.do(http.MethodPost, "/course/validate", url.Values{}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, document(t, resp).Text(), "코스에 장소를 먼저 추가")
}

func TestCourseNearbyNeedsLocation(t *testing.T) {
	h := newHarness(t)
	resp := h.json(http.MethodPost, "/api/v1/course/items", `{"title":"좌표 없는 장소","type":"facility","memo":"x"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(http.MethodPost, "/course/nearby", url.Values{}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, document(t, resp).Text(), "위치 정보가 없습니다")
}

func TestCourseAPI(t *testing.T) {
	h := newHarness(t)

	resp := h.json(http.MethodPost, "/api/v1/course/items", `{"title":"A","extra":"keep"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = h.json(http.MethodPost, "/api/v1/course/items", `{"title":"A","extra":"x"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Items   []map[string]any `json:"items"`
		Changed bool             `json:"changed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.False(t, out.Changed)
	require.Len(t, out.Items, 1)
	require.Equal(t, "keep", out.Items[0]["extra"])

	resp = h.json(http.MethodPost, "/api/v1/course/items", `{"title":"  A ","extra":"y"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out.Items = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.False(t, out.Changed)
	require.Len(t, out.Items, 1)

	resp = h.json(http.MethodPost, "/api/v1/course/items", `{"extra":"no title"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp = h.json(http.MethodPost, "/api/v1/course/items", `{"title":"B","type":"hotel"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp = h.json(http.MethodPost, "/api/v1/course/items", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	h.json(http.MethodPost, "/api/v1/course/items", `{"title":"B"}`)
	resp = h.json(http.MethodPost, "/api/v1/course/reorder", `{"from":1,"to":0}`)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Changed)
	require.Equal(t, "B", out.Items[0]["title"])

	resp = h.json(http.MethodPost, "/api/v1/course/reorder", `{"from":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.json(http.MethodDelete, "/api/v1/course/items/"+url.PathEscape("missing"), "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.False(t, out.Changed)
	require.Len(t, out.Items, 2)

	resp = h.json(http.MethodDelete, "/api/v1/course", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Changed)
	require.Empty(t, out.Items)
}

func TestLocaleSwitch(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/course?hl=en", nil, false)
	require.Equal(t, "en", resp.Header.Get("Content-Language"))
	require.Contains(t, document(t, resp).Text(), "Your course is empty.")

	// remembered by the session
	resp = h.do(http.MethodGet, "/course", nil, false)
	require.Equal(t, "en", resp.Header.Get("Content-Language"))
}

func TestCSRFGuardsForms(t *testing.T) {
	h := newHarness(t, func(d *handlers.Deps) {
		d.CSRF = mw.CSRF(mw.CSRFConfig{Key: []byte(strings.Repeat("c", 32))})
	})
	resp := h.do(http.MethodPost, "/course/clear", url.Values{}, false)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	doc := document(t, h.do(http.MethodGet, "/course", nil, false))
	token, ok := doc.Find(`input[name="csrf_token"]`).First().Attr("value")
	require.True(t, ok)
	require.NotEmpty(t, token)

	resp = h.do(http.MethodPost, "/course/clear", url.Values{"csrf_token": {token}}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/nowhere", nil, false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
