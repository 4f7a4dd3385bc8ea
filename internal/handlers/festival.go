package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/panels"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
)

// courseButton is the add/remove toggle shown on detail pages.
type courseButton struct {
	Kind     itinerary.Kind
	Title    string
	InCourse bool
	// Added is false when an add hit an existing title.
	Added bool
	Count int
}

type festivalView struct {
	Title  string
	Detail backend.FestivalDetail
	Error  *inlineError
	Tabs   []panels.Tab
	Button courseButton
}

type entityView struct {
	Kind    itinerary.Kind
	Title   string
	Details backend.Details
	Error   *inlineError
	Button  courseButton
}

// panelView carries one analysis tab. Only the field matching Tab is set.
type panelView struct {
	Title    string
	Tab      panels.Tab
	Param    panels.Param
	HasParam bool
	Value    int
	Status   panels.Status
	Error    *inlineError
	Elapsed  time.Duration
	err      error

	Images      []string
	Trend       backend.Trend
	WordCloud   backend.WordCloud
	Sentiment   backend.Sentiment
	Blogs       []backend.BlogResult
	BlogPage    int
	BlogPages   int
	Summary     string
	Precautions string
	Rendering   backend.Rendering
	Nearby      backend.Nearby
	RadiusKm    int
}

// Path is the fragment address of this tab.
func (p panelView) Path() string {
	return "/festivals/" + url.PathEscape(p.Title) + "/panels/" + string(p.Tab)
}

// URL is Path with the tab's knob set to n.
func (p panelView) URL(n int) string {
	u := p.Path()
	if p.HasParam {
		u += "?" + url.Values{p.Param.Name: {strconv.Itoa(n)}}.Encode()
	}
	return u
}

// BlogURL pages through the sentiment blog table.
func (p panelView) BlogURL(page int) string {
	return p.URL(p.Value) + "&blog_page=" + strconv.Itoa(page)
}

func (s *server) festivalPage(w http.ResponseWriter, r *http.Request) {
	title, ok := pathTitle(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	state := panels.Run(r.Context(), func(ctx context.Context) (backend.FestivalDetail, error) {
		return s.backend.Festival(ctx, title)
	})
	switch {
	case state.Status == panels.StatusCanceled:
		return
	case backend.IsNotFound(state.Err):
		s.errorPage(w, r, http.StatusNotFound, state.Err)
		return
	}

	v := festivalView{
		Title:  title,
		Detail: state.Value,
		Tabs:   panels.Tabs,
		Button: s.button(r, itinerary.KindFestival, title),
	}
	if state.Err != nil {
		requestctx.Logger(r.Context()).Warn("festival detail failed", zap.String("title", title), zap.Error(state.Err))
		v.Error = newInlineError(state.Err, r.URL.RequestURI())
	}
	s.renderTitled(w, r, http.StatusOK, "festival", title, v)
}

// entityPage serves course and facility details.
func (s *server) entityPage(kind itinerary.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title, ok := pathTitle(r)
		if !ok {
			s.notFound(w, r)
			return
		}
		state := panels.Run(r.Context(), func(ctx context.Context) (backend.Details, error) {
			return s.backend.Details(ctx, kind, title)
		})
		switch {
		case state.Status == panels.StatusCanceled:
			return
		case backend.IsNotFound(state.Err):
			s.errorPage(w, r, http.StatusNotFound, state.Err)
			return
		}
		v := entityView{
			Kind:    kind,
			Title:   title,
			Details: state.Value,
			Button:  s.button(r, kind, title),
		}
		if state.Err != nil {
			requestctx.Logger(r.Context()).Warn("detail failed", zap.String("kind", string(kind)), zap.Error(state.Err))
			v.Error = newInlineError(state.Err, r.URL.RequestURI())
		}
		s.renderTitled(w, r, http.StatusOK, "entity", title, v)
	}
}

// panel loads one analysis tab. Each tab is requested on its own, so a slow or
// failing tab never holds up the others. The rendering tab only runs when
// asked to with ?run=1.
func (s *server) panel(w http.ResponseWriter, r *http.Request) {
	title, ok := pathTitle(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	tab, err := panels.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		s.fragment(w, r, http.StatusNotFound, "inline-error", newInlineError(err, ""))
		return
	}

	v := panelView{Title: title, Tab: tab, Status: panels.StatusIdle}
	if p, ok := tab.Param(); ok {
		v.Param, v.HasParam = p, true
		v.Value = p.Clamp(queryInt(r, p.Name, 0))
	}
	if tab == panels.TabRendering && r.URL.Query().Get("run") != "1" {
		s.fragment(w, r, http.StatusOK, "panel", v)
		return
	}

	s.loadPanel(r.Context(), &v, queryInt(r, "blog_page", 1))
	if v.Status == panels.StatusCanceled {
		requestctx.Logger(r.Context()).Debug("panel abandoned", zap.String("tab", string(tab)))
		return
	}
	if v.Status == panels.StatusError {
		retry := v.URL(v.Value)
		if tab == panels.TabRendering {
			retry += "?run=1"
		}
		v.Error = newInlineError(v.err, retry)
		requestctx.Logger(r.Context()).Warn("panel failed",
			zap.String("tab", string(tab)), zap.String("title", title), zap.Error(v.err))
	}
	s.fragment(w, r, http.StatusOK, "panel", v)
}

func (s *server) loadPanel(ctx context.Context, v *panelView, blogPage int) {
	title := v.Title
	switch v.Tab {
	case panels.TabImages:
		v.Images = record(v, panels.Run(ctx, func(ctx context.Context) ([]string, error) {
			return s.backend.Images(ctx, title, v.Value)
		}))
	case panels.TabTrend:
		v.Trend = record(v, panels.Run(ctx, func(ctx context.Context) (backend.Trend, error) {
			return s.backend.Trend(ctx, title)
		}))
	case panels.TabWordCloud:
		v.WordCloud = record(v, panels.Run(ctx, func(ctx context.Context) (backend.WordCloud, error) {
			return s.backend.WordCloud(ctx, title, v.Value)
		}))
	case panels.TabSentiment:
		v.Sentiment = record(v, panels.Run(ctx, func(ctx context.Context) (backend.Sentiment, error) {
			return s.backend.Sentiment(ctx, title, v.Value)
		}))
		v.Blogs, v.BlogPages = panels.Paginate(v.Sentiment.BlogResults, blogPage, panels.BlogPageSize)
		v.BlogPage = min(max(blogPage, 1), max(v.BlogPages, 1))
	case panels.TabSummary:
		v.Summary = record(v, panels.Run(ctx, func(ctx context.Context) (string, error) {
			return s.backend.ReviewSummary(ctx, title, v.Value)
		}))
	case panels.TabPrecautions:
		v.Precautions = record(v, panels.Run(ctx, func(ctx context.Context) (string, error) {
			return s.backend.Precautions(ctx, title)
		}))
	case panels.TabRendering:
		v.Rendering = record(v, panels.Run(ctx, func(ctx context.Context) (backend.Rendering, error) {
			return s.backend.Render(ctx, title)
		}))
	case panels.TabNearby:
		v.RadiusKm = v.Value
		v.Nearby = record(v, panels.Run(ctx, func(ctx context.Context) (backend.Nearby, error) {
			return s.festivalNearby(ctx, title, v.Value)
		}))
	}
}

// festivalNearby centres a nearby search on the festival itself.
func (s *server) festivalNearby(ctx context.Context, title string, radiusKm int) (backend.Nearby, error) {
	detail, err := s.backend.Festival(ctx, title)
	if err != nil {
		return backend.Nearby{}, err
	}
	item, err := itinerary.FromDetails(itinerary.KindFestival, detail.Details)
	if err != nil {
		return backend.Nearby{}, err
	}
	return s.course.Nearby(ctx, []itinerary.Item{item}, radiusKm)
}

func record[T any](v *panelView, st panels.State[T]) T {
	v.Status = st.Status
	v.Elapsed = st.Elapsed
	v.err = st.Err
	return st.Value
}

// button reports the course toggle state for an entity.
func (s *server) button(r *http.Request, kind itinerary.Kind, title string) courseButton {
	b := courseButton{Kind: kind, Title: title}
	if st, err := s.store(r); err == nil {
		b.InCourse = st.Contains(title)
		b.Count = st.Len()
	}
	return b
}
