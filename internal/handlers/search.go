package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	mw "github.com/ericyum/tour-agent-frontend/internal/middleware"
	"github.com/ericyum/tour-agent-frontend/internal/panels"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

// filterOrder is the parent-first order form fields are applied in, so a
// submitted child survives the reset its parent triggers.
var filterOrder = []search.Field{
	search.FieldArea,
	search.FieldSubArea,
	search.FieldMainCategory,
	search.FieldMediumCategory,
	search.FieldSmallCategory,
	search.FieldStatus,
}

type filterSelect struct {
	Field   search.Field
	Value   string
	Options []string
	Enabled bool
	// Failed marks a list that could not be loaded; only the current value is offered.
	Failed bool
}

// LabelKey is the i18n key of the select's label.
func (f filterSelect) LabelKey() string {
	return "filters." + string(f.Field)
}

type filtersView struct {
	Filters  search.Filters
	Selects  []filterSelect
	Statuses []search.Status
	// Inline submits through htmx into the results on the same page.
	Inline bool
}

type resultsView struct {
	Results search.Results
	Error   *inlineError
	// Searched is false until the first search of the session.
	Searched bool
	MaxTopN  int
}

type rankingView struct {
	Ranking    backend.Ranking
	NumReviews int
	TopN       int
	Error      *inlineError
}

type searchView struct {
	Filters filtersView
	Results resultsView
	Ranking *rankingView
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSession(r)
	s.render(w, r, http.StatusOK, "home", "", s.loadFilters(r.Context(), sess.CurrentFilters()))
}

// searchPage shows the filter form and one page of results for the session's
// filters. ?page= moves between pages without touching the criteria.
func (s *server) searchPage(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSession(r)
	filters := sess.CurrentFilters()
	if page := queryInt(r, "page", 0); page > 0 && page != filters.Page {
		filters = filters.WithPage(page)
		sess.SetFilters(filters)
	}

	var (
		filtersOut filtersView
		results    panels.State[search.Results]
	)
	g := panels.NewGroup(r.Context(), 0)
	panels.Go(g, &results, func(ctx context.Context) (search.Results, error) {
		return s.backend.Search(ctx, filters)
	})
	filtersOut = s.loadFilters(r.Context(), filters)
	filtersOut.Inline = true
	g.Wait()

	if results.Status == panels.StatusCanceled {
		return
	}
	rv := resultsView{Results: results.Value, Searched: true, MaxTopN: course.MaxTopN}
	if results.Err != nil {
		rv.Error = newInlineError(results.Err, r.URL.RequestURI())
		requestctx.Logger(r.Context()).Warn("search failed", zap.Error(results.Err))
	}

	if mw.IsHTMX(r.Context()) {
		s.fragment(w, r, http.StatusOK, "results", rv)
		return
	}
	s.render(w, r, http.StatusOK, "search", "nav.search", searchView{Filters: filtersOut, Results: rv})
}

// runSearch is the explicit search trigger. Submitted fields are applied first,
// then the search runs on page 1.
func (s *server) runSearch(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSession(r)
	c := search.NewCoordinator(sess.CurrentFilters(), s.backend.Search)
	if err := r.ParseForm(); err != nil {
		s.prompt(w, r, errBadForm)
		return
	}
	for _, field := range filterOrder {
		if _, ok := r.PostForm[string(field)]; !ok {
			continue
		}
		if err := c.Update(field, r.PostForm.Get(string(field))); err != nil {
			s.prompt(w, r, err)
			return
		}
	}
	c.SetPage(1)
	sess.SetFilters(c.Filters())

	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/search", http.StatusSeeOther)
		return
	}

	state := panels.Run(r.Context(), c.Search)
	if state.Status == panels.StatusCanceled {
		return
	}
	rv := resultsView{Results: state.Value, Searched: true, MaxTopN: course.MaxTopN}
	if state.Err != nil {
		rv.Error = newInlineError(state.Err, "/search?page=1")
		requestctx.Logger(r.Context()).Warn("search failed", zap.Error(state.Err))
	}
	w.Header().Set("HX-Push-Url", "/search")
	s.fragment(w, r, http.StatusOK, "results", rv)
}

// updateFilter applies one select change and re-renders the form with the
// dependent option lists reloaded.
func (s *server) updateFilter(w http.ResponseWriter, r *http.Request) {
	field, err := search.ParseField(r.FormValue("field"))
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	// a select posts under its own name unless an explicit value is sent
	value := r.FormValue("value")
	if _, ok := r.Form["value"]; !ok {
		value = r.FormValue(string(field))
	}
	sess := mw.GetSession(r)
	next, err := search.UpdateField(sess.CurrentFilters(), field, value)
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	sess.SetFilters(next)

	if !mw.IsHTMX(r.Context()) {
		seeOther(w, r, "/search")
		return
	}
	fv := s.loadFilters(r.Context(), next)
	fv.Inline = onSearchPage(r)
	s.fragment(w, r, http.StatusOK, "filters", fv)
}

// onSearchPage reports whether an htmx request came from the search page.
func onSearchPage(r *http.Request) bool {
	u, err := url.Parse(r.Header.Get("HX-Current-URL"))
	return err == nil && (u.Path == "/search" || strings.HasPrefix(u.Path, "/search/"))
}

// rank compares the festivals ticked in the results list.
func (s *server) rank(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.prompt(w, r, errBadForm)
		return
	}
	numReviews, err := formInt(r, "num_reviews", 5)
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	topN, err := formInt(r, "top_n", 3)
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	titles := r.PostForm["title"]

	state := panels.Run(r.Context(), func(ctx context.Context) (backend.Ranking, error) {
		return s.course.Rank(ctx, titles, numReviews, topN)
	})
	if state.Status == panels.StatusCanceled {
		return
	}
	if state.Err != nil && isPrompt(state.Err) {
		s.prompt(w, r, state.Err)
		return
	}
	rv := &rankingView{
		Ranking:    state.Value,
		NumReviews: course.ClampNumReviews(numReviews),
		TopN:       course.ClampTopN(topN, len(course.UniqueTitles(titles))),
		Error:      newInlineError(state.Err, ""),
	}
	if state.Err != nil {
		requestctx.Logger(r.Context()).Warn("ranking failed", zap.Error(state.Err))
	}

	if mw.IsHTMX(r.Context()) {
		s.fragment(w, r, http.StatusOK, "ranking", rv)
		return
	}
	sess := mw.GetSession(r)
	fv := s.loadFilters(r.Context(), sess.CurrentFilters())
	fv.Inline = true
	s.render(w, r, http.StatusOK, "search", "nav.search", searchView{Filters: fv, Ranking: rv})
}

// loadFilters fetches every option list the filters need, concurrently. A list
// that fails to load degrades to the current value alone.
func (s *server) loadFilters(ctx context.Context, f search.Filters) filtersView {
	f = f.Normalize()
	loaders := map[search.Field]func(context.Context) ([]string, error){
		search.FieldArea:         s.backend.Areas,
		search.FieldMainCategory: s.backend.MainCategories,
		search.FieldSubArea: func(ctx context.Context) ([]string, error) {
			return s.backend.SubAreas(ctx, f.Area)
		},
		search.FieldMediumCategory: func(ctx context.Context) ([]string, error) {
			return s.backend.MediumCategories(ctx, f.MainCategory)
		},
		search.FieldSmallCategory: func(ctx context.Context) ([]string, error) {
			return s.backend.SmallCategories(ctx, f.MainCategory, f.MediumCategory)
		},
	}

	fields := filterOrder[:len(filterOrder)-1]
	states := make([]panels.State[[]string], len(fields))
	g := panels.NewGroup(ctx, 0)
	for i, field := range fields {
		if !f.Enabled(field) {
			continue
		}
		panels.Go(g, &states[i], loaders[field])
	}
	g.Wait()

	out := filtersView{Filters: f, Statuses: search.Statuses}
	for i, field := range fields {
		sel := filterSelect{Field: field, Value: f.Get(field), Enabled: f.Enabled(field)}
		switch states[i].Status {
		case panels.StatusSuccess:
			sel.Options = withValue(states[i].Value, sel.Value)
		case panels.StatusError:
			sel.Failed = true
			requestctx.Logger(ctx).Warn("filter options failed", zap.String("field", string(field)), zap.Error(states[i].Err))
			fallthrough
		default:
			sel.Options = withValue(nil, sel.Value)
		}
		out.Selects = append(out.Selects, sel)
	}
	return out
}

// withValue makes sure All leads the list and the current value is present.
func withValue(options []string, current string) []string {
	out := make([]string, 0, len(options)+2)
	seen := map[string]struct{}{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	add(search.All)
	for _, o := range options {
		add(o)
	}
	add(current)
	return out
}
