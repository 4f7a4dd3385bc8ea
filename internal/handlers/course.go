package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	mw "github.com/ericyum/tour-agent-frontend/internal/middleware"
	"github.com/ericyum/tour-agent-frontend/internal/panels"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
)

type itineraryView struct {
	Items []itinerary.Item
}

// Last is the index of the final item, for disabling move-down buttons.
func (v itineraryView) Last() int {
	return len(v.Items) - 1
}

type reportView struct {
	Duration string
	Report   string
	Error    *inlineError
}

type nearbyView struct {
	RadiusKm int
	Origin   string
	Nearby   backend.Nearby
	Error    *inlineError
}

type courseView struct {
	Itinerary       itineraryView
	Durations       []string
	DefaultDuration string
	DefaultRadiusKm int
	Report          *reportView
	Nearby          *nearbyView
}

func (s *server) coursePage(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}
	s.render(w, r, http.StatusOK, "course", "nav.course", s.courseData(st))
}

func (s *server) courseData(st *itinerary.Store) courseView {
	return courseView{
		Itinerary:       itineraryView{Items: st.Items()},
		Durations:       course.Durations,
		DefaultDuration: course.DefaultDuration,
		DefaultRadiusKm: course.DefaultRadiusKm,
	}
}

// addItem adds an entity to the course. Its attributes are copied from the
// backend record; when that lookup fails the item is added with its title only,
// which leaves location-based actions unavailable for it.
func (s *server) addItem(w http.ResponseWriter, r *http.Request) {
	kind, err := itinerary.ParseKind(r.FormValue("kind"))
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	item, err := itinerary.NewItem(kind, r.FormValue("title"))
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}

	if !st.Contains(item.Title) {
		state := panels.Run(r.Context(), func(ctx context.Context) (backend.Details, error) {
			return s.backend.Details(ctx, kind, item.Title)
		})
		if state.Status == panels.StatusCanceled {
			return
		}
		if state.Ok() {
			if full, err := itinerary.FromDetails(kind, state.Value); err == nil && full.Title == item.Title {
				item = full
			}
		} else {
			requestctx.Logger(r.Context()).Warn("details for course item unavailable",
				zap.String("title", item.Title), zap.Error(state.Err))
		}
	}
	added := st.Add(item)

	if !mw.IsHTMX(r.Context()) {
		seeOther(w, r, "/course")
		return
	}
	s.fragment(w, r, http.StatusOK, "course-button", courseButton{
		Kind:     kind,
		Title:    item.Title,
		InCourse: true,
		Added:    added,
		Count:    st.Len(),
	})
}

// removeItem drops one entry. view=button answers with the detail page toggle
// instead of the itinerary list.
func (s *server) removeItem(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}
	title := r.FormValue("title")
	st.Remove(title)

	switch {
	case !mw.IsHTMX(r.Context()):
		seeOther(w, r, "/course")
	case r.FormValue("view") == "button":
		kind, _ := itinerary.ParseKind(r.FormValue("kind"))
		s.fragment(w, r, http.StatusOK, "course-button", courseButton{Kind: kind, Title: title, Count: st.Len()})
	default:
		s.fragment(w, r, http.StatusOK, "itinerary", itineraryView{Items: st.Items()})
	}
}

func (s *server) clearItems(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}
	st.Clear()
	if !mw.IsHTMX(r.Context()) {
		seeOther(w, r, "/course")
		return
	}
	s.fragment(w, r, http.StatusOK, "itinerary", itineraryView{})
}

// reorderItems moves the entry at from to to. Out-of-range indices leave the
// list untouched.
func (s *server) reorderItems(w http.ResponseWriter, r *http.Request) {
	from, err := formInt(r, "from", -1)
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	to, err := formInt(r, "to", -1)
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}
	st.Reorder(from, to)
	if !mw.IsHTMX(r.Context()) {
		seeOther(w, r, "/course")
		return
	}
	s.fragment(w, r, http.StatusOK, "itinerary", itineraryView{Items: st.Items()})
}

// validateCourse asks the backend to review the whole course.
func (s *server) validateCourse(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}
	duration := r.FormValue("duration")
	state := panels.Run(r.Context(), func(ctx context.Context) (string, error) {
		return s.course.Validate(ctx, st.Items(), duration)
	})
	if state.Status == panels.StatusCanceled {
		return
	}
	if state.Err != nil && isPrompt(state.Err) {
		s.prompt(w, r, state.Err)
		return
	}
	rv := &reportView{Duration: duration, Report: state.Value}
	if state.Err != nil {
		requestctx.Logger(r.Context()).Warn("course validation failed", zap.Error(state.Err))
		rv.Error = newInlineError(state.Err, "")
	}

	if mw.IsHTMX(r.Context()) {
		s.fragment(w, r, http.StatusOK, "report", rv)
		return
	}
	v := s.courseData(st)
	v.Report = rv
	s.render(w, r, http.StatusOK, "course", "nav.course", v)
}

// courseNearby recommends places around the first stop.
func (s *server) courseNearby(w http.ResponseWriter, r *http.Request) {
	radius, err := formInt(r, "radius_km", course.DefaultRadiusKm)
	if err != nil {
		s.prompt(w, r, err)
		return
	}
	st, err := s.store(r)
	if err != nil {
		s.errorPage(w, r, http.StatusInternalServerError, err)
		return
	}
	items := st.Items()
	state := panels.Run(r.Context(), func(ctx context.Context) (backend.Nearby, error) {
		return s.course.Nearby(ctx, items, radius)
	})
	if state.Status == panels.StatusCanceled {
		return
	}
	if state.Err != nil && isPrompt(state.Err) {
		s.prompt(w, r, state.Err)
		return
	}
	nv := &nearbyView{RadiusKm: course.ClampRadiusKm(radius), Origin: items[0].Title, Nearby: state.Value}
	if state.Err != nil {
		requestctx.Logger(r.Context()).Warn("course nearby failed", zap.Error(state.Err))
		nv.Error = newInlineError(state.Err, "")
	}

	if mw.IsHTMX(r.Context()) {
		s.fragment(w, r, http.StatusOK, "nearby", nv)
		return
	}
	v := s.courseData(st)
	v.Nearby = nv
	s.render(w, r, http.StatusOK, "course", "nav.course", v)
}
