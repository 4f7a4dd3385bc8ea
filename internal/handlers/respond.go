package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	mw "github.com/ericyum/tour-agent-frontend/internal/middleware"
	"github.com/ericyum/tour-agent-frontend/internal/nav"
	"github.com/ericyum/tour-agent-frontend/internal/panels"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
	"github.com/ericyum/tour-agent-frontend/internal/search"
	"github.com/ericyum/tour-agent-frontend/internal/view"
)

// inlineError is rendered in place of the panel or form that failed.
type inlineError struct {
	Key    string
	Detail string
	// Retry, when set, is the URL the retry button reloads.
	Retry string
}

// errorKey maps known failures onto their i18n message.
func errorKey(err error) string {
	switch {
	case errors.Is(err, course.ErrEmptyItinerary):
		return "errors.empty_itinerary"
	case errors.Is(err, course.ErrInvalidDuration):
		return "errors.invalid_duration"
	case errors.Is(err, course.ErrMissingLocation):
		return "errors.missing_location"
	case errors.Is(err, course.ErrRankSelection):
		return "errors.rank_selection"
	case errors.Is(err, search.ErrUnknownField), errors.Is(err, search.ErrInvalidStatus):
		return "errors.invalid_filter"
	case errors.Is(err, itinerary.ErrInvalidKind), errors.Is(err, itinerary.ErrMissingTitle):
		return "errors.invalid_item"
	case errors.Is(err, panels.ErrUnknownTab):
		return "errors.unknown_tab"
	case errors.Is(err, errBadNumber):
		return "errors.invalid_number"
	case errors.Is(err, errBadForm):
		return "errors.invalid_request"
	case backend.IsNotFound(err):
		return "errors.not_found"
	}
	return "errors.backend"
}

// isPrompt reports whether err is a precondition failure the visitor can fix.
func isPrompt(err error) bool {
	return errorKey(err) != "errors.backend" && !backend.IsNotFound(err)
}

func newInlineError(err error, retry string) *inlineError {
	if err == nil {
		return nil
	}
	e := &inlineError{Key: errorKey(err), Retry: retry}
	if e.Key == "errors.backend" {
		e.Detail = backend.Message(err)
	}
	return e
}

func (s *server) newPage(r *http.Request, title string, data any) view.Page {
	path := r.URL.EscapedPath()
	return view.Page{
		Lang:      mw.Lang(r),
		Title:     title,
		Path:      path,
		Nav:       nav.Build(path, s.courseCount(r)),
		Crumbs:    nav.Breadcrumbs(path),
		CSRFField: mw.CSRFTemplateField(r),
		CSRFToken: mw.CSRFToken(r),
		HTMX:      mw.IsHTMX(r.Context()),
		Data:      data,
	}
}

// render writes a full page inside the base layout.
func (s *server) render(w http.ResponseWriter, r *http.Request, status int, name, titleKey string, data any) {
	lang := mw.Lang(r)
	title := s.bundle.T(lang, titleKey)
	if titleKey == "" {
		title = s.bundle.T(lang, "site.name")
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, s.newPage(r, title, data)); err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	writeHTML(w, status, &buf)
}

// renderTitled is render with an already localised title.
func (s *server) renderTitled(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, s.newPage(r, title, data)); err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	writeHTML(w, status, &buf)
}

// fragment writes one partial, for htmx swaps.
func (s *server) fragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.renderer.Fragment(&buf, name, s.newPage(r, "", data)); err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	writeHTML(w, status, &buf)
}

// prompt answers a precondition failure with an inline message and 422.
// Plain form posts get the message inside the layout.
func (s *server) prompt(w http.ResponseWriter, r *http.Request, err error) {
	if !mw.IsHTMX(r.Context()) {
		s.errorPage(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	s.fragment(w, r, http.StatusUnprocessableEntity, "inline-error", newInlineError(err, ""))
}

// errorPage renders a full-page error. Reserved for pages whose main entity
// cannot be shown at all.
func (s *server) errorPage(w http.ResponseWriter, r *http.Request, status int, err error) {
	data := struct {
		Status int
		Error  *inlineError
	}{Status: status, Error: newInlineError(err, "")}
	s.render(w, r, status, "error", "errors.title", data)
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) {
		s.fragment(w, r, http.StatusNotFound, "inline-error", &inlineError{Key: "errors.not_found"})
		return
	}
	s.render(w, r, http.StatusNotFound, "error", "errors.title", struct {
		Status int
		Error  *inlineError
	}{Status: http.StatusNotFound, Error: &inlineError{Key: "errors.not_found"}})
}

func (s *server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	requestctx.Logger(r.Context()).Error("render failed", zap.String("template", name), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, status int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// seeOther finishes a plain form post. The optional "return" field must be a
// site-relative path.
func seeOther(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ret := r.FormValue("return"); safeReturn(ret) {
		target = ret
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func safeReturn(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Host == "" && u.Scheme == ""
}

// pathTitle decodes an entity title from the URL.
func pathTitle(r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "title")
	title, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	title = strings.TrimSpace(title)
	return title, title != ""
}

// store opens the visitor's itinerary.
func (s *server) store(r *http.Request) (*itinerary.Store, error) {
	sess := mw.SessionFromContext(r.Context())
	if sess == nil {
		return nil, itinerary.ErrMissingOwner
	}
	return s.itineraries.Open(r.Context(), sess.ID)
}

func (s *server) courseCount(r *http.Request) int {
	st, err := s.store(r)
	if err != nil {
		return 0
	}
	return st.Len()
}
