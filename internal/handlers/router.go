// Package handlers exposes the festival site over HTTP: server-rendered pages,
// htmx fragments and a small JSON API for the visitor's course.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/i18n"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	mw "github.com/ericyum/tour-agent-frontend/internal/middleware"
	"github.com/ericyum/tour-agent-frontend/internal/observability"
	"github.com/ericyum/tour-agent-frontend/internal/view"
)

// ErrInvalidDeps is returned by NewRouter when a required dependency is missing.
var ErrInvalidDeps = errors.New("handlers: invalid dependencies")

// Deps wires the router.
type Deps struct {
	Backend     backend.Service
	Course      *course.Service
	Itineraries *itinerary.Registry
	Renderer    *view.Renderer
	Bundle      *i18n.Bundle
	Sessions    *mw.SessionManager
	// CSRF protects unsafe methods. Nil disables the check.
	CSRF   func(http.Handler) http.Handler
	Logger *zap.Logger
	// Ready backs /readyz. Nil always reports ready.
	Ready func(ctx context.Context) error
}

type server struct {
	backend     backend.Service
	course      *course.Service
	itineraries *itinerary.Registry
	renderer    *view.Renderer
	bundle      *i18n.Bundle
	ready       func(ctx context.Context) error
}

// NewRouter builds the site router.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Backend == nil || deps.Course == nil || deps.Itineraries == nil ||
		deps.Renderer == nil || deps.Bundle == nil || deps.Sessions == nil {
		return nil, ErrInvalidDeps
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{
		backend:     deps.Backend,
		course:      deps.Course,
		itineraries: deps.Itineraries,
		renderer:    deps.Renderer,
		bundle:      deps.Bundle,
		ready:       deps.Ready,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware())
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))
	r.Use(mw.HTMX)

	r.Get("/healthz", health)
	r.Get("/readyz", s.readiness)

	r.Group(func(r chi.Router) {
		r.Use(mw.Session(deps.Sessions))
		r.Use(mw.Locale(deps.Bundle))
		if deps.CSRF != nil {
			r.Use(deps.CSRF)
		}

		r.Get("/", s.home)

		r.Route("/search", func(r chi.Router) {
			r.Get("/", s.searchPage)
			r.Post("/", s.runSearch)
			r.Post("/filters", s.updateFilter)
			r.Post("/rank", s.rank)
		})

		r.Route("/festivals/{title}", func(r chi.Router) {
			r.Get("/", s.festivalPage)
			r.Get("/panels/{tab}", s.panel)
		})
		r.Get("/courses/{title}", s.entityPage(itinerary.KindCourse))
		r.Get("/facilities/{title}", s.entityPage(itinerary.KindFacility))

		r.Route("/course", func(r chi.Router) {
			r.Get("/", s.coursePage)
			r.Post("/items", s.addItem)
			r.Post("/items/remove", s.removeItem)
			r.Post("/clear", s.clearItems)
			r.Post("/reorder", s.reorderItems)
			r.Post("/validate", s.validateCourse)
			r.Post("/nearby", s.courseNearby)
		})

		r.Route("/api/v1/course", func(r chi.Router) {
			r.Get("/", s.apiList)
			r.Post("/items", s.apiAdd)
			r.Delete("/items/{title}", s.apiRemove)
			r.Delete("/", s.apiClear)
			r.Post("/reorder", s.apiReorder)
		})
	})

	r.NotFound(s.notFound)
	return r, nil
}
