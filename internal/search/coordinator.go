package search

import (
	"context"
	"errors"
)

// Festival is one search hit.
type Festival struct {
	Title     string `json:"title"`
	Image     string `json:"image"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Results is one page of hits.
type Results struct {
	Festivals  []Festival `json:"festivals"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// SearchFunc executes a search for a complete filter set.
type SearchFunc func(ctx context.Context, filters Filters) (Results, error)

// ErrNoSearch is returned by Coordinator.Search when no trigger is configured.
var ErrNoSearch = errors.New("search: no search trigger configured")

// Coordinator owns the current filters and hands them to the search trigger on demand.
// It is not safe for concurrent use.
type Coordinator struct {
	filters  Filters
	onSearch SearchFunc
}

// NewCoordinator starts from initial, normalised.
func NewCoordinator(initial Filters, onSearch SearchFunc) *Coordinator {
	return &Coordinator{filters: initial.Normalize(), onSearch: onSearch}
}

// Filters returns the current filters.
func (c *Coordinator) Filters() Filters {
	return c.filters
}

// Update applies UpdateField to the current filters.
func (c *Coordinator) Update(key Field, value string) error {
	next, err := UpdateField(c.filters, key, value)
	if err != nil {
		return err
	}
	c.filters = next
	return nil
}

// SetPage moves to page p.
func (c *Coordinator) SetPage(p int) {
	c.filters = c.filters.WithPage(p)
}

// Reset restores the defaults.
func (c *Coordinator) Reset() {
	c.filters = DefaultFilters()
}

// Search submits the current filters.
func (c *Coordinator) Search(ctx context.Context) (Results, error) {
	if c.onSearch == nil {
		return Results{}, ErrNoSearch
	}
	return c.onSearch(ctx, c.filters)
}
