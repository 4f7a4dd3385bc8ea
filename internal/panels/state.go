// Package panels runs the festival page's independent analysis actions. Each
// panel owns its state; one panel failing or being abandoned never affects
// another.
package panels

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle of one panel request.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

// State is the outcome of one panel action.
type State[T any] struct {
	Status  Status
	Value   T
	Err     error
	Elapsed time.Duration
}

// Ok reports whether the action produced a value.
func (s State[T]) Ok() bool {
	return s.Status == StatusSuccess
}

// Run executes fn and records its outcome. A result that arrives after ctx is
// done is discarded.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) State[T] {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return State[T]{Status: StatusCanceled, Err: err}
	}

	value, err := fn(ctx)
	elapsed := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return State[T]{Status: StatusCanceled, Err: ctxErr, Elapsed: elapsed}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return State[T]{Status: StatusCanceled, Err: err, Elapsed: elapsed}
		}
		return State[T]{Status: StatusError, Err: err, Elapsed: elapsed}
	}
	return State[T]{Status: StatusSuccess, Value: value, Elapsed: elapsed}
}

// Group fans out panel actions. Unlike errgroup.WithContext, a failing member
// does not cancel its siblings.
type Group struct {
	ctx context.Context
	eg  errgroup.Group
}

// NewGroup binds a group to ctx. limit > 0 caps concurrent actions.
func NewGroup(ctx context.Context, limit int) *Group {
	g := &Group{ctx: ctx}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

// Go schedules fn on g and stores its state in dst once it finishes. dst must
// not be read before Wait returns.
func Go[T any](g *Group, dst *State[T], fn func(context.Context) (T, error)) {
	g.eg.Go(func() error {
		*dst = Run(g.ctx, fn)
		return nil
	})
}

// Wait blocks until every scheduled action has finished.
func (g *Group) Wait() {
	_ = g.eg.Wait()
}
