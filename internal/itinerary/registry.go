package itinerary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidRegistryDeps is returned when NewRegistry is missing a dependency.
var ErrInvalidRegistryDeps = errors.New("itinerary: invalid registry dependencies")

// ErrMissingOwner is returned by Open for an empty owner.
var ErrMissingOwner = errors.New("itinerary: owner is required")

const loadTimeout = 5 * time.Second

// RegistryDeps wires a Registry.
type RegistryDeps struct {
	Storage Storage
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Registry hands out one Store per owner, loading it from storage on first use
// and keeping it attached to storage until it is swept.
type Registry struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time

	loads singleflight.Group

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	store    *Store
	detach   func()
	lastUsed time.Time
}

// NewRegistry validates deps and builds a Registry.
func NewRegistry(deps RegistryDeps) (*Registry, error) {
	if deps.Storage == nil {
		return nil, ErrInvalidRegistryDeps
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		storage: deps.Storage,
		logger:  logger.Named("itinerary"),
		now:     clock,
		entries: make(map[string]*registryEntry),
	}, nil
}

// Open returns owner's store, loading it on first use. A failed load returns
// the error and caches nothing, so the next call retries. The read is detached
// from ctx cancellation and runs without holding the registry lock.
func (r *Registry) Open(ctx context.Context, owner string) (*Store, error) {
	if owner == "" {
		return nil, ErrMissingOwner
	}
	if store, ok := r.lookup(owner); ok {
		return store, nil
	}

	v, err, _ := r.loads.Do(owner, func() (any, error) {
		if store, ok := r.lookup(owner); ok {
			return store, nil
		}
		key := Key(owner)
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		items, skipped, err := load(loadCtx, r.storage, key)
		if err != nil {
			r.logger.Warn("itinerary load failed", zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("itinerary: open %s: %w", owner, err)
		}
		if skipped > 0 {
			r.logger.Warn("unreadable itinerary entries skipped", zap.String("key", key), zap.Int("skipped", skipped))
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if entry, ok := r.entries[owner]; ok {
			entry.lastUsed = r.now()
			return entry.store, nil
		}
		store := NewStore(items)
		r.entries[owner] = &registryEntry{
			store:    store,
			detach:   Persist(store, r.storage, key, r.logger),
			lastUsed: r.now(),
		}
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) lookup(owner string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[owner]
	if !ok {
		return nil, false
	}
	entry.lastUsed = r.now()
	return entry.store, true
}

// Sweep evicts stores idle for longer than idle and returns how many were dropped.
// Evicted stores stay usable by holders but no longer persist.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for owner, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			entry.detach()
			delete(r.entries, owner)
			removed++
		}
	}
	return removed
}

// Len reports how many stores are resident.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close detaches every store from storage.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner, entry := range r.entries {
		entry.detach()
		delete(r.entries, owner)
	}
}
