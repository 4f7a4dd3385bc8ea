package itinerary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Storage implementations when nothing is stored under a key.
var ErrNotFound = errors.New("itinerary: not found")

// Storage is the byte-level persistence adapter behind a store.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

const saveTimeout = 5 * time.Second

var (
	meter           = otel.Meter("github.com/ericyum/tour-agent-frontend/internal/itinerary")
	saveFailures, _ = meter.Int64Counter("itinerary.save.failures",
		metric.WithDescription("Itinerary writes that failed and were skipped."))
)

// Load reads the list stored under key. A missing key yields an empty list.
func Load(ctx context.Context, storage Storage, key string) ([]Item, error) {
	items, _, err := load(ctx, storage, key)
	return items, err
}

// load is Load plus the number of unreadable entries it dropped.
func load(ctx context.Context, storage Storage, key string) ([]Item, int, error) {
	data, err := storage.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []Item{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("itinerary: read %s: %w", key, err)
	}
	return decode(data)
}

// Save writes items under key.
func Save(ctx context.Context, storage Storage, key string, items []Item) error {
	data, err := Encode(items)
	if err != nil {
		return err
	}
	if err := storage.Write(ctx, key, data); err != nil {
		return fmt.Errorf("itinerary: write %s: %w", key, err)
	}
	return nil
}

// Persist writes the list to storage after every effective mutation of store.
// Write failures are logged and counted; the in-memory list is unaffected.
// The returned func detaches the subscription.
func Persist(store *Store, storage Storage, key string, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	return store.Subscribe(func(items []Item) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := Save(ctx, storage, key, items); err != nil {
			saveFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("storage", fmt.Sprintf("%T", storage))))
			logger.Warn("itinerary save failed",
				zap.String("key", key),
				zap.Int("items", len(items)),
				zap.Error(err),
			)
		}
	})
}
