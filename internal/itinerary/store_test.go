package itinerary

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStoreOperations(t *testing.T) {
	store := NewStore(nil)
	require.Empty(t, store.Items())

	require.True(t, store.Add(mustItem(t, KindFestival, "A", nil)))
	require.True(t, store.Add(mustItem(t, KindFacility, "B", nil)))
	require.False(t, store.Add(mustItem(t, KindCourse, "A", nil)))
	require.Equal(t, 2, store.Len())
	require.True(t, store.Contains("B"))

	require.True(t, store.Reorder(1, 0))
	require.Equal(t, []string{"B", "A"}, titles(store.Items()))

	require.False(t, store.Remove("Z"))
	require.True(t, store.Remove("B"))
	require.Equal(t, []string{"A"}, titles(store.Items()))

	store.Clear()
	require.Empty(t, store.Items())
	store.Clear()
	require.Equal(t, 0, store.Len())
}

func TestStoreItemsReturnsCopy(t *testing.T) {
	store := NewStore([]Item{mustItem(t, KindFestival, "A", nil)})
	items := store.Items()
	items[0] = mustItem(t, KindFestival, "mutated", nil)
	require.Equal(t, []string{"A"}, titles(store.Items()))
}

func TestNewStoreDedupes(t *testing.T) {
	store := NewStore([]Item{
		mustItem(t, KindFestival, "A", nil),
		mustItem(t, KindCourse, "A", nil),
	})
	require.Equal(t, 1, store.Len())
	require.Equal(t, KindFestival, store.Items()[0].Kind)
}

func TestStoreNotifiesOnEffectiveMutations(t *testing.T) {
	store := NewStore(nil)
	var got [][]string
	unsubscribe := store.Subscribe(func(items []Item) {
		got = append(got, titles(items))
	})

	store.Add(mustItem(t, KindFestival, "A", nil))
	store.Add(mustItem(t, KindFestival, "A", nil))
	store.Remove("missing")
	store.Reorder(5, 0)
	store.Add(mustItem(t, KindFestival, "B", nil))
	store.Clear()

	unsubscribe()
	unsubscribe()
	store.Add(mustItem(t, KindFestival, "C", nil))

	want := [][]string{{"A"}, {"A", "B"}, {}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreConcurrentAddsKeepTitlesUnique(t *testing.T) {
	store := NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := []string{"A", "B", "C"}[i%3]
			store.Add(Item{Title: title, Kind: KindFestival})
		}(i)
	}
	wg.Wait()
	require.ElementsMatch(t, []string{"A", "B", "C"}, titles(store.Items()))
}

type failingStorage struct {
	*MemoryStorage
	err error
}

func (f *failingStorage) Write(context.Context, string, []byte) error { return f.err }

func TestPersistWritesEveryMutation(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewStore(nil)
	stop := Persist(store, storage, Key("visitor"), nil)
	defer stop()

	a := mustItem(t, KindFestival, "A", map[string]any{"mapx": "127.0", "mapy": "37.5"})
	b := mustItem(t, KindFacility, "B", nil)
	store.Add(a)
	store.Add(b)
	store.Reorder(0, 1)

	loaded, err := Load(context.Background(), storage, Key("visitor"))
	require.NoError(t, err)
	if diff := cmp.Diff(store.Items(), loaded); diff != "" {
		t.Fatalf("persisted list differs (-mem +stored):\n%s", diff)
	}

	store.Clear()
	loaded, err = Load(context.Background(), storage, Key("visitor"))
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestPersistFailureIsNonFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(), err: errors.New("disk full")}
	store := NewStore(nil)
	stop := Persist(store, storage, Key("v"), zap.New(core))
	defer stop()

	require.True(t, store.Add(mustItem(t, KindFestival, "A", nil)))
	require.Equal(t, []string{"A"}, titles(store.Items()))
	require.Equal(t, 1, logs.FilterMessage("itinerary save failed").Len())
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	items, err := Load(context.Background(), NewMemoryStorage(), Key("nobody"))
	require.NoError(t, err)
	require.Empty(t, items)
}
