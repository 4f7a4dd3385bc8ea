package itinerary

import "sync"

// Listener observes the list produced by every effective mutation. Listeners run
// synchronously in mutation order and must not call back into the store.
type Listener func(items []Item)

// Store holds one visitor's course. All methods are safe for concurrent use;
// mutations are serialised and reads never block on listeners.
type Store struct {
	mu        sync.RWMutex
	items     []Item
	listeners map[int]Listener
	nextID    int

	// notifyMu keeps listener calls in mutation order.
	notifyMu sync.Mutex
}

// NewStore creates a store seeded with initial, dropping duplicate titles.
func NewStore(initial []Item) *Store {
	return &Store{
		items:     Dedupe(initial),
		listeners: make(map[int]Listener),
	}
}

// Items returns a copy of the current list.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Contains reports whether an entry with title exists.
func (s *Store) Contains(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.items, title) >= 0
}

// Add appends item unless its title is already present.
func (s *Store) Add(item Item) bool {
	return s.apply(func(items []Item) ([]Item, bool) { return AddItem(items, item) })
}

// Remove deletes the entry with title, if any.
func (s *Store) Remove(title string) bool {
	return s.apply(func(items []Item) ([]Item, bool) { return RemoveItem(items, title) })
}

// Reorder moves the entry at from to to.
func (s *Store) Reorder(from, to int) bool {
	return s.apply(func(items []Item) ([]Item, bool) { return ReorderItems(items, from, to) })
}

// Clear empties the list. Listeners are notified even when it was already empty.
func (s *Store) Clear() {
	s.apply(func([]Item) ([]Item, bool) { return nil, true })
}

// Replace swaps in a whole list, deduplicated.
func (s *Store) Replace(items []Item) {
	s.apply(func([]Item) ([]Item, bool) { return Dedupe(items), true })
}

// Subscribe registers l and returns a func that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) apply(reduce func([]Item) ([]Item, bool)) bool {
	s.mu.Lock()
	next, changed := reduce(s.items)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.items = next
	snapshot := cloneItems(next)
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	for _, l := range listeners {
		l(snapshot)
	}
	return true
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
