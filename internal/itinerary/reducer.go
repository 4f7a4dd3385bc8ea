package itinerary

// The functions below are the pure core of the store: each returns the next list
// and whether anything changed. Inputs are never modified.

// AddItem appends item unless an entry with the same title exists. The first
// write wins; a duplicate is a silent no-op.
func AddItem(items []Item, item Item) ([]Item, bool) {
	if indexOf(items, item.Title) >= 0 {
		return items, false
	}
	next := make([]Item, len(items), len(items)+1)
	copy(next, items)
	return append(next, item), true
}

// RemoveItem drops the entry with the given title. Unknown titles are a no-op.
func RemoveItem(items []Item, title string) ([]Item, bool) {
	idx := indexOf(items, title)
	if idx < 0 {
		return items, false
	}
	next := make([]Item, 0, len(items)-1)
	next = append(next, items[:idx]...)
	return append(next, items[idx+1:]...), true
}

// ReorderItems moves the element at from to position to, shifting the elements
// in between. A from index outside the list is rejected as a no-op; to is
// clamped into range.
func ReorderItems(items []Item, from, to int) ([]Item, bool) {
	n := len(items)
	if from < 0 || from >= n {
		return items, false
	}
	if to < 0 {
		to = 0
	}
	if to > n-1 {
		to = n - 1
	}
	if from == to {
		return items, false
	}
	moved := items[from]
	next := make([]Item, 0, n)
	next = append(next, items[:from]...)
	next = append(next, items[from+1:]...)
	next = append(next[:to], append([]Item{moved}, next[to:]...)...)
	return next, true
}

// Dedupe keeps the first occurrence of every title and drops untitled entries.
func Dedupe(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Title == "" {
			continue
		}
		out, _ = AddItem(out, item)
	}
	return out
}

func indexOf(items []Item, title string) int {
	for i, item := range items {
		if item.Title == title {
			return i
		}
	}
	return -1
}
