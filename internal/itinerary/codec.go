package itinerary

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StorageKey is the fixed namespace itineraries are persisted under.
const StorageKey = "festmoment-course-storage"

// formatVersion is written alongside the list so future layouts can migrate.
const formatVersion = 0

type envelope[T any] struct {
	State struct {
		CourseItems []T `json:"courseItems"`
	} `json:"state"`
	Version int `json:"version"`
}

// Key returns the storage key for owner. An empty owner maps to the bare namespace.
func Key(owner string) string {
	if owner == "" {
		return StorageKey
	}
	return StorageKey + ":" + owner
}

// Encode serialises items in the persisted envelope.
func Encode(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	env := envelope[Item]{Version: formatVersion}
	env.State.CourseItems = items
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("itinerary: encode: %w", err)
	}
	return data, nil
}

// Decode reads either the envelope or a bare array of items. Entries that are
// not objects with a title are skipped and duplicate titles collapse to their
// first occurrence.
func Decode(data []byte) ([]Item, error) {
	items, _, err := decode(data)
	return items, err
}

func decode(data []byte) ([]Item, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []Item{}, 0, nil
	}
	var raw []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, 0, fmt.Errorf("itinerary: decode list: %w", err)
		}
	} else {
		var env envelope[json.RawMessage]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, 0, fmt.Errorf("itinerary: decode envelope: %w", err)
		}
		raw = env.State.CourseItems
	}

	items := make([]Item, 0, len(raw))
	skipped := 0
	for _, entry := range raw {
		var it Item
		if err := json.Unmarshal(entry, &it); err != nil {
			skipped++
			continue
		}
		items = append(items, it)
	}
	return Dedupe(items), skipped, nil
}
