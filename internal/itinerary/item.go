package itinerary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies an itinerary entry by the page it was added from.
type Kind string

const (
	KindFestival Kind = "festival"
	KindFacility Kind = "facility"
	KindCourse   Kind = "course"
)

var (
	// ErrInvalidKind is returned for kinds outside festival, facility and course.
	ErrInvalidKind = errors.New("itinerary: invalid kind")
	// ErrMissingTitle is returned when an item has no title.
	ErrMissingTitle = errors.New("itinerary: title is required")
)

// ParseKind normalises s into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindFestival, KindFacility, KindCourse:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Item is one entry of the visitor's course. Title is the identity; every other
// attribute copied from the source entity travels along untouched.
//
// Items are values: WithAttr returns a copy and attribute maps are never mutated
// after construction, so slices of items can be shared between readers.
type Item struct {
	Title string
	Kind  Kind
	attrs map[string]json.RawMessage
}

// reserved keys are owned by Title and Kind.
const (
	titleKey = "title"
	kindKey  = "type"
)

// NewItem builds an item, rejecting empty titles and unknown kinds.
func NewItem(kind Kind, title string) (Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Item{}, ErrMissingTitle
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return Item{}, err
	}
	return Item{Title: title, Kind: kind}, nil
}

// FromDetails builds an item from a backend detail record, copying every field
// verbatim. The record's "title" becomes the item title.
func FromDetails(kind Kind, details map[string]any) (Item, error) {
	title, _ := details[titleKey].(string)
	item, err := NewItem(kind, title)
	if err != nil {
		return Item{}, err
	}
	for key, value := range details {
		if key == titleKey || key == kindKey {
			continue
		}
		if item, err = item.WithAttr(key, value); err != nil {
			return Item{}, err
		}
	}
	return item, nil
}

// WithAttr returns a copy of the item with key set to the JSON encoding of value.
func (it Item) WithAttr(key string, value any) (Item, error) {
	if key == titleKey || key == kindKey || key == "" {
		return it, fmt.Errorf("itinerary: attribute %q is reserved", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return it, fmt.Errorf("itinerary: encode attribute %q: %w", key, err)
	}
	next := make(map[string]json.RawMessage, len(it.attrs)+1)
	for k, v := range it.attrs {
		next[k] = v
	}
	next[key] = raw
	it.attrs = next
	return it, nil
}

// Attr returns the attribute rendered as text. Strings are unquoted, other JSON
// values are returned in their literal form, and null or missing yields "".
func (it Item) Attr(key string) string {
	raw, ok := it.attrs[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}

// AttrKeys lists the extra attribute names.
func (it Item) AttrKeys() []string {
	keys := make([]string, 0, len(it.attrs))
	for k := range it.attrs {
		keys = append(keys, k)
	}
	return keys
}

// Coordinates reads mapy (latitude) and mapx (longitude). Missing, empty or zero
// values report ok=false.
func (it Item) Coordinates() (lat, lon float64, ok bool) {
	lat, okLat := parseCoordinate(it.Attr("mapy"))
	lon, okLon := parseCoordinate(it.Attr("mapx"))
	if !okLat || !okLon {
		return 0, 0, false
	}
	return lat, lon, true
}

// ContentID is the backend's identifier for the underlying entity, if any.
func (it Item) ContentID() string {
	return it.Attr("contentid")
}

func parseCoordinate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// MarshalJSON flattens title, kind and attributes into one object.
func (it Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(it.attrs)+2)
	for k, v := range it.attrs {
		out[k] = v
	}
	title, err := json.Marshal(it.Title)
	if err != nil {
		return nil, err
	}
	out[titleKey] = title
	if it.Kind != "" {
		kind, err := json.Marshal(string(it.Kind))
		if err != nil {
			return nil, err
		}
		out[kindKey] = kind
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any object with a string title, which is trimmed.
// Unknown fields are kept.
func (it *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("itinerary: decode item: %w", err)
	}
	var title string
	if raw, ok := fields[titleKey]; ok {
		if err := json.Unmarshal(raw, &title); err != nil {
			return fmt.Errorf("itinerary: decode title: %w", err)
		}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrMissingTitle
	}
	var kind string
	if raw, ok := fields[kindKey]; ok {
		_ = json.Unmarshal(raw, &kind)
	}
	delete(fields, titleKey)
	delete(fields, kindKey)
	if len(fields) == 0 {
		fields = nil
	}
	*it = Item{Title: title, Kind: Kind(kind), attrs: fields}
	return nil
}

// Equal reports whether two items carry the same title, kind and attributes.
func (it Item) Equal(other Item) bool {
	if it.Title != other.Title || it.Kind != other.Kind || len(it.attrs) != len(other.attrs) {
		return false
	}
	for k, v := range it.attrs {
		ov, ok := other.attrs[k]
		if !ok || !jsonEqual(v, ov) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
