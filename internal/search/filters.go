// Package search holds the festival search filters and the cascading rules
// that keep dependent selections consistent.
package search

import (
	"errors"
	"fmt"
	"strings"
)

// All is the sentinel meaning "no restriction" for any filter field.
const All = "ALL"

// Field names a filter slot.
type Field string

const (
	FieldArea           Field = "area"
	FieldSubArea        Field = "subArea"
	FieldMainCategory   Field = "mainCategory"
	FieldMediumCategory Field = "mediumCategory"
	FieldSmallCategory  Field = "smallCategory"
	FieldStatus         Field = "status"
)

// Status narrows results by festival date window.
type Status string

const (
	StatusAll      Status = All
	StatusOngoing  Status = "ONGOING"
	StatusUpcoming Status = "UPCOMING"
	StatusEnded    Status = "ENDED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusAll, StatusOngoing, StatusUpcoming, StatusEnded}

var (
	// ErrUnknownField is returned for a field name outside Field.
	ErrUnknownField = errors.New("search: unknown filter field")
	// ErrInvalidStatus is returned for a status outside Statuses.
	ErrInvalidStatus = errors.New("search: invalid status")
)

// dependents lists, per parent, the children that lose meaning when it changes.
var dependents = map[Field][]Field{
	FieldArea:           {FieldSubArea},
	FieldMainCategory:   {FieldMediumCategory, FieldSmallCategory},
	FieldMediumCategory: {FieldSmallCategory},
}

// Filters is the full search criteria set.
type Filters struct {
	Area           string `json:"area"`
	SubArea        string `json:"subArea"`
	MainCategory   string `json:"mainCategory"`
	MediumCategory string `json:"mediumCategory"`
	SmallCategory  string `json:"smallCategory"`
	Status         Status `json:"status"`
	Page           int    `json:"page"`
}

// DefaultFilters has every field unrestricted on page 1.
func DefaultFilters() Filters {
	return Filters{
		Area:           All,
		SubArea:        All,
		MainCategory:   All,
		MediumCategory: All,
		SmallCategory:  All,
		Status:         StatusAll,
		Page:           1,
	}
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.TrimSpace(s)); f {
	case FieldArea, FieldSubArea, FieldMainCategory, FieldMediumCategory, FieldSmallCategory, FieldStatus:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// ParseStatus validates a status, case-insensitively. Empty means all.
func ParseStatus(s string) (Status, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return StatusAll, nil
	}
	for _, status := range Statuses {
		if string(status) == trimmed {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// UpdateField returns filters with key set to value, page reset to 1 and every
// dependent of key reset to All. Other fields carry over. Empty values mean All.
// Values are not checked against the option lists on display.
func UpdateField(filters Filters, key Field, value string) (Filters, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = All
	}

	next := filters
	switch key {
	case FieldArea:
		next.Area = value
	case FieldSubArea:
		next.SubArea = value
	case FieldMainCategory:
		next.MainCategory = value
	case FieldMediumCategory:
		next.MediumCategory = value
	case FieldSmallCategory:
		next.SmallCategory = value
	case FieldStatus:
		status, err := ParseStatus(value)
		if err != nil {
			return filters, err
		}
		next.Status = status
	default:
		return filters, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	for _, child := range dependents[key] {
		next = next.with(child, All)
	}
	next.Page = 1
	return next, nil
}

// WithPage moves to page p without touching the criteria. p below 1 means 1.
func (f Filters) WithPage(p int) Filters {
	if p < 1 {
		p = 1
	}
	f.Page = p
	return f
}

// Normalize fills empty fields with All, clears children whose parent is All
// and repairs the page number. Filters restored from a cookie or query string go
// through here.
func (f Filters) Normalize() Filters {
	fill := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return All
		}
		return strings.TrimSpace(s)
	}
	f.Area = fill(f.Area)
	f.SubArea = fill(f.SubArea)
	f.MainCategory = fill(f.MainCategory)
	f.MediumCategory = fill(f.MediumCategory)
	f.SmallCategory = fill(f.SmallCategory)
	if status, err := ParseStatus(string(f.Status)); err == nil {
		f.Status = status
	} else {
		f.Status = StatusAll
	}
	if f.Area == All {
		f.SubArea = All
	}
	if f.MainCategory == All {
		f.MediumCategory = All
	}
	if f.MediumCategory == All {
		f.SmallCategory = All
	}
	return f.WithPage(f.Page)
}

// Get returns the value of key.
func (f Filters) Get(key Field) string {
	switch key {
	case FieldArea:
		return f.Area
	case FieldSubArea:
		return f.SubArea
	case FieldMainCategory:
		return f.MainCategory
	case FieldMediumCategory:
		return f.MediumCategory
	case FieldSmallCategory:
		return f.SmallCategory
	case FieldStatus:
		return string(f.Status)
	}
	return ""
}

// Dependents returns the fields reset when key changes.
func Dependents(key Field) []Field {
	out := make([]Field, len(dependents[key]))
	copy(out, dependents[key])
	return out
}

// Enabled reports whether choosing a value for key is meaningful given its parents.
func (f Filters) Enabled(key Field) bool {
	switch key {
	case FieldSubArea:
		return f.Area != All
	case FieldMediumCategory:
		return f.MainCategory != All
	case FieldSmallCategory:
		return f.MainCategory != All && f.MediumCategory != All
	default:
		return true
	}
}

func (f Filters) with(key Field, value string) Filters {
	switch key {
	case FieldArea:
		f.Area = value
	case FieldSubArea:
		f.SubArea = value
	case FieldMainCategory:
		f.MainCategory = value
	case FieldMediumCategory:
		f.MediumCategory = value
	case FieldSmallCategory:
		f.SmallCategory = value
	case FieldStatus:
		f.Status = Status(value)
	}
	return f
}
