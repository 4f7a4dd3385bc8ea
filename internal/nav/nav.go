package nav

import (
	"net/url"
	"path"
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/search"
	LabelKey string // i18n key, e.g. "nav.search"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
	// Badge is an optional counter, such as the number of itinerary items.
	Badge int
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "nav.home"},
	{Path: "/search", LabelKey: "nav.search"},
	{Path: "/course", LabelKey: "nav.course"},
}

// sections maps detail prefixes onto the navigation entry they belong to.
var sections = map[string]Item{
	"festivals":  {Path: "/search", LabelKey: "nav.search"},
	"courses":    {Path: "/search", LabelKey: "nav.search"},
	"facilities": {Path: "/search", LabelKey: "nav.search"},
	"search":     {Path: "/search", LabelKey: "nav.search"},
	"course":     {Path: "/course", LabelKey: "nav.course"},
}

// Build renders navigation items with active state given the current path.
// courseCount is shown next to the itinerary link.
func Build(currentPath string, courseCount int) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	activeSection := ""
	if top := firstSegment(currentPath); top != "" {
		if s, ok := sections[top]; ok {
			activeSection = s.Path
		}
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		item := RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath) || it.Path == activeSection,
		}
		if it.Path == "/course" {
			item.Badge = courseCount
		}
		items = append(items, item)
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current path. Detail pages
// hang off the search section and end with the decoded entity title.
func Breadcrumbs(currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	section, ok := sections[parts[0]]
	if !ok {
		return crumbs
	}
	crumbs = append(crumbs, Crumb{Href: section.Path, LabelKey: section.LabelKey, Active: len(parts) == 1})

	if len(parts) > 1 && section.Path == "/search" && parts[0] != "search" {
		href := "/" + parts[0] + "/" + parts[1]
		crumbs = append(crumbs, Crumb{
			Href:   href,
			Label:  titleFromSegment(parts[1]),
			Active: len(parts) == 2,
		})
	}
	return crumbs
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

func titleFromSegment(seg string) string {
	if decoded, err := url.PathUnescape(seg); err == nil {
		return decoded
	}
	return seg
}
