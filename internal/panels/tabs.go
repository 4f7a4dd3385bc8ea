package panels

import (
	"errors"
	"fmt"
	"strings"
)

// Tab identifies one analysis panel on the festival page.
type Tab string

const (
	TabImages      Tab = "images"
	TabTrend       Tab = "trend"
	TabWordCloud   Tab = "wordcloud"
	TabSentiment   Tab = "sentiment"
	TabSummary     Tab = "summary"
	TabNearby      Tab = "nearby"
	TabPrecautions Tab = "precautions"
	TabRendering   Tab = "rendering"
)

// Tabs lists every panel in display order.
var Tabs = []Tab{TabImages, TabTrend, TabWordCloud, TabSentiment, TabSummary, TabNearby, TabPrecautions, TabRendering}

// ErrUnknownTab is returned by ParseTab.
var ErrUnknownTab = errors.New("panels: unknown tab")

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	name := Tab(strings.ToLower(strings.TrimSpace(s)))
	for _, tab := range Tabs {
		if tab == name {
			return tab, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// Param is the numeric knob a tab exposes.
type Param struct {
	Name    string
	Default int
	Min     int
	Max     int
}

// Clamp brings v into range; zero selects the default.
func (p Param) Clamp(v int) int {
	if v == 0 {
		return p.Default
	}
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

var params = map[Tab]Param{
	TabImages:    {Name: "num_blogs", Default: 5, Min: 1, Max: 10},
	TabWordCloud: {Name: "num_reviews", Default: 20, Min: 1, Max: 20},
	TabSentiment: {Name: "num_reviews", Default: 10, Min: 1, Max: 10},
	TabSummary:   {Name: "num_reviews", Default: 5, Min: 1, Max: 10},
	TabNearby:    {Name: "radius_km", Default: 5, Min: 1, Max: 20},
}

// Param returns the tab's knob, if any.
func (t Tab) Param() (Param, bool) {
	p, ok := params[t]
	return p, ok
}

// LabelKey is the i18n key of the tab's heading.
func (t Tab) LabelKey() string {
	return "festival.tabs." + string(t)
}
