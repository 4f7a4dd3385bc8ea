package nav

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildMarksSection(t *testing.T) {
	items := Build("/festivals/%EB%B3%B4%EB%A0%B9", 3)
	active := map[string]bool{}
	for _, it := range items {
		active[it.Href] = it.Active
		if it.Href == "/course" && it.Badge != 3 {
			t.Errorf("expected course badge 3, got %d", it.Badge)
		}
	}
	want := map[string]bool{"/": false, "/search": true, "/course": false}
	if diff := cmp.Diff(want, active); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}

	for _, it := range Build("/", 0) {
		if it.Active != (it.Href == "/") {
			t.Errorf("unexpected active state for %s on /", it.Href)
		}
	}
}

func TestBreadcrumbs(t *testing.T) {
	got := Breadcrumbs("/festivals/%EB%B3%B4%EB%A0%B9%EB%A8%B8%EB%93%9C%EC%B6%95%EC%A0%9C")
	want := []Crumb{
		{Href: "/", LabelKey: "nav.home"},
		{Href: "/search", LabelKey: "nav.search"},
		{Href: "/festivals/%EB%B3%B4%EB%A0%B9%EB%A8%B8%EB%93%9C%EC%B6%95%EC%A0%9C", Label: "보령머드축제", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}

	course := Breadcrumbs("/course")
	if len(course) != 2 || !course[1].Active || course[1].LabelKey != "nav.course" {
		t.Errorf("unexpected course crumbs: %+v", course)
	}
}
