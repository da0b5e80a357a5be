package datatable

import (
	"net/url"
	"strings"
	"testing"
)

func TestParseQuery(t *testing.T) {
	u, _ := url.Parse("/admin/items?page=2&per_page=25&q=+cake+&sort_by=price&sort_order=desc&filter:category=cake&filter:name=&hidden=image_url,status&widths=name:180,price:20,bad,x:y&open=name&tab=filter")
	q := ParseQuery(u)

	if q.Path != "/admin/items" || q.Page != 2 || q.PerPage != 25 || q.Search != "cake" {
		t.Fatalf("unexpected basics: %+v", q)
	}
	if q.State.SortBy != "price" || q.State.SortOrder != Desc {
		t.Fatalf("unexpected sort: %+v", q.State)
	}
	if q.State.Filters["category"] != "cake" {
		t.Fatalf("unexpected filters: %+v", q.State.Filters)
	}
	if _, ok := q.State.Filters["name"]; ok {
		t.Fatalf("empty filter should be dropped")
	}
	if strings.Join(q.Hidden, ",") != "image_url,status" {
		t.Fatalf("unexpected hidden: %v", q.Hidden)
	}
	if q.Widths["name"] != 180 || q.Widths["price"] != MinColumnWidth || len(q.Widths) != 2 {
		t.Fatalf("unexpected widths: %v", q.Widths)
	}
	if q.Open != "name" || q.Tab != TabFilter {
		t.Fatalf("unexpected popover: %q %q", q.Open, q.Tab)
	}
}

func TestParseQueryDefaults(t *testing.T) {
	q := ParseValues(url.Values{"page": {"-3"}, "per_page": {"abc"}, "sort_order": {"sideways"}})
	if q.Page != 1 || q.PerPage != DefaultPerPage || q.State.SortOrder != Asc {
		t.Fatalf("unexpected defaults: %+v", q)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	original := &Query{
		Path:    "/admin/branches",
		Page:    3,
		PerPage: 50,
		Search:  "north",
		State:   State{SortBy: "code", SortOrder: Desc, Filters: map[string]string{"status": "1"}},
		Hidden:  []string{"phone"},
		Widths:  map[string]int{"name": 200},
	}
	u, err := url.Parse(original.ToURL())
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	back := ParseQuery(u)
	if back.ToURL() != original.ToURL() {
		t.Fatalf("round trip mismatch:\n%s\n%s", back.ToURL(), original.ToURL())
	}
}

func TestAPIValuesUseBareFilterNames(t *testing.T) {
	q := &Query{Page: 2, PerPage: 10, Search: "x", State: State{SortBy: "name", SortOrder: Asc, Filters: map[string]string{"category": "cake", "name": ""}}}
	v := q.APIValues()
	if v.Get("page") != "2" || v.Get("per_page") != "10" || v.Get("q") != "x" {
		t.Fatalf("unexpected paging params: %v", v)
	}
	if v.Get("sort_by") != "name" || v.Get("sort_order") != "asc" {
		t.Fatalf("unexpected sort params: %v", v)
	}
	if v.Get("category") != "cake" {
		t.Fatalf("expected bare filter param, got %v", v)
	}
	if _, ok := v["name"]; ok {
		t.Fatalf("empty filter should not be sent")
	}
}

func TestWithHelpersDoNotMutate(t *testing.T) {
	q := &Query{Path: "/items", Page: 4, PerPage: 10, State: State{SortOrder: Asc, Filters: map[string]string{"name": "a"}}, Widths: map[string]int{}}

	if got := q.WithPerPage(25).String(); !strings.Contains(got, "per_page=25") || strings.Contains(got, "page=4") {
		t.Fatalf("per page change should reset page: %s", got)
	}
	if got := q.WithoutFilter("name").String(); strings.Contains(got, "filter") {
		t.Fatalf("filter not removed: %s", got)
	}
	if got := q.WithColumnToggled("price").String(); !strings.Contains(got, "hidden=price") {
		t.Fatalf("column not hidden: %s", got)
	}
	if got := q.WithClearAll().String(); strings.Contains(got, "filter") || strings.Contains(got, "sort_by") {
		t.Fatalf("clear all kept state: %s", got)
	}
	if q.Page != 4 || q.State.Filters["name"] != "a" || len(q.Hidden) != 0 {
		t.Fatalf("query mutated: %+v", q)
	}
}

func TestWithPopoverToggles(t *testing.T) {
	q := &Query{Path: "/items", Page: 1, PerPage: 10, State: State{Filters: map[string]string{}}, Widths: map[string]int{}}
	if got := q.WithPopover("name", TabSort).String(); !strings.Contains(got, "open=name") {
		t.Fatalf("expected open param: %s", got)
	}
	q.Open, q.Tab = "name", TabSort
	if got := q.WithPopover("name", TabSort).String(); strings.Contains(got, "open=") {
		t.Fatalf("expected popover closed: %s", got)
	}
	if got := q.WithPopover("name", TabFilter).String(); !strings.Contains(got, "tab=filter") {
		t.Fatalf("expected tab switch: %s", got)
	}
}

func TestFromTableCapturesState(t *testing.T) {
	table, _ := newTestTable(t)
	table.Sort("price", Desc)
	table.ToggleColumn("category")
	q := FromTable("/admin/items", table, 2, 0, "tea")
	if q.PerPage != DefaultPerPage || q.State.SortBy != "price" || q.Hidden[0] != "category" || q.Search != "tea" {
		t.Fatalf("unexpected query %+v", q)
	}
}
