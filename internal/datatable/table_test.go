package datatable

import (
	"errors"
	"reflect"
	"testing"
)

func testColumns() []Column {
	return []Column{
		{Accessor: "name", Header: "Name", Sortable: true, Filterable: true, FilterType: FilterText},
		{Accessor: "category", Header: "Category", Sortable: true, Filterable: true, FilterType: FilterSelect,
			FilterOptions: []Option{{Value: "cake", Label: "Cake"}, {Value: "snacks", Label: "Snacks"}}},
		{Accessor: "price", Header: "Price", Sortable: true},
	}
}

type recorder struct {
	changes  []State
	events   []string
	pages    []int
	sizes    []int
	searches []string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnTableChange: func(s State) {
			r.changes = append(r.changes, s)
			r.events = append(r.events, "change")
		},
		OnClearAllFilters: func() { r.events = append(r.events, "clear-all") },
		OnPageChange:      func(p int) { r.pages = append(r.pages, p) },
		OnPageSizeChange:  func(n int) { r.sizes = append(r.sizes, n) },
		OnSearchChange:    func(q string) { r.searches = append(r.searches, q) },
	}
}

func newTestTable(t *testing.T) (*Table, *recorder) {
	t.Helper()
	rec := &recorder{}
	table, err := New(testColumns(), rec.callbacks())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return table, rec
}

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		wantErr bool
	}{
		{name: "valid", columns: testColumns()},
		{name: "empty set", columns: nil},
		{name: "empty accessor", columns: []Column{{Accessor: " "}}, wantErr: true},
		{name: "duplicate", columns: []Column{{Accessor: "a"}, {Accessor: "a"}}, wantErr: true},
		{name: "filterable without type", columns: []Column{{Accessor: "a", Filterable: true}}, wantErr: true},
		{name: "select without options", columns: []Column{{Accessor: "a", Filterable: true, FilterType: FilterSelect}}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateColumns(tc.columns)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidColumns) {
					t.Fatalf("expected ErrInvalidColumns, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSortCarriesCommittedFilters(t *testing.T) {
	table, rec := newTestTable(t)
	table.SetPending("name", "choc")
	table.ApplyFilter("name")
	table.SetPending("category", "cake")

	table.Sort("price", Desc)

	if len(rec.changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(rec.changes))
	}
	got := rec.changes[1]
	if got.SortBy != "price" || got.SortOrder != Desc {
		t.Fatalf("unexpected sort state: %+v", got)
	}
	if got.Filters["name"] != "choc" {
		t.Fatalf("expected committed filter to ride along, got %+v", got.Filters)
	}
	if got.Filters["category"] != "" {
		t.Fatalf("pending draft leaked into payload: %+v", got.Filters)
	}
	if table.Pending("category") != "cake" {
		t.Fatalf("sort must not drop pending drafts")
	}
}

func TestSortIgnoresUnsortableColumns(t *testing.T) {
	table, rec := newTestTable(t)
	table.Columns()
	table.Sort("missing", Asc)
	if len(rec.changes) != 0 {
		t.Fatalf("expected no emission, got %d", len(rec.changes))
	}
}

func TestToggleSortCycles(t *testing.T) {
	table, _ := newTestTable(t)
	table.ToggleSort("name")
	if s := table.State(); s.SortBy != "name" || s.SortOrder != Asc {
		t.Fatalf("expected asc, got %+v", s)
	}
	table.ToggleSort("name")
	if s := table.State(); s.SortOrder != Desc {
		t.Fatalf("expected desc, got %+v", s)
	}
}

func TestPendingDraftDoesNotEmit(t *testing.T) {
	table, rec := newTestTable(t)
	table.SetPending("name", "a")
	table.SetPending("name", "ab")
	if len(rec.changes) != 0 {
		t.Fatalf("drafts must not emit, got %d", len(rec.changes))
	}
	if table.State().Filters["name"] != "" {
		t.Fatalf("draft leaked into committed state")
	}
}

func TestApplyThenClearEmitsTwice(t *testing.T) {
	table, rec := newTestTable(t)
	table.SetPending("name", "muffin")
	table.ApplyFilter("name")
	table.ClearFilter("name")

	if len(rec.changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(rec.changes))
	}
	if rec.changes[0].Filters["name"] != "muffin" {
		t.Fatalf("first change = %+v", rec.changes[0].Filters)
	}
	if v, ok := rec.changes[1].Filters["name"]; !ok || v != "" {
		t.Fatalf("second change should commit empty string, got %+v", rec.changes[1].Filters)
	}
}

func TestEmittedStateIsACopy(t *testing.T) {
	table, rec := newTestTable(t)
	table.SetPending("name", "x")
	table.ApplyFilter("name")
	rec.changes[0].Filters["name"] = "mutated"
	if table.State().Filters["name"] != "x" {
		t.Fatalf("listener mutated table state")
	}
}

func TestClearAllResetsEverything(t *testing.T) {
	table, rec := newTestTable(t)
	table.Sort("name", Desc)
	table.SetPending("category", "cake")
	table.ApplyFilter("category")
	table.SetPending("name", "draft")
	table.ToggleColumn("price")
	rec.events = nil

	table.ClearAll()

	s := table.State()
	if s.SortBy != "" || s.SortOrder != Asc {
		t.Fatalf("sort not reset: %+v", s)
	}
	for k, v := range s.Filters {
		if v != "" {
			t.Fatalf("filter %s not reset: %q", k, v)
		}
	}
	if table.Pending("name") != "" {
		t.Fatalf("draft not reset")
	}
	if len(table.VisibleColumns()) != 3 {
		t.Fatalf("visibility not reset: %v", table.Hidden())
	}
	if !reflect.DeepEqual(rec.events, []string{"change", "clear-all"}) {
		t.Fatalf("unexpected event order: %v", rec.events)
	}
}

func TestToggleColumnNeverEmits(t *testing.T) {
	table, rec := newTestTable(t)
	table.ToggleColumn("category")
	if table.IsVisible("category") {
		t.Fatalf("expected category hidden")
	}
	if got := len(table.VisibleColumns()); got != 2 {
		t.Fatalf("expected 2 visible columns, got %d", got)
	}
	table.SetColumnVisible("category", true)
	if len(rec.changes) != 0 || len(rec.pages) != 0 {
		t.Fatalf("visibility changes must not emit")
	}
}

func TestGoToPageNeverWraps(t *testing.T) {
	table, rec := newTestTable(t)
	table.Prev(1, 5)
	table.Next(5, 5)
	table.GoToPage(0, 2, 5)
	table.GoToPage(3, 3, 5)
	if len(rec.pages) != 0 {
		t.Fatalf("expected no page changes, got %v", rec.pages)
	}
	table.Next(2, 5)
	table.Prev(2, 5)
	if !reflect.DeepEqual(rec.pages, []int{3, 1}) {
		t.Fatalf("unexpected pages %v", rec.pages)
	}
}

func TestPageSizeAndSearchForwarded(t *testing.T) {
	table, rec := newTestTable(t)
	table.SetPageSize(25)
	table.SetPageSize(0)
	table.Search("abc")
	if !reflect.DeepEqual(rec.sizes, []int{25}) || !reflect.DeepEqual(rec.searches, []string{"abc"}) {
		t.Fatalf("sizes=%v searches=%v", rec.sizes, rec.searches)
	}
}

func TestRestoreDoesNotEmit(t *testing.T) {
	table, rec := newTestTable(t)
	table.Restore(State{SortBy: "price", SortOrder: Desc, Filters: map[string]string{"name": "x", "bogus": "y"}},
		[]string{"category", "bogus"}, map[string]int{"name": 10, "bogus": 100})
	if len(rec.changes) != 0 {
		t.Fatalf("restore emitted")
	}
	s := table.State()
	if s.SortBy != "price" || s.Filters["name"] != "x" {
		t.Fatalf("unexpected restored state %+v", s)
	}
	if _, ok := s.Filters["bogus"]; ok {
		t.Fatalf("unknown filter kept")
	}
	if table.IsVisible("category") {
		t.Fatalf("category should be hidden")
	}
	if w, _ := table.ColumnWidth("name"); w != MinColumnWidth {
		t.Fatalf("restored width should be clamped, got %d", w)
	}
}

func TestRowKey(t *testing.T) {
	if got := RowKey(Row{"id": float64(42)}, 3); got != "42" {
		t.Fatalf("expected id key, got %q", got)
	}
	if got := RowKey(Row{"name": "x"}, 3); got != "idx-3" {
		t.Fatalf("expected positional key, got %q", got)
	}
}

func TestCellTextUsesCellFunc(t *testing.T) {
	col := Column{Accessor: "status", Cell: func(r Row) string {
		if ValueString(r["status"]) == "1" {
			return "Active"
		}
		return "Inactive"
	}}
	if got := col.CellText(Row{"status": float64(1)}); got != "Active" {
		t.Fatalf("got %q", got)
	}
	plain := Column{Accessor: "price"}
	if got := plain.CellText(Row{"price": 12.5}); got != "12.50" {
		t.Fatalf("got %q", got)
	}
}
