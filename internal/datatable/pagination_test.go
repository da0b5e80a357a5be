package datatable

import (
	"strconv"
	"strings"
	"testing"
)

func windowLabels(items []PageItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Ellipsis {
			parts = append(parts, "…")
			continue
		}
		parts = append(parts, strconv.Itoa(item.Page))
	}
	return strings.Join(parts, " ")
}

func TestPageWindowAlwaysHasEndsAndOneCurrent(t *testing.T) {
	for total := 1; total <= 15; total++ {
		for current := 1; current <= total; current++ {
			items := PageWindow(current, total)
			if items[0].Page != 1 {
				t.Fatalf("total=%d current=%d: first button is %+v", total, current, items[0])
			}
			if last := items[len(items)-1]; last.Page != total {
				t.Fatalf("total=%d current=%d: last button is %+v", total, current, last)
			}
			currents := 0
			seen := map[int]bool{}
			for _, item := range items {
				if item.Current {
					currents++
					if item.Page != current {
						t.Fatalf("wrong current page %d, want %d", item.Page, current)
					}
				}
				if !item.Ellipsis {
					if seen[item.Page] {
						t.Fatalf("total=%d current=%d: duplicate page %d in %s", total, current, item.Page, windowLabels(items))
					}
					seen[item.Page] = true
				}
			}
			if currents != 1 {
				t.Fatalf("total=%d current=%d: %d current buttons", total, current, currents)
			}
		}
	}
}

func TestPageWindowShapes(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{1, 1, "1"},
		{1, 2, "1 2"},
		{3, 10, "1 2 3 4 5 … 10"},
		{1, 10, "1 2 3 4 5 … 10"},
		{6, 10, "1 … 4 5 6 7 8 … 10"},
		{9, 10, "1 … 6 7 8 9 10"},
		{10, 10, "1 … 6 7 8 9 10"},
		{4, 7, "1 2 3 4 5 6 7"},
	}
	for _, tc := range tests {
		if got := windowLabels(PageWindow(tc.current, tc.total)); got != tc.want {
			t.Fatalf("PageWindow(%d, %d) = %q, want %q", tc.current, tc.total, got, tc.want)
		}
	}
}

func TestTotalPagesFallbacks(t *testing.T) {
	if got := (Pagination{LastPage: 4, PageCount: 9}).TotalPages(); got != 4 {
		t.Fatalf("last_page should win, got %d", got)
	}
	if got := (Pagination{PageCount: 9}).TotalPages(); got != 9 {
		t.Fatalf("expected total_pages, got %d", got)
	}
	if got := (Pagination{}).TotalPages(); got != 1 {
		t.Fatalf("expected default 1, got %d", got)
	}
}

func TestSummary(t *testing.T) {
	p := Pagination{CurrentPage: 3, PerPage: 10, Total: 95, LastPage: 10}
	if got := p.Summary(); got != "Showing 21 to 30 of 95" {
		t.Fatalf("got %q", got)
	}
	last := Pagination{CurrentPage: 10, PerPage: 10, Total: 95, LastPage: 10}
	if got := last.Summary(); got != "Showing 91 to 95 of 95" {
		t.Fatalf("got %q", got)
	}
	if got := (Pagination{}).Summary(); got != "Showing 0 to 0 of 0" {
		t.Fatalf("got %q", got)
	}
}

func TestRangePastLastPageIsEmpty(t *testing.T) {
	p := Pagination{CurrentPage: 3, PerPage: 10, Total: 20, LastPage: 2}
	if from, to := p.Range(); from != 0 || to != 0 {
		t.Fatalf("expected empty range past the last page, got %d..%d", from, to)
	}
	if got := p.Summary(); got != "Showing 0 to 0 of 20" {
		t.Fatalf("got %q", got)
	}
}

func TestMissingPerPageUsesDefault(t *testing.T) {
	p := &Pagination{CurrentPage: 3, Total: 95, LastPage: 10}
	if got := RowNumber(p, 3, 0); got != 21 {
		t.Fatalf("expected row 21 with default page size, got %d", got)
	}
	if from, to := p.Range(); from != 21 || to != 30 {
		t.Fatalf("expected 21..30, got %d..%d", from, to)
	}
}

func TestPageSizesStartAtFive(t *testing.T) {
	want := []int{5, 10, 25, 50, 100}
	if len(PageSizes) != len(want) {
		t.Fatalf("got %v", PageSizes)
	}
	for i := range want {
		if PageSizes[i] != want[i] {
			t.Fatalf("got %v", PageSizes)
		}
	}
}

func TestRowNumberingContinuous(t *testing.T) {
	for page := 1; page <= 4; page++ {
		p := &Pagination{CurrentPage: page, PerPage: 10, Total: 40, LastPage: 4}
		for i := 0; i < 10; i++ {
			want := (page-1)*10 + 1 + i
			if got := RowNumber(p, page, i); got != want {
				t.Fatalf("page %d index %d: got %d want %d", page, i, got, want)
			}
		}
	}
	withFrom := &Pagination{CurrentPage: 2, PerPage: 25, From: 26}
	if got := RowNumber(withFrom, 2, 4); got != 30 {
		t.Fatalf("expected from-based numbering, got %d", got)
	}
	if got := RowNumber(nil, 1, 0); got != 1 {
		t.Fatalf("unpaginated numbering should start at 1, got %d", got)
	}
}

func TestPrevNextBounds(t *testing.T) {
	if CanPrev(1) || !CanPrev(2) {
		t.Fatalf("unexpected CanPrev")
	}
	if CanNext(5, 5) || !CanNext(4, 5) {
		t.Fatalf("unexpected CanNext")
	}
}
