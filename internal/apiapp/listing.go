package apiapp

import (
	"net/url"
	"sort"
	"strings"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
	LastPage    int `json:"last_page"`
}

// filterRows applies q, column filters and ordering from params. Unknown
// parameters are ignored.
func filterRows(e *entity, rows []record, params url.Values) []record {
	search := strings.ToLower(strings.TrimSpace(params.Get("q")))
	out := make([]record, 0, len(rows))
	for _, row := range rows {
		if search != "" && !matchesSearch(e, row, search) {
			continue
		}
		if !matchesFilters(e, row, params) {
			continue
		}
		out = append(out, row)
	}
	sortRows(e, out, params.Get("sort_by"), params.Get("sort_order"))
	return out
}

func matchesSearch(e *entity, row record, search string) bool {
	for _, f := range e.columns() {
		if !f.Search {
			continue
		}
		if strings.Contains(strings.ToLower(row.text(f.Name)), search) {
			return true
		}
	}
	return false
}

func matchesFilters(e *entity, row record, params url.Values) bool {
	for name, values := range params {
		switch name {
		case "q", "page", "per_page", "sort_by", "sort_order":
			continue
		}
		f, ok := e.column(name)
		if !ok || len(values) == 0 {
			continue
		}
		want := strings.TrimSpace(values[0])
		if want == "" {
			continue
		}
		got := row.text(f.Name)
		if f.Kind == kindInt || f.Kind == kindFloat || len(f.Options) > 0 {
			if got != want {
				return false
			}
			continue
		}
		if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

// sortRows orders by sortBy when it names a column, newest first otherwise.
func sortRows(e *entity, rows []record, sortBy, order string) {
	f, ok := e.column(sortBy)
	if !ok {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].integer("id") > rows[j].integer("id")
		})
		return
	}
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareColumn(f, rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareColumn(f field, a, b record) int {
	switch f.Kind {
	case kindInt:
		return compareOrdered(a.integer(f.Name), b.integer(f.Name))
	case kindFloat:
		return compareOrdered(a.decimal(f.Name), b.decimal(f.Name))
	default:
		return strings.Compare(strings.ToLower(a.text(f.Name)), strings.ToLower(b.text(f.Name)))
	}
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// paginate slices one page out of rows. A page past the end is clamped to
// the last page.
func paginate(rows []record, params url.Values) ([]record, pagination) {
	perPage := min(parsePositiveInt(params.Get("per_page"), defaultPerPage), maxPerPage)
	page := parsePositiveInt(params.Get("page"), 1)
	total := len(rows)
	lastPage := max(1, (total+perPage-1)/perPage)
	page = min(page, lastPage)

	p := pagination{CurrentPage: page, PerPage: perPage, Total: total, LastPage: lastPage}
	start := (page - 1) * perPage
	if start >= total {
		return []record{}, p
	}
	end := min(start+perPage, total)
	p.From = start + 1
	p.To = end
	return rows[start:end], p
}
