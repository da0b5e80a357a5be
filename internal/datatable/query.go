package datatable

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/safehtml"
)

const DefaultPerPage = 10

// Query is the table state as carried in a page URL.
//
//	/admin/items?page=2&per_page=25&q=cake&sort_by=price&sort_order=desc
//	    &filter:category=cake&hidden=image_url&widths=name:180,price:90
type Query struct {
	Path    string
	Page    int
	PerPage int
	Search  string
	State   State
	Hidden  []string
	Widths  map[string]int
	// Open and Tab describe the open column popover for no-script rendering.
	Open string
	Tab  PopoverTab
}

func ParseQuery(u *url.URL) *Query {
	q := ParseValues(u.Query())
	q.Path = u.Path
	return q
}

func ParseValues(values url.Values) *Query {
	q := &Query{
		Page:    parsePositive(values.Get("page"), 1),
		PerPage: parsePositive(values.Get("per_page"), DefaultPerPage),
		Search:  strings.TrimSpace(values.Get("q")),
		State: State{
			SortBy:    strings.TrimSpace(values.Get("sort_by")),
			SortOrder: ParseSortOrder(values.Get("sort_order")),
			Filters:   make(map[string]string),
		},
		Widths: make(map[string]int),
		Open:   strings.TrimSpace(values.Get("open")),
		Tab:    PopoverTab(values.Get("tab")),
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, "filter:") || len(vals) == 0 {
			continue
		}
		accessor := strings.TrimPrefix(key, "filter:")
		if accessor != "" && vals[0] != "" {
			q.State.Filters[accessor] = vals[0]
		}
	}

	if hidden := values.Get("hidden"); hidden != "" {
		for _, part := range strings.Split(hidden, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Hidden = append(q.Hidden, part)
			}
		}
	}

	if widths := values.Get("widths"); widths != "" {
		for _, part := range strings.Split(widths, ",") {
			colon := strings.LastIndex(part, ":")
			if colon <= 0 {
				continue
			}
			width, err := strconv.Atoi(part[colon+1:])
			if err != nil || width <= 0 {
				continue
			}
			q.Widths[part[:colon]] = clampWidth(width)
		}
	}
	return q
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// FromTable captures a table's current state into a query for path.
func FromTable(path string, t *Table, page, perPage int, search string) *Query {
	q := &Query{
		Path:    path,
		Page:    max(1, page),
		PerPage: perPage,
		Search:  search,
		State:   t.State(),
		Hidden:  t.Hidden(),
		Widths:  t.Widths(),
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if p := t.Popover(); p.Open {
		q.Open, q.Tab = p.Accessor, p.Tab
	}
	return q
}

func (q *Query) Clone() *Query {
	out := *q
	out.State = q.State.Clone()
	out.Hidden = append([]string(nil), q.Hidden...)
	out.Widths = make(map[string]int, len(q.Widths))
	for k, v := range q.Widths {
		out.Widths[k] = v
	}
	return &out
}

// Encode renders the query parameters in a stable order.
func (q *Query) Encode() url.Values {
	v := url.Values{}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 && q.PerPage != DefaultPerPage {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.State.SortBy != "" {
		v.Set("sort_by", q.State.SortBy)
		v.Set("sort_order", string(ParseSortOrder(string(q.State.SortOrder))))
	}
	for _, k := range sortedKeys(q.State.Filters) {
		if val := q.State.Filters[k]; val != "" {
			v.Set("filter:"+k, val)
		}
	}
	if len(q.Hidden) > 0 {
		v.Set("hidden", strings.Join(q.Hidden, ","))
	}
	if len(q.Widths) > 0 {
		keys := make([]string, 0, len(q.Widths))
		for k := range q.Widths {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+":"+strconv.Itoa(q.Widths[k]))
		}
		v.Set("widths", strings.Join(parts, ","))
	}
	if q.Open != "" {
		v.Set("open", q.Open)
		if q.Tab != "" {
			v.Set("tab", string(q.Tab))
		}
	}
	return v
}

func (q *Query) ToURL() string {
	u := &url.URL{Path: q.Path, RawQuery: q.Encode().Encode()}
	return u.String()
}

func (q *Query) ToSafeURL() safehtml.URL {
	return safehtml.URLSanitized(q.ToURL())
}

// APIValues is the list request sent to the REST API: page, per_page, q,
// sort_by, sort_order and one bare parameter per committed filter.
func (q *Query) APIValues() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(max(1, q.Page)))
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	v.Set("per_page", strconv.Itoa(perPage))
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.State.SortBy != "" {
		v.Set("sort_by", q.State.SortBy)
		v.Set("sort_order", string(ParseSortOrder(string(q.State.SortOrder))))
	}
	for k, val := range q.State.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

func (q *Query) WithPage(page int) safehtml.URL {
	next := q.Clone()
	next.Page = max(1, page)
	next.Open, next.Tab = "", ""
	return next.ToSafeURL()
}

// WithPerPage changes the page size and returns to the first page.
func (q *Query) WithPerPage(size int) safehtml.URL {
	next := q.Clone()
	next.PerPage = size
	next.Page = 1
	return next.ToSafeURL()
}

func (q *Query) WithSort(accessor string, order SortOrder) safehtml.URL {
	next := q.Clone()
	next.State.SortBy = accessor
	next.State.SortOrder = order
	next.Open, next.Tab = "", ""
	return next.ToSafeURL()
}

func (q *Query) WithoutFilter(accessor string) safehtml.URL {
	next := q.Clone()
	delete(next.State.Filters, accessor)
	next.Page = 1
	next.Open, next.Tab = "", ""
	return next.ToSafeURL()
}

// WithClearAll drops sort, filters and hidden columns but keeps search, page
// size and widths.
func (q *Query) WithClearAll() safehtml.URL {
	next := q.Clone()
	next.State = State{SortOrder: Asc, Filters: map[string]string{}}
	next.Hidden = nil
	next.Page = 1
	next.Open, next.Tab = "", ""
	return next.ToSafeURL()
}

func (q *Query) WithColumnToggled(accessor string) safehtml.URL {
	next := q.Clone()
	kept := next.Hidden[:0]
	found := false
	for _, h := range next.Hidden {
		if h == accessor {
			found = true
			continue
		}
		kept = append(kept, h)
	}
	next.Hidden = kept
	if !found {
		next.Hidden = append(next.Hidden, accessor)
	}
	return next.ToSafeURL()
}

// WithPopover opens the panel of a column on a tab, or closes it when the
// same column is already open.
func (q *Query) WithPopover(accessor string, tab PopoverTab) safehtml.URL {
	next := q.Clone()
	if q.Open == accessor && (tab == "" || tab == q.Tab) {
		next.Open, next.Tab = "", ""
	} else {
		next.Open, next.Tab = accessor, tab
	}
	return next.ToSafeURL()
}

func (q *Query) WithoutPopover() safehtml.URL {
	next := q.Clone()
	next.Open, next.Tab = "", ""
	return next.ToSafeURL()
}

// WithFilter returns a copy with a committed filter set, back on page one.
func (q *Query) WithFilter(accessor, value string) *Query {
	next := q.Clone()
	if value == "" {
		delete(next.State.Filters, accessor)
	} else {
		next.State.Filters[accessor] = value
	}
	next.Page = 1
	next.Open, next.Tab = "", ""
	return next
}

// WithSearch returns a copy with new search text, back on page one.
func (q *Query) WithSearch(text string) *Query {
	next := q.Clone()
	next.Search = strings.TrimSpace(text)
	next.Page = 1
	return next
}
