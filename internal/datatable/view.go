package datatable

import (
	"strconv"

	"github.com/google/safehtml"
)

const NoDataMessage = "No data found."

// Input is what a host hands the table for one render.
type Input struct {
	Data        []Row
	Loading     bool
	Pagination  *Pagination
	CurrentPage int

	ShowSearch        bool
	SearchValue       string
	SearchPlaceholder string

	// Query is the URL state used to build links. When nil it is derived
	// from the table.
	Query *Query
	// FormAction is the endpoint that receives search, filter and page size
	// forms; each form posts its return URL alongside.
	FormAction string
	RowActions func(Row) []RowAction
}

type RowAction struct {
	Label string
	URL   safehtml.URL
	// Post renders the action as a one-button form instead of a link.
	Post    bool
	Confirm string
	Class   string
}

type View struct {
	Search     SearchView
	Headers    []HeaderView
	Rows       []RowView
	Loading    bool
	Empty      bool
	Colspan    int
	HasActions bool

	Summary      string
	ShowSummary  bool
	ShowControls bool
	Pages        []PageLink
	PrevURL      safehtml.URL
	NextURL      safehtml.URL
	PrevDisabled bool
	NextDisabled bool
	PageSizes    []PageSizeOption

	HasState    bool
	ClearAllURL safehtml.URL
	Popover     *PopoverView

	SearchAction   string
	FilterAction   string
	PageSizeAction string
	ReturnURL      string
}

type SearchView struct {
	Show        bool
	Value       string
	Placeholder string
}

type HeaderView struct {
	Accessor   string
	Header     string
	Sortable   bool
	Filterable bool
	Sorted     bool
	SortArrow  string
	AriaSort   string
	Filtered   bool
	Style      safehtml.Style
	Width      int
	TriggerURL safehtml.URL
	Open       bool
}

type RowView struct {
	Key     string
	Number  int
	Cells   []string
	Actions []RowAction
}

type PageLink struct {
	Page     int
	Label    string
	Ellipsis bool
	Current  bool
	URL      safehtml.URL
}

type PageSizeOption struct {
	Size     int
	Selected bool
}

type PopoverView struct {
	Accessor   string
	Header     string
	Tab        PopoverTab
	IsSort     bool
	IsFilter   bool
	IsColumns  bool
	Sortable   bool
	Filterable bool

	SortTabURL    safehtml.URL
	FilterTabURL  safehtml.URL
	ColumnsTabURL safehtml.URL
	CloseURL      safehtml.URL

	AscURL  safehtml.URL
	DescURL safehtml.URL
	AscOn   bool
	DescOn  bool

	SelectFilter bool
	Options      []OptionView
	Pending      string
	ClearURL     safehtml.URL

	Columns []ColumnToggle
}

type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

type ColumnToggle struct {
	Header  string
	Visible bool
	URL     safehtml.URL
}

// View assembles the render model for the current state and page.
func (t *Table) View(in Input) View {
	q := in.Query
	if q == nil {
		perPage := DefaultPerPage
		if in.Pagination != nil && in.Pagination.PerPage > 0 {
			perPage = in.Pagination.PerPage
		}
		q = FromTable("", t, in.CurrentPage, perPage, in.SearchValue)
	}
	current := in.CurrentPage
	if current < 1 {
		current = 1
	}

	visible := t.VisibleColumns()
	v := View{
		Search:     SearchView{Show: in.ShowSearch, Value: in.SearchValue, Placeholder: in.SearchPlaceholder},
		Loading:    in.Loading,
		HasActions: in.RowActions != nil,
		ReturnURL:  q.ToURL(),
	}
	if in.FormAction != "" {
		v.SearchAction = in.FormAction + "/search"
		v.FilterAction = in.FormAction + "/filter"
		v.PageSizeAction = in.FormAction + "/per-page"
	}
	v.Colspan = len(visible) + 1
	if v.HasActions {
		v.Colspan++
	}

	for _, col := range visible {
		h := HeaderView{
			Accessor:   col.Accessor,
			Header:     col.Header,
			Sortable:   col.Sortable,
			Filterable: col.Filterable,
			Filtered:   t.state.Filters[col.Accessor] != "",
			TriggerURL: q.WithPopover(col.Accessor, t.defaultTab(col.Accessor)),
			Open:       t.popover.Open && t.popover.Accessor == col.Accessor,
			AriaSort:   "none",
		}
		if t.state.SortBy == col.Accessor {
			h.Sorted = true
			h.SortArrow = "▲"
			h.AriaSort = "ascending"
			if t.state.SortOrder == Desc {
				h.SortArrow = "▼"
				h.AriaSort = "descending"
			}
		}
		if w, ok := t.HeaderWidth(col.Accessor); ok {
			h.Width = w
			h.Style = safehtml.StyleFromProperties(safehtml.StyleProperties{Width: strconv.Itoa(w) + "px"})
		}
		v.Headers = append(v.Headers, h)
	}

	switch {
	case in.Loading:
	case len(in.Data) == 0:
		v.Empty = true
	default:
		for i, row := range in.Data {
			rv := RowView{Key: RowKey(row, i), Number: RowNumber(in.Pagination, current, i)}
			for _, col := range visible {
				rv.Cells = append(rv.Cells, col.CellText(row))
			}
			if in.RowActions != nil {
				rv.Actions = in.RowActions(row)
			}
			v.Rows = append(v.Rows, rv)
		}
	}

	if p := in.Pagination; p != nil {
		total := p.TotalPages()
		v.ShowSummary = true
		v.Summary = p.Summary()
		v.ShowControls = p.ShowControls()
		if v.ShowControls {
			for _, item := range PageWindow(current, total) {
				link := PageLink{Page: item.Page, Ellipsis: item.Ellipsis, Current: item.Current}
				if item.Ellipsis {
					link.Label = "…"
				} else {
					link.Label = strconv.Itoa(item.Page)
					link.URL = q.WithPage(item.Page)
				}
				v.Pages = append(v.Pages, link)
			}
			v.PrevDisabled = !CanPrev(current)
			v.NextDisabled = !CanNext(current, total)
			if !v.PrevDisabled {
				v.PrevURL = q.WithPage(current - 1)
			}
			if !v.NextDisabled {
				v.NextURL = q.WithPage(current + 1)
			}
		}
		perPage := p.PerPage
		if perPage <= 0 {
			perPage = q.PerPage
		}
		for _, size := range PageSizes {
			v.PageSizes = append(v.PageSizes, PageSizeOption{Size: size, Selected: size == perPage})
		}
	}

	v.HasState = t.state.SortBy != "" || len(t.state.ActiveFilters()) > 0 || len(t.Hidden()) > 0
	v.ClearAllURL = q.WithClearAll()
	if t.popover.Open {
		v.Popover = t.popoverView(q)
	}
	return v
}

func (t *Table) popoverView(q *Query) *PopoverView {
	col, ok := t.Column(t.popover.Accessor)
	if !ok {
		return nil
	}
	tab := t.popover.Tab
	if tab == "" {
		tab = t.defaultTab(col.Accessor)
	}
	pv := &PopoverView{
		Accessor:      col.Accessor,
		Header:        col.Header,
		Tab:           tab,
		IsSort:        tab == TabSort,
		IsFilter:      tab == TabFilter,
		IsColumns:     tab == TabColumns,
		Sortable:      col.Sortable,
		Filterable:    col.Filterable,
		SortTabURL:    q.WithPopover(col.Accessor, TabSort),
		FilterTabURL:  q.WithPopover(col.Accessor, TabFilter),
		ColumnsTabURL: q.WithPopover(col.Accessor, TabColumns),
		CloseURL:      q.WithoutPopover(),
		AscURL:        q.WithSort(col.Accessor, Asc),
		DescURL:       q.WithSort(col.Accessor, Desc),
		AscOn:         t.state.SortBy == col.Accessor && t.state.SortOrder == Asc,
		DescOn:        t.state.SortBy == col.Accessor && t.state.SortOrder == Desc,
		SelectFilter:  col.FilterType == FilterSelect,
		Pending:       t.Pending(col.Accessor),
		ClearURL:      q.WithoutFilter(col.Accessor),
	}
	for _, opt := range col.FilterOptions {
		pv.Options = append(pv.Options, OptionView{Value: opt.Value, Label: opt.Label, Selected: opt.Value == pv.Pending})
	}
	for _, c := range t.columns {
		pv.Columns = append(pv.Columns, ColumnToggle{
			Header:  c.Header,
			Visible: t.visible[c.Accessor],
			URL:     q.WithColumnToggled(c.Accessor),
		})
	}
	return pv
}
