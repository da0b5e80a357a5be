package datatable

import "sort"

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

func ParseSortOrder(raw string) SortOrder {
	if SortOrder(raw) == Desc {
		return Desc
	}
	return Asc
}

// State is the committed sort and filter state sent to the server.
type State struct {
	SortBy    string
	SortOrder SortOrder
	Filters   map[string]string
}

func (s State) Clone() State {
	out := State{SortBy: s.SortBy, SortOrder: s.SortOrder, Filters: make(map[string]string, len(s.Filters))}
	for k, v := range s.Filters {
		out.Filters[k] = v
	}
	return out
}

// ActiveFilters returns only the non-empty committed filters.
func (s State) ActiveFilters() map[string]string {
	out := make(map[string]string)
	for k, v := range s.Filters {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type Callbacks struct {
	OnPageChange      func(page int)
	OnPageSizeChange  func(size int)
	OnSearchChange    func(text string)
	OnTableChange     func(State)
	OnClearAllFilters func()
}

// Table owns the UI-only state of one list: drafts, visibility, widths,
// the open popover and any drag in progress. It is not safe for concurrent
// use; hosts mutate it from a single goroutine.
type Table struct {
	columns   []Column
	callbacks Callbacks

	state   State
	pending map[string]string
	visible map[string]bool
	widths  map[string]int

	popover Popover
	drag    *drag
}

func New(columns []Column, callbacks Callbacks) (*Table, error) {
	if err := ValidateColumns(columns); err != nil {
		return nil, err
	}
	t := &Table{
		columns:   append([]Column(nil), columns...),
		callbacks: callbacks,
		state:     State{SortOrder: Asc, Filters: make(map[string]string)},
		pending:   make(map[string]string),
		visible:   make(map[string]bool, len(columns)),
		widths:    make(map[string]int),
	}
	for _, col := range columns {
		t.visible[col.Accessor] = true
	}
	return t, nil
}

func (t *Table) Columns() []Column {
	return t.columns
}

func (t *Table) Column(accessor string) (Column, bool) {
	for _, col := range t.columns {
		if col.Accessor == accessor {
			return col, true
		}
	}
	return Column{}, false
}

func (t *Table) VisibleColumns() []Column {
	out := make([]Column, 0, len(t.columns))
	for _, col := range t.columns {
		if t.visible[col.Accessor] {
			out = append(out, col)
		}
	}
	return out
}

func (t *Table) State() State {
	return t.state.Clone()
}

// Sort commits a sort and emits it together with the committed filters.
func (t *Table) Sort(accessor string, order SortOrder) {
	col, ok := t.Column(accessor)
	if !ok || !col.Sortable {
		return
	}
	if order != Desc {
		order = Asc
	}
	t.state.SortBy = accessor
	t.state.SortOrder = order
	t.emit()
}

// ToggleSort cycles a column between ascending and descending.
func (t *Table) ToggleSort(accessor string) {
	order := Asc
	if t.state.SortBy == accessor && t.state.SortOrder == Asc {
		order = Desc
	}
	t.Sort(accessor, order)
}

// Pending returns the staged filter text for a column, falling back to the
// committed value.
func (t *Table) Pending(accessor string) string {
	if v, ok := t.pending[accessor]; ok {
		return v
	}
	return t.state.Filters[accessor]
}

func (t *Table) SetPending(accessor, value string) {
	col, ok := t.Column(accessor)
	if !ok || !col.Filterable {
		return
	}
	t.pending[accessor] = value
}

func (t *Table) ApplyFilter(accessor string) {
	col, ok := t.Column(accessor)
	if !ok || !col.Filterable {
		return
	}
	t.state.Filters[accessor] = t.Pending(accessor)
	delete(t.pending, accessor)
	t.emit()
}

func (t *Table) ClearFilter(accessor string) {
	if _, ok := t.Column(accessor); !ok {
		return
	}
	t.state.Filters[accessor] = ""
	delete(t.pending, accessor)
	t.emit()
}

// ClearAll resets sort, every filter and draft, and column visibility, then
// emits the new state followed by OnClearAllFilters.
func (t *Table) ClearAll() {
	t.state.SortBy = ""
	t.state.SortOrder = Asc
	for k := range t.state.Filters {
		t.state.Filters[k] = ""
	}
	t.pending = make(map[string]string)
	for _, col := range t.columns {
		t.visible[col.Accessor] = true
	}
	t.emit()
	if t.callbacks.OnClearAllFilters != nil {
		t.callbacks.OnClearAllFilters()
	}
}

// Restore loads state from an outside source such as a URL. Nothing is
// emitted.
func (t *Table) Restore(state State, hidden []string, widths map[string]int) {
	t.state = State{SortBy: state.SortBy, SortOrder: state.SortOrder, Filters: make(map[string]string)}
	if t.state.SortOrder == "" {
		t.state.SortOrder = Asc
	}
	if _, ok := t.Column(t.state.SortBy); !ok {
		t.state.SortBy = ""
	}
	for k, v := range state.Filters {
		if _, ok := t.Column(k); ok {
			t.state.Filters[k] = v
		}
	}
	for _, col := range t.columns {
		t.visible[col.Accessor] = true
	}
	for _, accessor := range hidden {
		if _, ok := t.visible[accessor]; ok {
			t.visible[accessor] = false
		}
	}
	t.widths = make(map[string]int)
	for k, w := range widths {
		if _, ok := t.Column(k); ok {
			t.widths[k] = max(MinColumnWidth, w)
		}
	}
}

func (t *Table) IsVisible(accessor string) bool {
	return t.visible[accessor]
}

// ToggleColumn flips visibility locally. It never emits.
func (t *Table) ToggleColumn(accessor string) {
	if v, ok := t.visible[accessor]; ok {
		t.visible[accessor] = !v
	}
}

func (t *Table) SetColumnVisible(accessor string, visible bool) {
	if _, ok := t.visible[accessor]; ok {
		t.visible[accessor] = visible
	}
}

// Hidden lists hidden accessors in column order.
func (t *Table) Hidden() []string {
	var out []string
	for _, col := range t.columns {
		if !t.visible[col.Accessor] {
			out = append(out, col.Accessor)
		}
	}
	return out
}

// Widths returns the committed widths of resized columns.
func (t *Table) Widths() map[string]int {
	out := make(map[string]int, len(t.widths))
	for k, v := range t.widths {
		out[k] = v
	}
	return out
}

// GoToPage asks the host for another page. Out of range targets are ignored,
// so Prev and Next never wrap.
func (t *Table) GoToPage(page, current, totalPages int) {
	if page < 1 || page > max(1, totalPages) || page == current {
		return
	}
	if t.callbacks.OnPageChange != nil {
		t.callbacks.OnPageChange(page)
	}
}

func (t *Table) Prev(current, totalPages int) {
	t.GoToPage(current-1, current, totalPages)
}

func (t *Table) Next(current, totalPages int) {
	t.GoToPage(current+1, current, totalPages)
}

// SetPageSize forwards a rows-per-page change. The host resets its page to 1.
func (t *Table) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	if t.callbacks.OnPageSizeChange != nil {
		t.callbacks.OnPageSizeChange(size)
	}
}

func (t *Table) Search(text string) {
	if t.callbacks.OnSearchChange != nil {
		t.callbacks.OnSearchChange(text)
	}
}

func (t *Table) emit() {
	if t.callbacks.OnTableChange != nil {
		t.callbacks.OnTableChange(t.state.Clone())
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
