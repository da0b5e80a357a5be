package datatable

type PopoverTab string

const (
	TabSort    PopoverTab = "sort"
	TabFilter  PopoverTab = "filter"
	TabColumns PopoverTab = "columns"
)

// Popover is the single combined sort/filter/columns panel anchored under a
// column header.
type Popover struct {
	Open     bool
	Accessor string
	Tab      PopoverTab
}

// ClickTarget describes where a document click landed.
type ClickTarget struct {
	InPopover bool
	// Trigger is the accessor whose header trigger was clicked, if any.
	Trigger string
}

func (t *Table) Popover() Popover {
	return t.popover
}

// OpenPopover opens the panel for a column, replacing any other open panel.
// Activating the trigger of the already open panel closes it.
func (t *Table) OpenPopover(accessor string) {
	if _, ok := t.Column(accessor); !ok {
		return
	}
	if t.popover.Open && t.popover.Accessor == accessor {
		t.ClosePopover()
		return
	}
	t.popover = Popover{Open: true, Accessor: accessor, Tab: t.defaultTab(accessor)}
}

func (t *Table) defaultTab(accessor string) PopoverTab {
	col, _ := t.Column(accessor)
	switch {
	case col.Sortable:
		return TabSort
	case col.Filterable:
		return TabFilter
	default:
		return TabColumns
	}
}

// SelectTab switches tabs without closing the panel.
func (t *Table) SelectTab(tab PopoverTab) {
	if !t.popover.Open {
		return
	}
	t.popover.Tab = tab
}

func (t *Table) ClosePopover() {
	t.popover = Popover{}
}

// HandleDocumentClick closes the open panel when the click landed outside it
// and outside its own trigger.
func (t *Table) HandleDocumentClick(target ClickTarget) {
	if !t.popover.Open {
		return
	}
	if target.InPopover || target.Trigger == t.popover.Accessor {
		return
	}
	t.ClosePopover()
}
