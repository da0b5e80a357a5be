package datatable

const MinColumnWidth = 50

// PointerSource delivers document-level pointer events. Each subscription
// returns the function that removes it.
type PointerSource interface {
	OnMove(func(x int)) (unsubscribe func())
	OnUp(func(x int)) (unsubscribe func())
}

type drag struct {
	accessor   string
	startX     int
	startWidth int
	live       int
	stopMove   func()
	stopUp     func()
}

func clampWidth(width int) int {
	return max(MinColumnWidth, width)
}

// BeginResize starts a drag on a column's resize handle. Move events update
// the live width of that column's header only; the up event commits it and
// removes both listeners.
func (t *Table) BeginResize(accessor string, startX, startWidth int, pointer PointerSource) {
	if _, ok := t.Column(accessor); !ok || pointer == nil {
		return
	}
	t.cancelDrag()

	d := &drag{accessor: accessor, startX: startX, startWidth: startWidth, live: clampWidth(startWidth)}
	t.drag = d
	d.stopMove = pointer.OnMove(func(x int) {
		if t.drag != d {
			return
		}
		d.live = clampWidth(d.startWidth + (x - d.startX))
	})
	d.stopUp = pointer.OnUp(func(x int) {
		if t.drag != d {
			return
		}
		t.widths[d.accessor] = clampWidth(d.startWidth + (x - d.startX))
		t.cancelDrag()
	})
}

func (t *Table) cancelDrag() {
	d := t.drag
	if d == nil {
		return
	}
	t.drag = nil
	if d.stopMove != nil {
		d.stopMove()
	}
	if d.stopUp != nil {
		d.stopUp()
	}
}

func (t *Table) Resizing() bool {
	return t.drag != nil
}

// LiveWidth is the uncommitted width of the header being dragged.
func (t *Table) LiveWidth(accessor string) (int, bool) {
	if t.drag == nil || t.drag.accessor != accessor {
		return 0, false
	}
	return t.drag.live, true
}

// HeaderWidth is the width a header renders at: live during a drag,
// otherwise the committed width if any.
func (t *Table) HeaderWidth(accessor string) (int, bool) {
	if w, ok := t.LiveWidth(accessor); ok {
		return w, true
	}
	w, ok := t.widths[accessor]
	return w, ok
}

// ColumnWidth is the committed width of a column, if it was resized.
func (t *Table) ColumnWidth(accessor string) (int, bool) {
	w, ok := t.widths[accessor]
	return w, ok
}

// NudgeWidth commits a keyboard resize relative to the current width, or to
// base when the column has not been resized yet.
func (t *Table) NudgeWidth(accessor string, delta, base int) int {
	if _, ok := t.Column(accessor); !ok {
		return 0
	}
	current, ok := t.widths[accessor]
	if !ok {
		current = base
	}
	t.widths[accessor] = clampWidth(current + delta)
	return t.widths[accessor]
}
