// Package listing is the page controller shared by every entity screen. It
// owns the authoritative list parameters, talks to the API through a Source
// and is the only thing that triggers a refetch.
package listing

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/phillip-england/branchdesk/internal/datatable"
)

const (
	SearchDebounce = 400 * time.Millisecond
	ToastLifetime  = 2500 * time.Millisecond
)

var ErrRowNotFound = errors.New("row not found on current page")

// Result is one page returned by the API.
type Result struct {
	Rows       []datatable.Row
	Pagination datatable.Pagination
}

// Source is the slice of the API a list screen needs.
type Source interface {
	List(ctx context.Context, params url.Values) (Result, error)
	SetStatus(ctx context.Context, id int64, status int) error
}

type Options struct {
	Clock   Clock
	PerPage int
	// Run executes a fetch. The default starts a goroutine; tests run
	// inline.
	Run func(func())
	// OnChange is called after every state change, outside the lock.
	OnChange func()
}

type Controller struct {
	source   Source
	clock    Clock
	run      func(func())
	onChange func()

	mu          sync.Mutex
	page        int
	perPage     int
	search      string
	searchDraft string
	state       datatable.State

	rows       []datatable.Row
	pagination *datatable.Pagination
	loading    bool
	generation uint64

	searchTimer Timer
	searchSeq   uint64

	toasts  []Toast
	toastID uint64
}

func New(source Source, opts Options) *Controller {
	c := &Controller{
		source:   source,
		clock:    opts.Clock,
		run:      opts.Run,
		onChange: opts.OnChange,
		page:     1,
		perPage:  opts.PerPage,
		state:    datatable.State{SortOrder: datatable.Asc, Filters: map[string]string{}},
	}
	if c.clock == nil {
		c.clock = RealClock()
	}
	if c.run == nil {
		c.run = func(f func()) { go f() }
	}
	if c.perPage <= 0 {
		c.perPage = datatable.DefaultPerPage
	}
	return c
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	Page        int
	PerPage     int
	Search      string
	SearchDraft string
	State       datatable.State
	Rows        []datatable.Row
	Pagination  *datatable.Pagination
	Loading     bool
	Toasts      []Toast
	Generation  uint64
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Page:        c.page,
		PerPage:     c.perPage,
		Search:      c.search,
		SearchDraft: c.searchDraft,
		State:       c.state.Clone(),
		Rows:        make([]datatable.Row, len(c.rows)),
		Loading:     c.loading,
		Toasts:      append([]Toast(nil), c.toasts...),
		Generation:  c.generation,
	}
	for i, row := range c.rows {
		s.Rows[i] = cloneRow(row)
	}
	if c.pagination != nil {
		p := *c.pagination
		s.Pagination = &p
	}
	return s
}

// Query returns the list parameters of the next request.
func (c *Controller) Query() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Controller) queryLocked() url.Values {
	q := &datatable.Query{Page: c.page, PerPage: c.perPage, Search: c.search, State: c.state}
	return q.APIValues()
}

// TableCallbacks wires a datatable's intents to this controller.
func (c *Controller) TableCallbacks(ctx context.Context) datatable.Callbacks {
	return datatable.Callbacks{
		OnPageChange:     func(page int) { c.SetPage(ctx, page) },
		OnPageSizeChange: func(size int) { c.SetPageSize(ctx, size) },
		OnSearchChange:   func(text string) { c.SetSearch(ctx, text) },
		OnTableChange:    func(s datatable.State) { c.SetTableState(ctx, s) },
	}
}

// Load restores parameters, typically from a URL, and fetches.
func (c *Controller) Load(ctx context.Context, page, perPage int, search string, state datatable.State) {
	c.mu.Lock()
	c.page = max(1, page)
	if perPage > 0 {
		c.perPage = perPage
	}
	c.search = search
	c.searchDraft = search
	c.state = state.Clone()
	if c.state.SortOrder == "" {
		c.state.SortOrder = datatable.Asc
	}
	c.mu.Unlock()
	c.refetch(ctx)
}

func (c *Controller) SetPage(ctx context.Context, page int) {
	c.mu.Lock()
	if page < 1 || page == c.page {
		c.mu.Unlock()
		return
	}
	c.page = page
	c.mu.Unlock()
	c.refetch(ctx)
}

// SetPageSize changes rows per page and returns to the first page.
func (c *Controller) SetPageSize(ctx context.Context, size int) {
	if size <= 0 {
		return
	}
	c.mu.Lock()
	c.perPage = size
	c.page = 1
	c.mu.Unlock()
	c.refetch(ctx)
}

// SetTableState commits a sort/filter change from the table and returns to
// the first page.
func (c *Controller) SetTableState(ctx context.Context, s datatable.State) {
	c.mu.Lock()
	c.state = s.Clone()
	c.page = 1
	c.mu.Unlock()
	c.refetch(ctx)
}

// SetSearch records a keystroke. Only the last keystroke of a burst reaches
// the server, SearchDebounce after it was typed, and it resets the page.
func (c *Controller) SetSearch(ctx context.Context, text string) {
	c.mu.Lock()
	c.searchDraft = text
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchSeq++
	seq := c.searchSeq
	c.searchTimer = c.clock.AfterFunc(SearchDebounce, func() {
		c.commitSearch(ctx, seq, text)
	})
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) commitSearch(ctx context.Context, seq uint64, text string) {
	c.mu.Lock()
	if seq != c.searchSeq {
		c.mu.Unlock()
		return
	}
	c.searchTimer = nil
	c.search = text
	c.page = 1
	c.mu.Unlock()
	c.refetch(ctx)
}

// Refresh refetches the current page. Responses to superseded requests are
// dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	params := c.queryLocked()
	c.loading = true
	c.mu.Unlock()
	c.changed()

	result, err := c.source.List(ctx, params)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil
	}
	c.loading = false
	if err != nil {
		c.rows = nil
		c.pagination = nil
		c.mu.Unlock()
		c.Notify(errorMessage(err, "Failed to load data"), ToastError)
		return err
	}
	c.rows = result.Rows
	p := result.Pagination
	c.pagination = &p
	if p.CurrentPage > 0 {
		c.page = p.CurrentPage
	}
	c.mu.Unlock()
	c.changed()
	return nil
}

func (c *Controller) refetch(ctx context.Context) {
	c.run(func() { _ = c.Refresh(ctx) })
}

// AfterMutation reports a successful create or update and refetches.
func (c *Controller) AfterMutation(ctx context.Context, message string) {
	c.Notify(message, ToastSuccess)
	c.refetch(ctx)
}

// ToggleStatus flips a row's status locally, sends it, and puts the old
// value back if the server refuses.
func (c *Controller) ToggleStatus(ctx context.Context, id int64) error {
	key := strconv.FormatInt(id, 10)

	c.mu.Lock()
	idx := c.indexLocked(key)
	if idx < 0 {
		c.mu.Unlock()
		return ErrRowNotFound
	}
	previous := c.rows[idx]["status"]
	next := 1
	if datatable.ValueString(previous) == "1" {
		next = 0
	}
	c.rows[idx] = cloneRow(c.rows[idx])
	c.rows[idx]["status"] = float64(next)
	c.mu.Unlock()
	c.changed()

	if err := c.source.SetStatus(ctx, id, next); err != nil {
		c.mu.Lock()
		if i := c.indexLocked(key); i >= 0 {
			c.rows[i] = cloneRow(c.rows[i])
			c.rows[i]["status"] = previous
		}
		c.mu.Unlock()
		c.Notify(errorMessage(err, "Failed to update status"), ToastError)
		return err
	}

	c.Notify("Status updated successfully", ToastSuccess)
	c.refetch(ctx)
	return nil
}

func (c *Controller) indexLocked(key string) int {
	for i, row := range c.rows {
		if datatable.ValueString(row["id"]) == key {
			return i
		}
	}
	return -1
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func cloneRow(row datatable.Row) datatable.Row {
	out := make(datatable.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

type messager interface {
	UserMessage() string
}

func errorMessage(err error, fallback string) string {
	var m messager
	if errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}
