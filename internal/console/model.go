package console

import (
	"context"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/phillip-england/branchdesk/internal/apiclient"
	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/listing"
	"github.com/phillip-england/branchdesk/internal/session"
	"github.com/phillip-england/branchdesk/internal/theme"
)

const (
	// terminal cells are measured against the pixel widths the table stores
	cellPixels   = 8
	defaultWidth = 120
	nudgePixels  = 2 * cellPixels
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputFilter
)

type deps struct {
	ctx      context.Context
	sessions *session.Store
	themes   *theme.Store
	source   func(apiclient.Entity) listing.Source
	clock    listing.Clock
	run      func(func())
}

type model struct {
	deps
	changes chan struct{}

	width  int
	height int
	styles styles

	// login form
	loggedIn   bool
	username   string
	password   string
	loginField int
	loginErr   string
	busy       bool

	tabs   []*tab
	active int
	input  inputMode
	draft  string
	row    int
	col    int
}

type changedMsg struct{}

type loginMsg struct {
	user session.User
	err  error
}

type logoutMsg struct{}

func newModel(d deps) *model {
	if d.ctx == nil {
		d.ctx = context.Background()
	}
	m := &model{deps: d, changes: make(chan struct{}, 1)}
	m.styles = newStyles(d.themes.Palette())
	return m
}

// notify wakes the program after a controller change. It never blocks: one
// pending wake-up covers any number of changes.
func (m *model) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *model) waitForChange() tea.Cmd {
	ch, ctx := m.changes, m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *model) Init() tea.Cmd {
	if current := m.sessions.Current(); current.Authenticated() {
		if err := m.enterList(current.User); err != nil {
			m.loginErr = err.Error()
		}
	}
	return m.waitForChange()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case changedMsg:
		m.clampCursor()
		return m, m.waitForChange()
	case loginMsg:
		m.busy = false
		if msg.err != nil {
			m.loginErr = apiclient.MessageOf(msg.err, "Invalid credentials")
			m.password = ""
			return m, nil
		}
		if err := m.enterList(msg.user); err != nil {
			m.loginErr = err.Error()
		}
		return m, nil
	case logoutMsg:
		m.loggedIn = false
		m.tabs = nil
		m.password = ""
		m.loginField = 1
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if !m.loggedIn {
			return m.loginKey(msg)
		}
		return m.listKey(msg)
	}
	return m, nil
}

func (m *model) loginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.loginField = 1 - m.loginField
	case tea.KeyEnter:
		if m.loginField == 0 {
			m.loginField = 1
			return m, nil
		}
		if strings.TrimSpace(m.username) == "" || m.password == "" {
			m.loginErr = "Username and password are required"
			return m, nil
		}
		m.busy = true
		m.loginErr = ""
		return m, m.login(m.username, m.password)
	case tea.KeyBackspace:
		if m.loginField == 0 {
			m.username = dropLast(m.username)
		} else {
			m.password = dropLast(m.password)
		}
	case tea.KeyRunes, tea.KeySpace:
		if m.loginField == 0 {
			m.username += string(msg.Runes)
		} else {
			m.password += string(msg.Runes)
		}
	}
	return m, nil
}

func (m *model) login(username, password string) tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		user, err := sessions.Login(ctx, username, password)
		return loginMsg{user: user, err: err}
	}
}

func (m *model) logout() tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		_ = sessions.Logout(ctx)
		return logoutMsg{}
	}
}

func (m *model) enterList(user session.User) error {
	if err := m.buildTabs(m.ctx, user.Role); err != nil {
		return err
	}
	m.loggedIn = true
	m.row, m.col = 0, 0
	m.input = inputNone
	m.activate(0)
	return nil
}

func (m *model) activate(i int) {
	if len(m.tabs) == 0 {
		return
	}
	m.active = (i + len(m.tabs)) % len(m.tabs)
	m.row, m.col = 0, 0
	t := m.tabs[m.active]
	if !t.loaded {
		t.loaded = true
		t.list.Load(m.ctx, 1, 0, "", t.table.State())
	}
}

func (m *model) current() *tab {
	if len(m.tabs) == 0 {
		return nil
	}
	return m.tabs[m.active]
}

// focused is the column under the cursor.
func (m *model) focused() (datatable.Column, bool) {
	t := m.current()
	if t == nil {
		return datatable.Column{}, false
	}
	cols := t.table.VisibleColumns()
	if len(cols) == 0 {
		return datatable.Column{}, false
	}
	m.col = min(max(m.col, 0), len(cols)-1)
	return cols[m.col], true
}

func (m *model) listKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.current()
	if t == nil {
		return m, nil
	}
	switch m.input {
	case inputSearch:
		return m.searchKey(t, msg)
	case inputFilter:
		return m.filterKey(t, msg)
	}

	snap := t.list.Snapshot()
	total := 1
	if snap.Pagination != nil {
		total = snap.Pagination.TotalPages()
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "]":
		m.activate(m.active + 1)
	case "shift+tab", "[":
		m.activate(m.active - 1)
	case "up", "k":
		m.row = max(0, m.row-1)
	case "down", "j":
		m.row = min(len(snap.Rows)-1, m.row+1)
		m.row = max(0, m.row)
	case "left", "h":
		m.col = max(0, m.col-1)
	case "right", "l":
		m.col++
		m.focused()
	case "/":
		m.input = inputSearch
		m.draft = snap.SearchDraft
	case "s":
		if col, ok := m.focused(); ok {
			t.table.ToggleSort(col.Accessor)
		}
	case "f":
		if col, ok := m.focused(); ok && col.Filterable {
			m.input = inputFilter
			m.draft = t.table.Pending(col.Accessor)
		}
	case "x":
		if col, ok := m.focused(); ok {
			t.table.ClearFilter(col.Accessor)
		}
	case "X":
		t.table.ClearAll()
	case "v":
		if col, ok := m.focused(); ok && len(t.table.VisibleColumns()) > 1 {
			t.table.ToggleColumn(col.Accessor)
			m.focused()
		}
	case "V":
		for _, col := range t.table.Columns() {
			t.table.SetColumnVisible(col.Accessor, true)
		}
	case "<", ">":
		if col, ok := m.focused(); ok {
			delta := nudgePixels
			if msg.String() == "<" {
				delta = -delta
			}
			t.table.NudgeWidth(col.Accessor, delta, defaultWidth)
		}
	case " ":
		if snap.Loading || m.row >= len(snap.Rows) {
			return m, nil
		}
		id, err := strconv.ParseInt(datatable.ValueString(snap.Rows[m.row]["id"]), 10, 64)
		if err != nil {
			return m, nil
		}
		ctrl, ctx := t.list, m.ctx
		return m, func() tea.Msg {
			_ = ctrl.ToggleStatus(ctx, id)
			return nil
		}
	case "n":
		t.table.Next(snap.Page, total)
	case "p":
		t.table.Prev(snap.Page, total)
	case "+", "=":
		t.table.SetPageSize(stepPageSize(snap.PerPage, 1))
	case "-":
		t.table.SetPageSize(stepPageSize(snap.PerPage, -1))
	case "r":
		ctrl, ctx := t.list, m.ctx
		return m, func() tea.Msg {
			_ = ctrl.Refresh(ctx)
			return nil
		}
	case "t":
		if _, err := m.themes.Toggle(); err == nil {
			m.styles = newStyles(m.themes.Palette())
		}
	case "L":
		return m, m.logout()
	}
	return m, nil
}

func (m *model) searchKey(t *tab, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.input = inputNone
		return m, nil
	case tea.KeyBackspace:
		m.draft = dropLast(m.draft)
	case tea.KeyRunes, tea.KeySpace:
		m.draft += string(msg.Runes)
	default:
		return m, nil
	}
	m.row = 0
	t.table.Search(m.draft)
	return m, nil
}

func (m *model) filterKey(t *tab, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	col, ok := m.focused()
	if !ok {
		m.input = inputNone
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEnter:
		t.table.SetPending(col.Accessor, m.draft)
		t.table.ApplyFilter(col.Accessor)
		m.input = inputNone
		m.row = 0
		return m, nil
	case tea.KeyEsc:
		t.table.SetPending(col.Accessor, t.table.State().Filters[col.Accessor])
		m.input = inputNone
		return m, nil
	case tea.KeyTab:
		if col.FilterType == datatable.FilterSelect {
			m.draft = nextOption(col.FilterOptions, m.draft)
		}
	case tea.KeyBackspace:
		m.draft = dropLast(m.draft)
	case tea.KeyRunes, tea.KeySpace:
		if col.FilterType == datatable.FilterSelect {
			return m, nil
		}
		m.draft += string(msg.Runes)
	}
	t.table.SetPending(col.Accessor, m.draft)
	return m, nil
}

func (m *model) clampCursor() {
	t := m.current()
	if t == nil {
		return
	}
	rows := len(t.list.Snapshot().Rows)
	m.row = max(0, min(m.row, rows-1))
}

// nextOption cycles through options, with "" (all) between the last and the
// first.
func nextOption(options []datatable.Option, current string) string {
	if current == "" {
		if len(options) == 0 {
			return ""
		}
		return options[0].Value
	}
	for i, opt := range options {
		if opt.Value == current {
			if i+1 < len(options) {
				return options[i+1].Value
			}
			return ""
		}
	}
	return ""
}

// stepPageSize moves to the neighbouring rows-per-page option.
func stepPageSize(current, step int) int {
	sizes := datatable.PageSizes
	idx := 0
	for i, size := range sizes {
		if size == current {
			idx = i
			break
		}
		if size < current {
			idx = i
		}
	}
	idx = min(max(idx+step, 0), len(sizes)-1)
	return sizes[idx]
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
