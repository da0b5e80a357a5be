package console

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/listing"
	"github.com/phillip-england/branchdesk/internal/session"
	"github.com/phillip-england/branchdesk/internal/theme"
)

type styles struct {
	app      lipgloss.Style
	brand    lipgloss.Style
	muted    lipgloss.Style
	tab      lipgloss.Style
	tabOn    lipgloss.Style
	header   lipgloss.Style
	headerOn lipgloss.Style
	cell     lipgloss.Style
	selected lipgloss.Style
	box      lipgloss.Style
	prompt   lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	page     lipgloss.Style
	pageOn   lipgloss.Style
}

func newStyles(p theme.Palette) styles {
	primary := lipgloss.Color(p.Primary)
	text := lipgloss.Color(p.Text)
	muted := lipgloss.Color(p.Muted)
	border := lipgloss.Color(p.Border)
	return styles{
		app:      lipgloss.NewStyle().Foreground(text).Padding(0, 1),
		brand:    lipgloss.NewStyle().Foreground(primary).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(muted),
		tab:      lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		tabOn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(primary).Bold(true).Padding(0, 1),
		header:   lipgloss.NewStyle().Foreground(text).Bold(true),
		headerOn: lipgloss.NewStyle().Foreground(primary).Bold(true).Underline(true),
		cell:     lipgloss.NewStyle().Foreground(text),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(primary),
		box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		prompt:   lipgloss.NewStyle().Foreground(primary),
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#059669")).Padding(0, 1),
		failure:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#DC2626")).Padding(0, 1),
		page:     lipgloss.NewStyle().Foreground(text),
		pageOn:   lipgloss.NewStyle().Foreground(primary).Bold(true).Underline(true),
	}
}

func (m *model) View() string {
	if !m.loggedIn {
		return m.loginView()
	}
	return m.listView()
}

func (m *model) loginView() string {
	s := m.styles
	user := m.username
	pass := strings.Repeat("•", len([]rune(m.password)))
	userLabel, passLabel := "  Username: ", "  Password: "
	if m.loginField == 0 {
		userLabel = s.prompt.Render("> Username: ")
	} else {
		passLabel = s.prompt.Render("> Password: ")
	}
	lines := []string{
		s.brand.Render("branchdesk"),
		s.muted.Render("Sign in to manage branches, employees and items."),
		"",
		userLabel + user,
		passLabel + pass,
		"",
	}
	switch {
	case m.busy:
		lines = append(lines, s.muted.Render("Signing in…"))
	case m.loginErr != "":
		lines = append(lines, s.failure.Render(m.loginErr))
	default:
		lines = append(lines, s.muted.Render("tab switch field · enter sign in · esc quit"))
	}
	return s.app.Render(s.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func (m *model) listView() string {
	s := m.styles
	t := m.current()
	user := m.sessions.Current().User

	var tabs []string
	for i, tb := range m.tabs {
		label := fmt.Sprintf("%d %s", i+1, tb.title)
		if i == m.active {
			tabs = append(tabs, s.tabOn.Render(label))
		} else {
			tabs = append(tabs, s.tab.Render(label))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		s.brand.Render("branchdesk "),
		strings.Join(tabs, ""),
		s.muted.Render(fmt.Sprintf("  %s · %s (%s)", session.Initials(user.Name), user.Name, session.RoleLabel(user.Role))),
	)

	if t == nil {
		return s.app.Render(header)
	}
	snap := t.list.Snapshot()
	sections := []string{header, "", m.toolbar(t, snap), renderTable(s, t.table, snap, m.row, m.col), m.footer(snap)}
	if toasts := renderToasts(s, snap.Toasts); toasts != "" {
		sections = append(sections, toasts)
	}
	sections = append(sections, s.muted.Render("/ search · s sort · f filter · x clear · X clear all · v hide · V show all · < > width · space status · n p page · + - size · t theme · L logout · q quit"))
	return s.app.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *model) toolbar(t *tab, snap listing.Snapshot) string {
	s := m.styles
	switch m.input {
	case inputSearch:
		return s.prompt.Render("Search: ") + m.draft + "▏"
	case inputFilter:
		col, _ := m.focused()
		if col.FilterType == datatable.FilterSelect {
			value := col.OptionLabel(m.draft)
			if m.draft == "" {
				value = "All"
			}
			return s.prompt.Render("Filter "+col.Header+": ") + value + s.muted.Render("  (tab to cycle)")
		}
		return s.prompt.Render("Filter "+col.Header+": ") + m.draft + "▏"
	}
	var parts []string
	if snap.SearchDraft != "" {
		parts = append(parts, "search "+strconv.Quote(snap.SearchDraft))
	}
	for _, acc := range sortedFilters(snap.State.Filters) {
		col, _ := t.table.Column(acc)
		value := snap.State.Filters[acc]
		if col.FilterType == datatable.FilterSelect {
			value = col.OptionLabel(value)
		}
		parts = append(parts, col.Header+"="+value)
	}
	if snap.State.SortBy != "" {
		parts = append(parts, "sort "+snap.State.SortBy+" "+string(snap.State.SortOrder))
	}
	if len(parts) == 0 {
		return s.muted.Render("No filters")
	}
	return s.muted.Render(strings.Join(parts, " · "))
}

func (m *model) footer(snap listing.Snapshot) string {
	s := m.styles
	if snap.Pagination == nil {
		return ""
	}
	p := *snap.Pagination
	parts := []string{s.muted.Render(p.Summary()), s.muted.Render(fmt.Sprintf("%d per page", snap.PerPage))}
	if p.ShowControls() {
		var pages []string
		for _, item := range datatable.PageWindow(snap.Page, p.TotalPages()) {
			switch {
			case item.Ellipsis:
				pages = append(pages, s.muted.Render("…"))
			case item.Current:
				pages = append(pages, s.pageOn.Render(strconv.Itoa(item.Page)))
			default:
				pages = append(pages, s.page.Render(strconv.Itoa(item.Page)))
			}
		}
		parts = append(parts, strings.Join(pages, " "))
	}
	return strings.Join(parts, "   ")
}

// renderTable draws the visible columns at their committed widths. The
// focused column header is highlighted and the cursor row is inverted.
func renderTable(s styles, table *datatable.Table, snap listing.Snapshot, cursorRow, cursorCol int) string {
	cols := table.VisibleColumns()
	widths := make([]int, len(cols))
	for i, col := range cols {
		px, ok := table.ColumnWidth(col.Accessor)
		if !ok {
			px = defaultWidth
		}
		widths[i] = px / cellPixels
	}

	var b strings.Builder
	b.WriteString(s.header.Render(fit("#", 5)))
	for i, col := range cols {
		label := col.Header
		if snap.State.SortBy == col.Accessor {
			if snap.State.SortOrder == datatable.Desc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		if snap.State.Filters[col.Accessor] != "" {
			label += " •"
		}
		style := s.header
		if i == cursorCol {
			style = s.headerOn
		}
		b.WriteString(style.Render(fit(label, widths[i])))
	}
	b.WriteString("\n")

	switch {
	case snap.Loading:
		b.WriteString(s.muted.Render("Loading…"))
		return b.String()
	case len(snap.Rows) == 0:
		b.WriteString(s.muted.Render("No data found."))
		return b.String()
	}

	for r, row := range snap.Rows {
		var line strings.Builder
		line.WriteString(fit(strconv.Itoa(datatable.RowNumber(snap.Pagination, snap.Page, r)), 5))
		for i, col := range cols {
			line.WriteString(fit(col.CellText(row), widths[i]))
		}
		if r == cursorRow {
			b.WriteString(s.selected.Render(line.String()))
		} else {
			b.WriteString(s.cell.Render(line.String()))
		}
		if r < len(snap.Rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderToasts(s styles, toasts []listing.Toast) string {
	var out []string
	for _, t := range toasts {
		if t.Kind == listing.ToastError {
			out = append(out, s.failure.Render(t.Message))
		} else {
			out = append(out, s.success.Render(t.Message))
		}
	}
	return strings.Join(out, "\n")
}

// fit pads or truncates text to exactly width cells, leaving one cell of
// gutter.
func fit(text string, width int) string {
	width = max(width, 2)
	r := []rune(text)
	limit := width - 1
	if len(r) > limit {
		r = append(r[:limit-1], '…')
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}

func sortedFilters(filters map[string]string) []string {
	var keys []string
	for k, v := range filters {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
