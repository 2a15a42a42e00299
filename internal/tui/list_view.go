package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/feridsherif/crms-frontend/internal/listsync"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("CRMS ADMIN CONSOLE"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.viewMode == ViewSearch {
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	}

	tab := m.current()
	if tab.sync.CurrentTotal() == 0 && !tab.sync.IsFetching() && tab.sync.State() == listsync.Ready {
		s.WriteString(helpStyle.Render("No " + strings.ToLower(tab.def.Label) + " records found."))
	} else {
		s.WriteString(m.table.View())
	}
	s.WriteString("\n\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")
	s.WriteString(m.renderListHelp())
	return s.String()
}

func (m Model) renderTabs() string {
	rendered := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.active {
			rendered = append(rendered, tabActiveStyle.Render(tab.def.Label))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab.def.Label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatusLine() string {
	tab := m.current()
	q := tab.sync.Query()
	line := fmt.Sprintf("%s · page %d of %d · %d total", tab.sync.State(), tab.sync.CurrentPage(), tab.sync.PageCount(), tab.sync.CurrentTotal())
	if q.SortField != "" {
		line += fmt.Sprintf(" · sort %s %s", q.SortField, q.Direction())
	}
	if q.SearchText != "" {
		line += fmt.Sprintf(" · search %q", q.SearchText)
	}
	out := statusStyle.Render(line)
	if m.status != "" {
		out += "\n" + statusStyle.Render(m.status)
	}
	if m.err != nil {
		out += "\n" + errorStyle.Render("Error: "+m.err.Error())
	}
	return out
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch entity",
		"←/→: Page",
		"s/S: Sort",
		"/: Search",
		"n: New",
		"e: Edit",
		"d: Delete",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

// rebuildTable renders the active tab's current rows.
func (m *Model) rebuildTable() {
	if len(m.tabs) == 0 {
		return
	}
	tab := m.tabs[m.active]
	columns := make([]table.Column, 0, len(tab.def.Columns))
	for _, c := range tab.def.Columns {
		w := c.Width
		if w <= 0 {
			w = 20
		}
		columns = append(columns, table.Column{Title: c.Title, Width: w})
	}
	recs := tab.sync.CurrentRows()
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		row := make(table.Row, 0, len(tab.def.Columns))
		for _, c := range tab.def.Columns {
			row = append(row, rec.String(c.Key))
		}
		rows = append(rows, row)
	}

	cursor := m.table.Cursor()
	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(3, m.height-12)),
	)
	if cursor >= 0 && cursor < len(rows) {
		m.table.SetCursor(cursor)
	}
}

func (m Model) selectedID() string {
	recs := m.current().sync.CurrentRows()
	i := m.table.Cursor()
	if i < 0 || i >= len(recs) {
		return ""
	}
	return recs[i].ID()
}

func (m Model) handleListLoaded(msg listLoadedMsg) Model {
	if msg.entity != m.current().def.Name || superseded(msg.err) {
		return m
	}
	m.err = msg.err
	m.rebuildTable()
	return m
}

func (m Model) handleDeleted(msg deletedMsg) Model {
	m.viewMode = ViewList
	m.deleteID = ""
	if msg.err != nil {
		m.err = msg.err
		if msg.entity == m.current().def.Name {
			m.rebuildTable()
		}
		return m
	}
	m.err = nil
	m.status = fmt.Sprintf("Deleted %s", msg.id)
	if msg.entity == m.current().def.Name {
		m.err = m.current().sync.Err()
		m.rebuildTable()
	}
	return m
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.current()
	q := tab.sync.Query()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		return m.switchTab(1)
	case "shift+tab":
		return m.switchTab(-1)
	case "right", "l", "pgdown":
		if q.PageIndex+1 < tab.sync.PageCount() {
			next := q.PageIndex + 1
			return m, queryCmd(m.ctx, tab.sync, listsync.QueryPatch{PageIndex: &next})
		}
		return m, nil
	case "left", "h", "pgup":
		if q.PageIndex > 0 {
			prev := q.PageIndex - 1
			return m, queryCmd(m.ctx, tab.sync, listsync.QueryPatch{PageIndex: &prev})
		}
		return m, nil
	case "s":
		field := m.nextSortField(q.SortField)
		return m, queryCmd(m.ctx, tab.sync, listsync.QueryPatch{SortField: &field})
	case "S":
		desc := !q.SortDescending
		return m, queryCmd(m.ctx, tab.sync, listsync.QueryPatch{SortDescending: &desc})
	case "/":
		m.viewMode = ViewSearch
		m.search.SetValue(q.SearchText)
		m.search.Focus()
		return m, textinput.Blink
	case "r":
		m.status = ""
		return m, refreshCmd(m.ctx, tab.sync)
	case "n":
		tab.dialog.Open(nil)
		return m.openForm(), nil
	case "e", "enter":
		id := m.selectedID()
		if id == "" {
			return m, nil
		}
		for _, rec := range tab.sync.CurrentRows() {
			if rec.ID() == id {
				tab.dialog.Open(rec)
				break
			}
		}
		return m.openForm(), nil
	case "d":
		if id := m.selectedID(); id != "" {
			m.deleteID = id
			m.viewMode = ViewConfirmDelete
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) switchTab(step int) (tea.Model, tea.Cmd) {
	n := len(m.tabs)
	m.active = ((m.active+step)%n + n) % n
	m.status = ""
	m.err = m.current().sync.Err()
	m.table.SetCursor(0)
	m.rebuildTable()
	return m, loadCmd(m.ctx, m.current().sync)
}

func (m Model) nextSortField(current string) string {
	cols := m.current().def.Columns
	if len(cols) == 0 {
		return ""
	}
	for i, c := range cols {
		if c.Key == current {
			return cols[(i+1)%len(cols)].Key
		}
	}
	return cols[0].Key
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.search.Blur()
		return m, nil
	case "enter":
		m.viewMode = ViewList
		m.search.Blur()
		text := strings.TrimSpace(m.search.Value())
		return m, queryCmd(m.ctx, m.current().sync, listsync.QueryPatch{SearchText: &text})
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) renderConfirmDeleteView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("DELETE " + strings.ToUpper(m.current().def.Label)))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Delete record %s? This cannot be undone.", m.deleteID))
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("y: Confirm • n/Esc: Cancel"))
	return s.String()
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		return m, deleteCmd(m.ctx, m.console, m.current().sync, m.deleteID)
	case "n", "esc":
		m.viewMode = ViewList
		m.deleteID = ""
	}
	return m, nil
}
