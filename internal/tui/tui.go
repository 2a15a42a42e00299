// Package tui is a terminal admin console over the gateway API. Each entity
// tab owns a list synchronizer and a form dialog.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/formdialog"
	"github.com/feridsherif/crms-frontend/internal/listsync"
)

// Console is what the screens need from the gateway.
type Console interface {
	listsync.Lister
	formdialog.Submitter
	Delete(ctx context.Context, entity, id string) error
}

type ViewMode int

const (
	ViewList ViewMode = iota
	ViewSearch
	ViewForm
	ViewConfirmDelete
)

type entityTab struct {
	def    entities.Definition
	sync   *listsync.Synchronizer
	dialog *formdialog.Dialog
}

// Model is the bubbletea model.
type Model struct {
	ctx      context.Context
	console  Console
	tabs     []entityTab
	active   int
	viewMode ViewMode

	table  table.Model
	search textinput.Model

	// form state
	fields []string
	inputs []textinput.Model
	focus  int

	// delete confirmation
	deleteID string

	status string
	err    error
	width  int
	height int
}

// NewModel builds one tab per registered entity.
func NewModel(ctx context.Context, console Console, pageSize int) Model {
	if pageSize <= 0 {
		pageSize = 10
	}
	m := Model{
		ctx:     ctx,
		console: console,
		width:   100,
		height:  30,
	}
	for _, def := range entities.All() {
		s := listsync.New(def.Name, console, domain.ListQuery{PageSize: pageSize, SortField: def.DefaultSort})
		m.tabs = append(m.tabs, entityTab{
			def:    def,
			sync:   s,
			dialog: formdialog.New(def, console, s),
		})
	}
	m.search = textinput.New()
	m.search.Placeholder = "Search"
	m.search.CharLimit = 120
	m.rebuildTable()
	return m
}

func (m Model) current() entityTab {
	return m.tabs[m.active]
}

func (m Model) Init() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	return loadCmd(m.ctx, m.current().sync)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rebuildTable()
		return m, nil
	case listLoadedMsg:
		return m.handleListLoaded(msg), nil
	case savedMsg:
		return m.handleSaved(msg), nil
	case deletedMsg:
		return m.handleDeleted(msg), nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewForm:
		return m.renderFormView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return m.renderListView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewMode {
	case ViewSearch:
		return m.handleSearchKeys(msg)
	case ViewForm:
		return m.handleFormKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}
	return m.handleListKeys(msg)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)
