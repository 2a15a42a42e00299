package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/formdialog"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

// openForm builds one input per draft field of the active dialog.
func (m Model) openForm() Model {
	d := m.current().dialog
	def := d.Entity()
	draft := d.Draft()

	m.fields = def.FormFields()
	m.inputs = make([]textinput.Model, len(m.fields))
	for i, field := range m.fields {
		in := textinput.New()
		in.Placeholder = field
		in.CharLimit = 255
		in.SetValue(draftText(draft[field]))
		m.inputs[i] = in
	}
	m.focus = 0
	m.updateFormFocus()
	m.viewMode = ViewForm
	m.err = nil
	return m
}

func (m *Model) updateFormFocus() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func draftText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, domain.IDString(p))
		}
		return strings.Join(parts, ", ")
	default:
		return domain.IDString(t)
	}
}

func (m Model) renderFormView() string {
	d := m.current().dialog
	var s strings.Builder

	title := "NEW "
	if d.Mode() == formdialog.Edit {
		title = "EDIT "
	}
	s.WriteString(titleStyle.Render(title + strings.ToUpper(d.Entity().Label)))
	s.WriteString("\n\n")

	fieldErrs := d.FieldErrors()
	for i, input := range m.inputs {
		if i == m.focus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(fmt.Sprintf("%-14s ", m.fields[i]))
		s.WriteString(input.View())
		if msg, ok := fieldErrs[m.fields[i]]; ok {
			s.WriteString("  ")
			s.WriteString(errorStyle.Render(msg))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if err := d.SubmitError(); err != nil && len(fieldErrs) == 0 {
		s.WriteString(errorStyle.Render("Error: " + err.Error()))
		s.WriteString("\n\n")
	}
	s.WriteString(helpStyle.Render(strings.Join([]string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}, " • ")))
	return s.String()
}

func (m Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.current().dialog
	switch msg.String() {
	case "esc":
		d.Cancel()
		m.viewMode = ViewList
		return m, nil
	case "tab", "down":
		if len(m.inputs) > 0 {
			m.focus = (m.focus + 1) % len(m.inputs)
			m.updateFormFocus()
		}
		return m, nil
	case "shift+tab", "up":
		if len(m.inputs) > 0 {
			m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
			m.updateFormFocus()
		}
		return m, nil
	case "enter":
		return m, submitCmd(m.ctx, d)
	}

	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

	field := m.fields[m.focus]
	var value any = m.inputs[m.focus].Value()
	if d.Entity().IsListField(field) {
		value = utils.SplitList(m.inputs[m.focus].Value())
	}
	if err := d.Set(field, value); err != nil {
		m.err = err
	}
	return m, cmd
}

func (m Model) handleSaved(msg savedMsg) Model {
	if msg.err != nil {
		// The dialog keeps the draft and its field errors.
		return m
	}
	m.viewMode = ViewList
	m.status = fmt.Sprintf("Saved %s %s", strings.ToLower(m.current().def.Label), msg.record.ID())
	m.err = m.current().sync.Err()
	m.rebuildTable()
	return m
}
