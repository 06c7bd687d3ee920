package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/aac-board/style"
)

// InputSubmit is emitted when the user confirms the prompt with Enter.
type InputSubmit struct {
	Purpose string
	Value   string
}

// InputCancel is emitted on Esc.
type InputCancel struct{}

// InputModel is a one-line prompt shown under the board, used for quick
// edits such as renaming a cell. Purpose is echoed in the submit message so
// one prompt serves several edits.
type InputModel struct {
	ti      textinput.Model
	label   string
	purpose string
	active  bool
}

// NewInput returns an inactive InputModel.
func NewInput() InputModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Prompt = ""
	return InputModel{ti: ti}
}

// Open shows the prompt prefilled with value and focuses it.
func (m *InputModel) Open(label, purpose, value string) tea.Cmd {
	m.label, m.purpose = label, purpose
	m.active = true
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	return m.ti.Focus()
}

// Close hides the prompt.
func (m *InputModel) Close() {
	m.active = false
	m.ti.Blur()
	m.ti.SetValue("")
}

// IsActive reports whether the prompt is visible.
func (m InputModel) IsActive() bool {
	return m.active
}

// SetWidth sizes the text field.
func (m *InputModel) SetWidth(w int) {
	m.ti.Width = max(w-len(m.label)-6, 10)
}

// Value returns the current raw text in the input field.
func (m InputModel) Value() string {
	return m.ti.Value()
}

// Update handles Enter and Esc and hands every other key to the text field.
// Enter with only blanks keeps the prompt open.
func (m InputModel) Update(message tea.Msg) (InputModel, tea.Cmd) {
	if !m.active {
		return m, nil
	}
	if k, ok := message.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(m.ti.Value())
			if value == "" {
				return m, nil
			}
			purpose := m.purpose
			m.Close()
			return m, func() tea.Msg { return InputSubmit{Purpose: purpose, Value: value} }
		case tea.KeyEsc:
			m.Close()
			return m, func() tea.Msg { return InputCancel{} }
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(message)
	return m, cmd
}

// View renders the label followed by the text field.
func (m InputModel) View() string {
	if !m.active {
		return ""
	}
	return style.PanelTitle.Render(m.label+" ❯ ") + m.ti.View()
}
