package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/style"
)

// PickerItem is a destination category.
type PickerItem struct {
	Key      string
	Name     string
	Level    int  // depth under home
	Disabled bool // shown but not selectable, e.g. the item's own page
}

// PickerChoice is emitted when the user selects a category.
type PickerChoice struct {
	Purpose string
	Key     string
}

// PickerCancel is emitted when the user presses Esc.
type PickerCancel struct{}

var (
	pickerUp     = key.NewBinding(key.WithKeys("up", "k"))
	pickerDown   = key.NewBinding(key.WithKeys("down", "j"))
	pickerSelect = key.NewBinding(key.WithKeys("enter"))
	pickerCancel = key.NewBinding(key.WithKeys("esc", "q"))
)

// PickerModel is a vertical list of categories, indented by depth, used to
// choose where an item is copied or moved. Purpose is echoed in the choice.
type PickerModel struct {
	title    string
	purpose  string
	items    []PickerItem
	cursor   int
	active   bool
	width    int
	offset   int // scroll offset for long lists
	pageSize int // visible items per page
}

// NewPicker returns an inactive PickerModel.
func NewPicker() PickerModel {
	return PickerModel{pageSize: 12}
}

// Open populates the picker and activates it. The cursor starts on the
// first selectable entry.
func (m *PickerModel) Open(title, purpose string, items []PickerItem) {
	m.title, m.purpose = title, purpose
	m.items = items
	m.cursor, m.offset = 0, 0
	m.active = true
	for i, it := range items {
		if !it.Disabled {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

// Clear deactivates the picker.
func (m *PickerModel) Clear() {
	m.active = false
	m.items = nil
	m.cursor = 0
	m.offset = 0
}

// IsActive reports whether the picker is currently visible.
func (m PickerModel) IsActive() bool {
	return m.active
}

// SetWidth constrains the picker to the terminal width.
func (m *PickerModel) SetWidth(w int) {
	m.width = w
}

// Cursor returns the key under the cursor.
func (m PickerModel) Cursor() string {
	if m.cursor < len(m.items) {
		return m.items[m.cursor].Key
	}
	return ""
}

// Update handles keyboard input when the picker is active. Disabled entries
// are skipped; the list wraps at both ends.
func (m PickerModel) Update(message tea.Msg) (PickerModel, tea.Cmd) {
	if !m.active || len(m.items) == 0 {
		return m, nil
	}
	keyMsg, ok := message.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, pickerUp):
		m.step(-1)
	case key.Matches(keyMsg, pickerDown):
		m.step(+1)
	case key.Matches(keyMsg, pickerSelect):
		item := m.items[m.cursor]
		if item.Disabled {
			return m, nil
		}
		purpose := m.purpose
		m.Clear()
		return m, func() tea.Msg { return PickerChoice{Purpose: purpose, Key: item.Key} }
	case key.Matches(keyMsg, pickerCancel):
		m.Clear()
		return m, func() tea.Msg { return PickerCancel{} }
	}
	return m, nil
}

func (m *PickerModel) step(delta int) {
	n := len(m.items)
	for range n {
		m.cursor = (m.cursor + delta + n) % n
		if !m.items[m.cursor].Disabled {
			break
		}
	}
	m.scroll()
}

func (m *PickerModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.pageSize {
		m.offset = m.cursor - m.pageSize + 1
	}
}

// View renders the picker panel.
func (m PickerModel) View() string {
	if !m.active || len(m.items) == 0 {
		return ""
	}

	var sb strings.Builder
	hint := style.Faint.Render("  ↑↓ navigate · Enter select · Esc cancel")
	sb.WriteString(style.PanelTitle.Render("◈ "+m.title) + hint + "\n\n")

	end := min(m.offset+m.pageSize, len(m.items))
	if m.offset > 0 {
		sb.WriteString(style.Faint.Render("  ↑ more above") + "\n")
	}
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderItem(m.items[i], i == m.cursor))
		sb.WriteString("\n")
	}
	if end < len(m.items) {
		sb.WriteString(style.Faint.Render("  ↓ more below") + "\n")
	}
	sb.WriteString(style.Faint.Render(fmt.Sprintf("\n  %d categories", len(m.items))))

	boxStyle := style.Panel
	if m.width > 0 {
		boxStyle = boxStyle.Width(m.width - 2)
	}
	return boxStyle.Render(sb.String())
}

func (m PickerModel) renderItem(item PickerItem, isCursor bool) string {
	cursor := "    "
	if isCursor {
		cursor = style.Selected.Render("  > ")
	}
	indent := strings.Repeat("  ", item.Level)
	name := lipgloss.NewStyle()
	switch {
	case item.Disabled:
		name = name.Foreground(style.Dim)
	case isCursor:
		name = name.Bold(true)
	}
	return cursor + indent + name.Render(item.Name) + style.Hint.Render("  "+item.Key)
}
