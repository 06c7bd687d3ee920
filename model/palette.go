package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/style"
)

// PaletteExecuteMsg is sent when the user selects an action.
type PaletteExecuteMsg struct {
	Action string
}

// PaletteDismissMsg is sent when the user closes the palette.
type PaletteDismissMsg struct{}

// PaletteItem is a single entry in the action palette.
type PaletteItem struct {
	Action      string // e.g. "size.big"
	Title       string // e.g. "Big cells"
	Description string
	Key         string // shortcut shown on the right, may be empty
}

func (p PaletteItem) filterValue() string {
	return p.Title + " " + p.Description + " " + p.Action
}

// PaletteModel is a filterable overlay over every board action, so actions
// without a shortcut stay reachable.
type PaletteModel struct {
	active   bool
	filter   textinput.Model
	items    []PaletteItem
	filtered []PaletteItem
	cursor   int
	width    int
	height   int
}

// NewPalette constructs a PaletteModel.
func NewPalette() PaletteModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(style.Primary)
	return PaletteModel{filter: ti}
}

const maxVisible = 12

var (
	paletteClose = key.NewBinding(key.WithKeys("esc", "ctrl+c"))
	paletteRun   = key.NewBinding(key.WithKeys("enter"))
	paletteUp    = key.NewBinding(key.WithKeys("up", "ctrl+k"))
	paletteDown  = key.NewBinding(key.WithKeys("down", "ctrl+j"))
)

// Open activates the palette with a list of actions.
func (m *PaletteModel) Open(items []PaletteItem, width, height int) tea.Cmd {
	m.active = true
	m.items = items
	m.filtered = items
	m.cursor = 0
	m.width = width
	m.height = height
	m.filter.SetValue("")
	m.filter.Width = width/2 - 6
	return m.filter.Focus()
}

// IsActive reports whether the palette overlay is visible.
func (m PaletteModel) IsActive() bool { return m.active }

// Update handles keyboard events for the palette.
func (m PaletteModel) Update(message tea.Msg) (PaletteModel, tea.Cmd) {
	if k, ok := message.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, paletteClose):
			m.close()
			return m, func() tea.Msg { return PaletteDismissMsg{} }
		case key.Matches(k, paletteRun):
			if m.cursor < len(m.filtered) {
				action := m.filtered[m.cursor].Action
				m.close()
				return m, func() tea.Msg { return PaletteExecuteMsg{Action: action} }
			}
			return m, nil
		case key.Matches(k, paletteUp):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(k, paletteDown):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	prevVal := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(message)
	if m.filter.Value() != prevVal {
		m.applyFilter()
	}
	return m, cmd
}

func (m *PaletteModel) close() {
	m.active = false
	m.filter.Blur()
}

// applyFilter keeps items containing every word of the query.
func (m *PaletteModel) applyFilter() {
	words := strings.Fields(strings.ToLower(m.filter.Value()))
	m.cursor = 0
	if len(words) == 0 {
		m.filtered = m.items
		return
	}
	var results []PaletteItem
	for _, item := range m.items {
		hay := strings.ToLower(item.filterValue())
		match := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				match = false
				break
			}
		}
		if match {
			results = append(results, item)
		}
	}
	m.filtered = results
}

// Filtered returns the entries matching the current filter.
func (m PaletteModel) Filtered() []PaletteItem {
	return m.filtered
}

// window returns the first index of the visible slice of filtered items.
func (m PaletteModel) window() int {
	if len(m.filtered) <= maxVisible {
		return 0
	}
	start := max(m.cursor-maxVisible/2, 0)
	return min(start, len(m.filtered)-maxVisible)
}

// View renders the palette as a centered overlay.
func (m PaletteModel) View() string {
	if !m.active {
		return ""
	}

	boxWidth := min(max(m.width/2, 50), m.width-4)

	var sb strings.Builder
	sb.WriteString(style.PanelTitle.Render("Actions"))
	sb.WriteByte('\n')
	sb.WriteString(m.filter.View())
	sb.WriteByte('\n')
	sb.WriteString(lipgloss.NewStyle().Foreground(style.Border).Render(strings.Repeat("─", max(boxWidth-4, 1))))
	sb.WriteByte('\n')

	if len(m.filtered) == 0 {
		sb.WriteString(style.Faint.Render("  No matching actions"))
	}
	start := m.window()
	end := min(start+maxVisible, len(m.filtered))
	for i := start; i < end; i++ {
		item := m.filtered[i]
		var line string
		if i == m.cursor {
			line = style.Selected.Render("> ") +
				lipgloss.NewStyle().Foreground(style.Secondary).Bold(true).Render(item.Title) +
				style.Faint.Render("  "+item.Description)
		} else {
			line = "  " + lipgloss.NewStyle().Foreground(style.Secondary).Render(item.Title) +
				style.Hint.Render("  "+item.Description)
		}
		if item.Key != "" {
			line += style.Hint.Render("  [" + item.Key + "]")
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteByte('\n')
		}
	}
	if len(m.filtered) > maxVisible {
		sb.WriteByte('\n')
		sb.WriteString(style.Faint.Render("  ... and more (type to filter)"))
	}

	box := style.Panel.Padding(1, 2).Width(boxWidth).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
