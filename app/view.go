package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/markdown"
	"github.com/miosa/aac-board/model"
	"github.com/miosa/aac-board/style"
)

func (m Model) View() string {
	switch m.state {
	case StateLogin:
		return m.frame(style.Panel.Render(m.form.View()))
	case StateLoading:
		return m.frame(style.Faint.Render("  Loading the board…"))
	case StateHelp:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.banner.View(),
			m.helpView.View(),
			style.Hint.Render(fmt.Sprintf("  %3.f%% · esc to close", m.helpView.ScrollPercent()*100)),
		)
	}
	if m.palette.IsActive() {
		return m.palette.View()
	}

	st := m.deps.Board.State()
	sections := []string{
		m.banner.View(),
		model.SentenceView(st.Text, m.width),
	}
	if controls := model.ControlsView(m.controls(st), st.Mode == grid.ModeEditor, m.width); controls != "" {
		sections = append(sections, controls)
	}
	switch {
	case m.form != nil:
		sections = append(sections, style.Panel.Render(m.form.View()))
	case m.picker.IsActive():
		sections = append(sections, m.picker.View())
	default:
		sections = append(sections, m.board.View())
	}
	if m.input.IsActive() {
		sections = append(sections, m.input.View())
	}
	if t := m.toasts.View(m.width); t != "" {
		sections = append(sections, t)
	}
	sections = append(sections, m.status.View(), m.helpBar.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// frame shows content under the header with toasts and the status line.
func (m Model) frame(content string) string {
	parts := []string{m.banner.View(), "", content}
	if t := m.toasts.View(m.width); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, m.status.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// controls builds the control row from the system controls page.
func (m Model) controls(st grid.State) []model.Control {
	items := st.Categories[grid.SystemControlsKey]
	out := make([]model.Control, 0, len(items))
	for _, it := range items {
		sys, ok := it.Variant.(grid.System)
		if !ok {
			continue
		}
		c := model.Control{Label: it.Label, Hidden: !it.Visible}
		switch sys.Action {
		case grid.ActionDeleteLastWord:
			c.Key = "⌫"
		case grid.ActionDeleteAllText:
			c.Key = "x"
		case grid.ActionSpeakText:
			c.Key = "space"
		case grid.ActionSetTense:
			c.Active = sys.Text == string(st.Tense)
		}
		out = append(out, c)
	}
	return out
}

var helpSections = []string{"Moving around", "Text bar", "Editing (editor mode)", "General"}

// helpMarkdown lists the key bindings by section.
func (m Model) helpMarkdown() string {
	var b strings.Builder
	b.WriteString("# AAC board\n\n")
	b.WriteString("Select symbols to compose a sentence, open categories to find more, ")
	b.WriteString("and speak the sentence when it is ready.\n\n")
	for i, group := range m.keys.FullHelp() {
		if i < len(helpSections) {
			fmt.Fprintf(&b, "## %s\n\n", helpSections[i])
		}
		b.WriteString("| Key | Action |\n|---|---|\n")
		for _, k := range group {
			h := k.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Tips\n\n")
	b.WriteString("- Tense changes conjugate the verbs already in the text bar.\n")
	b.WriteString("- Hidden items stay on the board in editor mode, dimmed.\n")
	b.WriteString("- Press `:` for actions without a key, such as themes and logout.\n")
	return b.String()
}

func (m *Model) openHelp() {
	m.helpView.SetContent(markdown.RenderWidth(m.helpMarkdown(), m.width-4))
	m.helpView.GotoTop()
	m.state = StateHelp
}

var _ help.KeyMap = KeyMap{}
