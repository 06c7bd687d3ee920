package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/style"
)

// SentenceView renders the text bar: the composed words inside a box, or a
// hint when nothing has been selected yet.
func SentenceView(buf []grid.TextItem, width int) string {
	var body string
	if len(buf) == 0 {
		body = style.TextHint.Render("Select symbols to build a sentence")
	} else {
		words := make([]string, len(buf))
		for i, t := range buf {
			words[i] = style.TextWord.Render(t.Text)
		}
		body = strings.Join(words, " ")
	}
	s := style.TextBar
	if width > 4 {
		s = s.Width(width - 2)
	}
	return s.Render(body)
}

// Control is one entry of the control row.
type Control struct {
	Label  string
	Key    string // shortcut, empty when none
	Hidden bool
	Active bool // e.g. the current tense
}

// ControlsView renders the system controls shown on every page:
//
//	[⌫] Cancella ultimo  [x] Cancella tutto  [space] Leggi  [t] Presente
//
// Hidden controls are only listed in editor mode, struck through.
func ControlsView(controls []Control, editor bool, width int) string {
	var parts []string
	for _, c := range controls {
		if c.Hidden && !editor {
			continue
		}
		label := style.Control.Render(c.Label)
		switch {
		case c.Hidden:
			label = style.ControlHidden.Render(c.Label)
		case c.Active:
			label = style.Selected.Underline(true).Render(c.Label)
		}
		if c.Key != "" {
			label = style.ControlKey.Render("["+c.Key+"] ") + label
		}
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return ""
	}
	line := strings.Join(parts, "  ")
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}
