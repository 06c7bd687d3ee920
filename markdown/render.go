// Package markdown renders the help screen and admin reports for the
// terminal.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// DefaultWidth is the wrap width used by Render.
const DefaultWidth = 100

var (
	mu        sync.Mutex
	styleName = styles.AutoStyle
	renderers = map[int]*glamour.TermRenderer{}
)

// SetStyle picks the glamour style: "dark", "light", "notty" or "auto".
// Unknown names mean auto. Cached renderers are dropped.
func SetStyle(name string) {
	switch name {
	case styles.DarkStyle, styles.LightStyle, styles.NoTTYStyle:
	case "contrast":
		name = styles.DarkStyle
	default:
		name = styles.AutoStyle
	}
	mu.Lock()
	defer mu.Unlock()
	styleName = name
	renderers = map[int]*glamour.TermRenderer{}
}

func renderer(width int) *glamour.TermRenderer {
	mu.Lock()
	defer mu.Unlock()
	if r, ok := renderers[width]; ok {
		return r
	}
	opt := glamour.WithStandardStyle(styleName)
	if styleName == styles.AutoStyle {
		opt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		// Cached as nil so callers fall back to raw text.
		r = nil
	}
	renderers[width] = r
	return r
}

// Render converts markdown text to styled ANSI output.
// Falls back to raw text if the renderer is unavailable.
func Render(md string) string {
	return RenderWidth(md, DefaultWidth)
}

// RenderWidth renders with the given wrap width.
func RenderWidth(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	if width < 20 {
		width = 20
	}
	r := renderer(width)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	// glamour adds trailing newlines; trim for inline display.
	return strings.TrimRight(out, "\n")
}
