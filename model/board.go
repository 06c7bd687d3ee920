package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/style"
)

// cellHeight is the rendered height of one cell including its border.
const cellHeight = 4

// BoardModel lays out the cells of the current category in a grid and keeps
// the cursor. The column count follows the terminal width and the page size.
type BoardModel struct {
	items  []grid.Item
	size   grid.PageSize
	cursor int
	offset int // first visible row
	width  int
	height int
}

// NewBoard returns an empty BoardModel.
func NewBoard() BoardModel {
	return BoardModel{size: grid.SizeMedium, width: 80, height: 16}
}

// SetSize sets the area available to the grid.
func (m *BoardModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.clamp()
}

// SetItems replaces the cells. The cursor stays on the item it was on when
// that item is still present, otherwise it is clamped.
func (m *BoardModel) SetItems(items []grid.Item, size grid.PageSize) {
	var current string
	if it, ok := m.Selected(); ok {
		current = it.ID
	}
	m.items = items
	m.size = size
	if current == "" || !m.SelectID(current) {
		m.clamp()
	}
}

// Reset puts the cursor on the first cell, as after opening a category.
func (m *BoardModel) Reset() {
	m.cursor, m.offset = 0, 0
}

// Columns is the number of cells per row.
func (m BoardModel) Columns() int {
	w := style.CellWidth(string(m.size)) + 2 // border
	return max(m.width/w, 1)
}

func (m BoardModel) visibleRows() int {
	return max(m.height/cellHeight, 1)
}

// Move shifts the cursor by dx cells and dy rows. Horizontal moves wrap
// across rows; moves past either end stop at the edge.
func (m *BoardModel) Move(dx, dy int) {
	if len(m.items) == 0 {
		return
	}
	next := m.cursor + dx + dy*m.Columns()
	if dy != 0 && (next < 0 || next >= len(m.items)) {
		return
	}
	m.cursor = min(max(next, 0), len(m.items)-1)
	m.clamp()
}

// Cursor is the index of the selected cell.
func (m BoardModel) Cursor() int {
	return m.cursor
}

// Selected returns the item under the cursor.
func (m BoardModel) Selected() (grid.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return grid.Item{}, false
	}
	return m.items[m.cursor], true
}

// Neighbor returns the item delta cells away from the cursor.
func (m BoardModel) Neighbor(delta int) (grid.Item, bool) {
	i := m.cursor + delta
	if i < 0 || i >= len(m.items) {
		return grid.Item{}, false
	}
	return m.items[i], true
}

// SelectID moves the cursor onto the item with id.
func (m *BoardModel) SelectID(id string) bool {
	for i, it := range m.items {
		if it.ID == id {
			m.cursor = i
			m.clamp()
			return true
		}
	}
	return false
}

func (m *BoardModel) clamp() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	row := m.cursor / m.Columns()
	if row < m.offset {
		m.offset = row
	}
	if rows := m.visibleRows(); row >= m.offset+rows {
		m.offset = row - rows + 1
	}
}

// View renders the visible rows of the grid.
func (m BoardModel) View() string {
	if len(m.items) == 0 {
		return style.Faint.Render("  This category is empty.")
	}
	cols := m.Columns()
	width := style.CellWidth(string(m.size))
	rows := (len(m.items) + cols - 1) / cols
	last := min(m.offset+m.visibleRows(), rows)

	var lines []string
	if m.offset > 0 {
		lines = append(lines, style.Faint.Render("  ↑ more"))
	}
	for r := m.offset; r < last; r++ {
		var cells []string
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= len(m.items) {
				break
			}
			cells = append(cells, m.renderCell(m.items[i], width, i == m.cursor))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	if last < rows {
		lines = append(lines, style.Faint.Render("  ↓ more"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderCell draws one item: the label on the first line and a kind marker
// on the second.
func (m BoardModel) renderCell(it grid.Item, width int, cursor bool) string {
	label := truncate(it.Label, width)
	var detail string
	switch v := it.Variant.(type) {
	case grid.Category:
		detail = "›"
	case grid.System:
		detail = "⚙"
		if v.Action == grid.ActionSetTense && v.Text != "" {
			detail = "⚙ " + v.Text
		}
	case grid.Symbol:
		if v.Text != "" && v.Text != it.Label {
			detail = truncate(v.Text, width)
		}
	}
	if !it.Visible {
		detail = "hidden"
	}
	return style.Cell(string(it.Kind()), it.Color, width, cursor, !it.Visible).
		Render(label + "\n" + style.Hint.Render(detail))
}

// truncate shortens s to width cells, ending with an ellipsis.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return strings.TrimRight(string(r), " ") + "…"
}
