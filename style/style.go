package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors of the active theme. SetTheme rewrites them.
var (
	Primary   lipgloss.TerminalColor = lipgloss.Color("#2563EB") // blue-600
	Secondary lipgloss.TerminalColor = lipgloss.Color("#0D9488") // teal-600
	Success   lipgloss.TerminalColor = lipgloss.Color("#22C55E") // green-500
	Warning   lipgloss.TerminalColor = lipgloss.Color("#F59E0B") // amber-500
	Error     lipgloss.TerminalColor = lipgloss.Color("#EF4444") // red-500
	Muted     lipgloss.TerminalColor = lipgloss.Color("#6B7280") // gray-500
	Dim       lipgloss.TerminalColor = lipgloss.Color("#374151") // gray-700
	Border    lipgloss.TerminalColor = lipgloss.Color("#4B5563") // gray-600

	// Cell borders by item kind
	CellSymbol   lipgloss.TerminalColor = lipgloss.Color("#60A5FA")
	CellCategory lipgloss.TerminalColor = lipgloss.Color("#F59E0B")
	CellSystem   lipgloss.TerminalColor = lipgloss.Color("#A78BFA")
)

// Base styles. rebuild recreates them after a theme change.
var (
	Bold      lipgloss.Style
	Faint     lipgloss.Style
	ErrorText lipgloss.Style
	Hint      lipgloss.Style

	// Header
	BannerTitle  lipgloss.Style
	BannerDetail lipgloss.Style
	Breadcrumb   lipgloss.Style

	// Text bar
	TextBar  lipgloss.Style
	TextWord lipgloss.Style
	TextHint lipgloss.Style

	// Control row
	Control       lipgloss.Style
	ControlHidden lipgloss.Style
	ControlKey    lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusMode   lipgloss.Style
	StatusEditor lipgloss.Style
	StatusTense  lipgloss.Style
	HealthUp     lipgloss.Style
	HealthDown   lipgloss.Style

	// Overlays
	Panel      lipgloss.Style
	PanelTitle lipgloss.Style
	Selected   lipgloss.Style
	Unselected lipgloss.Style
)

func init() { rebuild() }

func rebuild() {
	Bold = lipgloss.NewStyle().Bold(true)
	Faint = lipgloss.NewStyle().Foreground(Muted)
	ErrorText = lipgloss.NewStyle().Foreground(Error).Bold(true)
	Hint = lipgloss.NewStyle().Foreground(Dim)

	BannerTitle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	BannerDetail = lipgloss.NewStyle().
		Foreground(Muted)
	Breadcrumb = lipgloss.NewStyle().
		Foreground(Secondary)

	TextBar = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(0, 1)
	TextWord = lipgloss.NewStyle().
		Bold(true)
	TextHint = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)

	Control = lipgloss.NewStyle().
		Foreground(CellSystem).
		Bold(true)
	ControlHidden = lipgloss.NewStyle().
		Foreground(Dim).
		Strikethrough(true)
	ControlKey = lipgloss.NewStyle().
		Foreground(Muted)

	StatusBar = lipgloss.NewStyle().
		Foreground(Muted).
		PaddingLeft(1)
	StatusMode = lipgloss.NewStyle().
		Foreground(Secondary)
	StatusEditor = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)
	StatusTense = lipgloss.NewStyle().
		Foreground(Primary)
	HealthUp = lipgloss.NewStyle().
		Foreground(Success)
	HealthDown = lipgloss.NewStyle().
		Foreground(Error)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	PanelTitle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	Selected = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
	Unselected = lipgloss.NewStyle().
		Foreground(Muted)
}

// CellWidth is the inner width of a board cell for each page size.
func CellWidth(size string) int {
	switch size {
	case "small":
		return 12
	case "big":
		return 24
	default:
		return 17
	}
}

// Cell returns the style of a board cell. kind is the item's wire kind; color
// is the item's own color, which wins over the kind color when set.
func Cell(kind, color string, width int, cursor, hidden bool) lipgloss.Style {
	var border lipgloss.TerminalColor
	switch kind {
	case "category":
		border = CellCategory
	case "system":
		border = CellSystem
	default:
		border = CellSymbol
	}
	if c := strings.TrimSpace(color); c != "" {
		border = lipgloss.Color(c)
	}
	s := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
	if cursor {
		s = s.Border(lipgloss.ThickBorder()).Bold(true)
	}
	if hidden {
		s = s.Foreground(Dim).Faint(true)
	}
	return s
}
