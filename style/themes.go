package style

import "github.com/charmbracelet/lipgloss"

// Theme defines a complete color palette for the board.
type Theme struct {
	Name                                        string
	Primary, Secondary, Success, Warning, Error lipgloss.TerminalColor
	Muted, Dim, Border                          lipgloss.TerminalColor
	CellSymbol, CellCategory, CellSystem        lipgloss.TerminalColor
}

// Built-in themes.
var (
	darkTheme = Theme{
		Name:         "dark",
		Primary:      lipgloss.Color("#2563EB"), // blue-600
		Secondary:    lipgloss.Color("#0D9488"), // teal-600
		Success:      lipgloss.Color("#22C55E"), // green-500
		Warning:      lipgloss.Color("#F59E0B"), // amber-500
		Error:        lipgloss.Color("#EF4444"), // red-500
		Muted:        lipgloss.Color("#6B7280"), // gray-500
		Dim:          lipgloss.Color("#374151"), // gray-700
		Border:       lipgloss.Color("#4B5563"), // gray-600
		CellSymbol:   lipgloss.Color("#60A5FA"), // blue-400
		CellCategory: lipgloss.Color("#F59E0B"), // amber-500
		CellSystem:   lipgloss.Color("#A78BFA"), // violet-400
	}

	lightTheme = Theme{
		Name:         "light",
		Primary:      lipgloss.Color("#1D4ED8"), // blue-700
		Secondary:    lipgloss.Color("#0F766E"), // teal-700
		Success:      lipgloss.Color("#16A34A"), // green-600
		Warning:      lipgloss.Color("#D97706"), // amber-600
		Error:        lipgloss.Color("#DC2626"), // red-600
		Muted:        lipgloss.Color("#9CA3AF"), // gray-400
		Dim:          lipgloss.Color("#D1D5DB"), // gray-300
		Border:       lipgloss.Color("#9CA3AF"), // gray-400
		CellSymbol:   lipgloss.Color("#2563EB"), // blue-600
		CellCategory: lipgloss.Color("#B45309"), // amber-700
		CellSystem:   lipgloss.Color("#7C3AED"), // violet-600
	}

	// High contrast for low vision users.
	contrastTheme = Theme{
		Name:         "contrast",
		Primary:      lipgloss.Color("#FFFF00"),
		Secondary:    lipgloss.Color("#00FFFF"),
		Success:      lipgloss.Color("#00FF00"),
		Warning:      lipgloss.Color("#FFA500"),
		Error:        lipgloss.Color("#FF0000"),
		Muted:        lipgloss.Color("#FFFFFF"),
		Dim:          lipgloss.Color("#C0C0C0"),
		Border:       lipgloss.Color("#FFFFFF"),
		CellSymbol:   lipgloss.Color("#FFFFFF"),
		CellCategory: lipgloss.Color("#FFFF00"),
		CellSystem:   lipgloss.Color("#00FFFF"),
	}
)

// Themes maps theme names to their definitions.
var Themes = map[string]Theme{
	"dark":     darkTheme,
	"light":    lightTheme,
	"contrast": contrastTheme,
}

// ThemeNames lists available themes in display order.
var ThemeNames = []string{"dark", "light", "contrast"}

// CurrentThemeName tracks the active theme name.
var CurrentThemeName = "dark"

// SetTheme activates a theme by name. It reports false, leaving the current
// theme in place, for an unknown name.
func SetTheme(name string) bool {
	t, ok := Themes[name]
	if !ok {
		return false
	}
	Primary, Secondary, Success, Warning, Error = t.Primary, t.Secondary, t.Success, t.Warning, t.Error
	Muted, Dim, Border = t.Muted, t.Dim, t.Border
	CellSymbol, CellCategory, CellSystem = t.CellSymbol, t.CellCategory, t.CellSystem
	CurrentThemeName = name
	rebuild()
	return true
}
