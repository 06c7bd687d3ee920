package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/miosa/aac-board/style"
)

// writeOut prints v as JSON with --json, otherwise through human. A nil
// human always prints JSON.
func writeOut(cmd *cobra.Command, app *App, v any, human func(w io.Writer)) error {
	if app.JSON || human == nil {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	human(cmd.OutOrStdout())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable lays out rows under a header, each column as wide as its
// widest cell. The table is static so nothing is highlighted.
func renderTable(titles []string, rows [][]string) string {
	cols := make([]table.Column, len(titles))
	for i, t := range titles {
		w := lipgloss.Width(t)
		for _, r := range rows {
			if i < len(r) {
				w = max(w, lipgloss.Width(r[i]))
			}
		}
		cols[i] = table.Column{Title: t, Width: w}
	}
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		trows[i] = table.Row(r)
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(style.Border).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithStyles(s),
	)
	t.SetHeight(len(trows) + 2)
	return t.View()
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm builds a prompt in the board's theme; without a terminal it falls
// back to huh's line-based accessible mode.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeCharm())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printKV(w io.Writer, pairs ...string) {
	width := 0
	for i := 0; i < len(pairs); i += 2 {
		width = max(width, len(pairs[i])+1)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		fmt.Fprintf(w, "%-*s  %s\n", width, pairs[i]+":", pairs[i+1])
	}
}
