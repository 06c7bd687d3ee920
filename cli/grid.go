package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/style"
)

func newGridCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Board backup and inspection",
	}
	cmd.AddCommand(newGridExportCmd(app))
	cmd.AddCommand(newGridImportCmd(app))
	cmd.AddCommand(newGridShowCmd(app))
	return cmd
}

func newGridExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the board as JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			cats, err := c.GetGrid(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch board: %w", err)
			}
			if len(args) == 0 {
				return writeJSON(cmd.OutOrStdout(), cats)
			}
			data, err := json.MarshalIndent(cats, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], append(data, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", countSummary(cats), args[0])
			return nil
		},
	}
}

func newGridImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var cats grid.Categories
			if err := json.Unmarshal(data, &cats); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if _, ok := cats[grid.HomeKey]; !ok {
				return fmt.Errorf("%s has no %q category", args[0], grid.HomeKey)
			}
			c, _, err := app.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.SaveGrid(cmd.Context(), cats); err != nil {
				return fmt.Errorf("save board: %w", err)
			}
			return writeOut(cmd, app, map[string]int{"categories": len(cats), "items": itemCount(cats)}, func(w io.Writer) {
				fmt.Fprintf(w, "Imported %s\n", countSummary(cats))
			})
		},
	}
}

func newGridShowCmd(app *App) *cobra.Command {
	var hidden bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the board as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			cats, err := c.GetGrid(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch board: %w", err)
			}
			return writeOut(cmd, app, cats, func(w io.Writer) {
				printTree(w, cats, hidden)
			})
		},
	}

	cmd.Flags().BoolVar(&hidden, "hidden", false, "Include hidden items")
	return cmd
}

// printTree writes home and every category reachable from it, then the
// system controls. A category reached twice is expanded once.
func printTree(w io.Writer, cats grid.Categories, hidden bool) {
	seen := map[string]bool{}
	var walk func(key string, depth int)
	walk = func(key string, depth int) {
		seen[key] = true
		indent := strings.Repeat("  ", depth)
		for _, it := range cats[key] {
			if !it.Visible && !hidden {
				continue
			}
			fmt.Fprintf(w, "%s- %s\n", indent, itemLine(it))
			if target, ok := it.Target(); ok && !seen[target] {
				walk(target, depth+1)
			}
		}
	}
	fmt.Fprintln(w, style.Bold.Render("Home"))
	walk(grid.HomeKey, 1)
	if controls := cats[grid.SystemControlsKey]; len(controls) > 0 {
		fmt.Fprintln(w, style.Bold.Render("Controls"))
		walk(grid.SystemControlsKey, 1)
	}
}

func itemLine(it grid.Item) string {
	var b strings.Builder
	b.WriteString(it.Label)
	switch v := it.Variant.(type) {
	case grid.Category:
		b.WriteString(" ›")
	case grid.Symbol:
		if v.Text != it.Label {
			fmt.Fprintf(&b, " %q", v.Text)
		}
		if v.Type != "" {
			b.WriteString(style.Faint.Render(" " + string(v.Type)))
		}
	case grid.System:
		b.WriteString(style.Faint.Render(" " + v.Action))
		if v.Text != "" {
			b.WriteString(style.Faint.Render(":" + v.Text))
		}
	}
	if !it.Visible {
		b.WriteString(style.Hint.Render(" (hidden)"))
	}
	return b.String()
}

func itemCount(cats grid.Categories) int {
	n := 0
	for _, items := range cats {
		n += len(items)
	}
	return n
}

func countSummary(cats grid.Categories) string {
	return fmt.Sprintf("%d categories, %d items", len(cats), itemCount(cats))
}

func newPictogramsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pictograms",
		Short: "Pictogram lookup",
	}

	search := &cobra.Command{
		Use:     "search <query>",
		Short:   "Search ARASAAC pictograms through the backend",
		Example: "  aac pictograms search mangiare --limit 5",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			hits, err := c.SearchPictograms(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("search pictograms: %w", err)
			}
			return writeOut(cmd, app, hits, func(w io.Writer) {
				if len(hits) == 0 {
					fmt.Fprintln(w, "No pictograms found")
					return
				}
				rows := make([][]string, len(hits))
				for i, p := range hits {
					rows[i] = []string{strconv.Itoa(p.ID), p.Label(), p.URL()}
				}
				fmt.Fprintln(w, renderTable([]string{"ID", "Keyword", "URL"}, rows))
			})
		},
	}
	search.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")

	cmd.AddCommand(search)
	return cmd
}
