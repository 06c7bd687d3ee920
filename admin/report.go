package admin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miosa/aac-board/client"
)

// Markdown renders the dashboard as a markdown report.
func (d Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("# Admin overview\n\n")

	if d.Health != nil {
		fmt.Fprintf(&b, "**System:** %s", d.Health.Status)
		if d.Health.Version != "" {
			fmt.Fprintf(&b, " (%s)", d.Health.Version)
		}
		if d.Health.UptimeSeconds > 0 {
			fmt.Fprintf(&b, ", up %s", formatUptime(d.Health.UptimeSeconds))
		}
		b.WriteString("\n\n")
	}

	if u := d.Users; u != nil {
		b.WriteString("## Users\n\n")
		b.WriteString("| Total | Active | Inactive |\n|---|---|---|\n")
		fmt.Fprintf(&b, "| %d | %d | %d |\n\n", u.TotalUsers, u.ActiveUsers, u.InactiveUsers)
		if len(u.RolesDistribution) > 0 {
			b.WriteString("### Roles\n\n")
			for _, name := range sortedKeys(u.RolesDistribution) {
				fmt.Fprintf(&b, "- **%s**: %d\n", name, u.RolesDistribution[name])
			}
			b.WriteString("\n")
		}
	}

	if g := d.Grids; g != nil {
		b.WriteString("## Boards\n\n")
		fmt.Fprintf(&b, "- Items: %d\n- Categories: %d\n- Users with a board: %d\n", g.TotalItems, g.TotalCategories, g.UsersWithGrids)
		for _, kind := range sortedKeys(g.ItemsByType) {
			fmt.Fprintf(&b, "- %s items: %d\n", kind, g.ItemsByType[kind])
		}
		b.WriteString("\n")
	}

	if len(d.Roles) > 0 {
		b.WriteString("## Defined roles\n\n")
		for _, r := range d.Roles {
			b.WriteString(roleLine(r))
		}
	}
	return b.String()
}

func roleLine(r client.Role) string {
	if r.Description == "" {
		return fmt.Sprintf("- `%s` %s\n", r.Name, r.DisplayName)
	}
	return fmt.Sprintf("- `%s` %s: %s\n", r.Name, r.DisplayName, r.Description)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatUptime(sec int64) string {
	d := sec / 86400
	h := (sec % 86400) / 3600
	m := (sec % 3600) / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh", d, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
