package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/style"
)

// BannerModel renders the one-line header:
//
//	AAC dev · Home › Cibo › Frutta
//
// It is static; the app sets the path before each render.
type BannerModel struct {
	version string
	path    []string
	width   int
}

// NewBanner returns a BannerModel for the build version.
func NewBanner(version string) BannerModel {
	if version == "" {
		version = "dev"
	}
	return BannerModel{version: version}
}

// SetPath sets the breadcrumb from the navigation stack, as category names.
func (m *BannerModel) SetPath(names []string) {
	m.path = names
}

// SetWidth constrains the header to the terminal width.
func (m *BannerModel) SetWidth(w int) {
	m.width = w
}

// Version returns the version shown in the header.
func (m BannerModel) Version() string {
	return m.version
}

// View renders the header line. Leading crumbs are elided when the path does
// not fit.
func (m BannerModel) View() string {
	title := style.BannerTitle.Render("AAC " + m.version)
	sep := style.BannerDetail.Render(" · ")
	crumbs := m.path
	for len(crumbs) > 1 && m.width > 0 {
		line := title + sep + style.Breadcrumb.Render(strings.Join(crumbs, " › "))
		if lipgloss.Width(line) <= m.width {
			break
		}
		drop := 0
		if crumbs[0] == "…" {
			if len(crumbs) <= 2 {
				break
			}
			drop = 1
		}
		crumbs = append([]string{"…"}, crumbs[drop+1:]...)
	}
	if len(crumbs) == 0 {
		return title
	}
	return title + sep + style.Breadcrumb.Render(strings.Join(crumbs, " › "))
}
