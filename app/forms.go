package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"

	"github.com/miosa/aac-board/grid"
)

type formKind int

const (
	formNone formKind = iota
	formLogin
	formAddItem
	formEditorPassword
	formConfirmDelete
)

// formValues backs every form field. A fresh value is allocated per form so
// the pointers handed to huh stay valid across Model copies.
type formValues struct {
	username string
	password string

	kind       string
	label      string
	text       string
	speak      string
	symbolType string
	icon       string
	color      string

	confirm bool
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validColor(s string) error {
	if s = strings.TrimSpace(s); s != "" && !hexColor.MatchString(s) {
		return errors.New("use a hex color such as #F59E0B")
	}
	return nil
}

// newForm applies the board's theme and binds Esc to abort, since Ctrl+C is
// the app's quit key.
func newForm(width int, groups ...*huh.Group) *huh.Form {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	f := huh.NewForm(groups...).
		WithTheme(huh.ThemeCharm()).
		WithKeyMap(km).
		WithShowHelp(true)
	if width > 0 {
		f = f.WithWidth(min(width-4, 72))
	}
	return f
}

func loginForm(v *formValues, width int) *huh.Form {
	return newForm(width,
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&v.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&v.password).
				Validate(required("password")),
		).
			Title("Sign in").
			Description("No account yet? Run `aac register`."),
	)
}

func addItemForm(v *formValues, parent string, width int) *huh.Form {
	v.kind = string(grid.KindSymbol)
	v.symbolType = string(grid.SymbolNoun)
	return newForm(width,
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kind").
				Options(
					huh.NewOption("Symbol (adds a word)", string(grid.KindSymbol)),
					huh.NewOption("Category (opens a page)", string(grid.KindCategory)),
				).
				Value(&v.kind),
			huh.NewInput().
				Title("Label").
				Value(&v.label).
				Validate(required("label")),
		).
			Title("New item in "+parent),
		huh.NewGroup(
			huh.NewInput().
				Title("Text").
				Description("Written in the text bar. Defaults to the label.").
				Value(&v.text),
			huh.NewInput().
				Title("Spoken as").
				Description("Defaults to the text.").
				Value(&v.speak),
			huh.NewSelect[string]().
				Title("Word type").
				Options(
					huh.NewOption("Noun", string(grid.SymbolNoun)),
					huh.NewOption("Verb", string(grid.SymbolVerb)),
					huh.NewOption("Adjective", string(grid.SymbolAdjective)),
					huh.NewOption("Other", string(grid.SymbolOther)),
				).
				Value(&v.symbolType),
		).WithHideFunc(func() bool { return v.kind != string(grid.KindSymbol) }),
		huh.NewGroup(
			huh.NewInput().
				Title("Icon").
				Description("Pictogram URL, optional.").
				Value(&v.icon),
			huh.NewInput().
				Title("Color").
				Placeholder("#F59E0B").
				Value(&v.color).
				Validate(validColor),
		),
	)
}

// item builds the grid item described by the add form.
func (v *formValues) item() grid.Item {
	label := strings.TrimSpace(v.label)
	var it grid.Item
	if v.kind == string(grid.KindCategory) {
		it = grid.NewCategory(label, "")
	} else {
		it = grid.NewSymbol(label, strings.TrimSpace(v.text), strings.TrimSpace(v.speak), grid.SymbolType(v.symbolType))
	}
	it.Icon = strings.TrimSpace(v.icon)
	it.Color = strings.TrimSpace(v.color)
	return it
}

func editorPasswordForm(v *formValues, width int) *huh.Form {
	return newForm(width,
		huh.NewGroup(
			huh.NewInput().
				Title("Editor password").
				Description("Editor mode lets you change the board.").
				EchoMode(huh.EchoModePassword).
				Value(&v.password).
				Validate(required("password")),
		),
	)
}

func confirmDeleteForm(v *formValues, it grid.Item, width int) *huh.Form {
	desc := "This cannot be undone."
	if it.Kind() == grid.KindCategory {
		desc = "Its pages and everything on them are deleted too."
	}
	return newForm(width,
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", it.Label)).
				Description(desc).
				Affirmative("Delete").
				Negative("Keep").
				Value(&v.confirm),
		),
	)
}
