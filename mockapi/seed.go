package mockapi

import (
	"strings"

	"github.com/google/uuid"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
)

// Grid types accepted at registration.
const (
	GridDefault    = "default"
	GridSimplified = "simplified"
	GridEmpty      = "empty"
)

// BoardFor returns a fresh board for a registration grid type. An empty type
// means the default board.
func BoardFor(gridType string) (grid.Categories, bool) {
	switch gridType {
	case "", GridDefault:
		return DefaultBoard(), true
	case GridSimplified:
		return SimplifiedBoard(), true
	case GridEmpty:
		return grid.Categories{grid.HomeKey: {}, grid.SystemControlsKey: systemControls(true)}, true
	}
	return nil, false
}

func icon(id int) string { return client.PictogramURL(id) }

func category(label string, pictogram int, color, target string) grid.Item {
	it := grid.NewCategory(label, target)
	it.ID, it.Icon, it.Color = uuid.NewString(), icon(pictogram), color
	return it
}

func symbol(label string, pictogram int, color string, st grid.SymbolType) grid.Item {
	it := grid.NewSymbol(label, strings.ToLower(label), "", st)
	it.ID, it.Icon, it.Color = uuid.NewString(), icon(pictogram), color
	return it
}

func control(label string, pictogram int, color, action, text string, hideable bool) grid.Item {
	return grid.Item{
		ID:       uuid.NewString(),
		Label:    label,
		Icon:     icon(pictogram),
		Color:    color,
		Visible:  true,
		Hideable: hideable,
		Variant:  grid.System{Action: action, Text: text},
	}
}

func systemControls(withTenses bool) []grid.Item {
	items := []grid.Item{
		control("Cancella ultimo", 38200, "#be626a", grid.ActionDeleteLastWord, "", true),
		control("Cancella tutto", 38201, "#be626a", grid.ActionDeleteAllText, "", true),
		control("Leggi", 38216, "#75d1a8", grid.ActionSpeakText, "", true),
	}
	if withTenses {
		items = append(items,
			control("Passato", 9839, "#bb9bff", grid.ActionSetTense, string(grid.TensePast), false),
			control("Presente", 38276, "#A0C4FF", grid.ActionSetTense, string(grid.TensePresent), false),
			control("Futuro", 9829, "#ffb2bf", grid.ActionSetTense, string(grid.TenseFuture), false),
		)
	}
	return items
}

// DefaultBoard is the starter board of a new account: five categories of
// subjects, feelings, verbs, food and family plus the system controls.
func DefaultBoard() grid.Categories {
	emotions, actions, food := uuid.NewString(), uuid.NewString(), uuid.NewString()
	family, subjects := uuid.NewString(), uuid.NewString()
	return grid.Categories{
		grid.HomeKey: {
			category("Emozioni", 39091, "#FFADAD", emotions),
			category("Azioni", 7297, "#FFD6A5", actions),
			category("Cibo", 4610, "#CAFFBF", food),
			category("Famiglia", 38351, "#9BF6FF", family),
			category("Soggetti", 6632, "#A0C4FF", subjects),
		},
		subjects: {
			symbol("Io", 6632, "#A0C4FF", grid.SymbolNoun),
			symbol("Tu", 6625, "#BDB2FF", grid.SymbolNoun),
			symbol("Lui", 6480, "#A0C4FF", grid.SymbolNoun),
			symbol("Lei", 7028, "#A0C4FF", grid.SymbolNoun),
			symbol("Noi", 7186, "#A0C4FF", grid.SymbolNoun),
			symbol("Voi", 7305, "#A0C4FF", grid.SymbolNoun),
			symbol("Loro", 7033, "#A0C4FF", grid.SymbolNoun),
		},
		emotions: {
			symbol("Felice", 35547, "#FFADAD", grid.SymbolOther),
			symbol("Triste", 35545, "#A0C4FF", grid.SymbolOther),
		},
		actions: {
			symbol("Camminare", 29951, "#CAFFBF", grid.SymbolVerb),
			symbol("Volere", 5441, "#FFC6FF", grid.SymbolVerb),
			symbol("Aiutare", 32648, "#FDFFB6", grid.SymbolVerb),
			symbol("Leggere", 7141, "#FDFFB6", grid.SymbolVerb),
			symbol("Essere", 36480, "#FDFFB6", grid.SymbolVerb),
			symbol("Avere", 32761, "#FDFFB6", grid.SymbolVerb),
			symbol("Mangiare", 6456, "#FDFFB6", grid.SymbolVerb),
		},
		food: {
			symbol("Pizza", 2527, "#FFADAD", grid.SymbolNoun),
		},
		family: {
			symbol("Mamma", 2458, "#9BF6FF", grid.SymbolNoun),
		},
		grid.SystemControlsKey: systemControls(true),
	}
}

// SimplifiedBoard has two categories and no tense controls.
func SimplifiedBoard() grid.Categories {
	return grid.Categories{
		grid.HomeKey: {
			category("Soggetti", 6632, "#A0C4FF", "subject"),
			category("Azioni", 7297, "#FFD6A5", "actions"),
		},
		"subject": {
			symbol("Io", 6632, "#A0C4FF", grid.SymbolNoun),
			symbol("Tu", 6625, "#BDB2FF", grid.SymbolNoun),
		},
		"actions": {
			symbol("Essere", 36480, "#FDFFB6", grid.SymbolVerb),
			symbol("Mangiare", 6456, "#FDFFB6", grid.SymbolVerb),
		},
		grid.SystemControlsKey: systemControls(false),
	}
}
