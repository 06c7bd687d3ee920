// Package grid holds the communication board: the category map, the
// navigation stack, the sentence being composed and the optimistic
// mutations that keep the local board in step with the backend.
package grid

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind is the wire discriminator of a grid item.
type Kind string

const (
	KindSymbol   Kind = "symbol"
	KindCategory Kind = "category"
	KindSystem   Kind = "system"
)

// SymbolType is the grammatical category of a symbol. Values are the
// backend's Italian identifiers.
type SymbolType string

const (
	SymbolNoun      SymbolType = "nome"
	SymbolVerb      SymbolType = "verbo"
	SymbolAdjective SymbolType = "aggettivo"
	SymbolOther     SymbolType = "altro"
)

// Conjugable reports whether words of this type take part in tense changes.
// An unset type is treated as conjugable so the server decides.
func (t SymbolType) Conjugable() bool {
	switch t {
	case SymbolNoun, SymbolAdjective:
		return false
	default:
		return true
	}
}

// Variant is the type-specific payload of an Item. It is implemented only by
// Symbol, Category and System.
type Variant interface {
	Kind() Kind
	sealed()
}

// Symbol is a speakable word.
type Symbol struct {
	Text  string
	Speak string
	Type  SymbolType
}

// Category links to another page of the board.
type Category struct {
	Target string
}

// Built-in system actions. ActionSetTense carries the tense in System.Text.
const (
	ActionDeleteLastWord = "deleteLastWord"
	ActionDeleteAllText  = "deleteAllText"
	ActionSpeakText      = "speakText"
	ActionSetTense       = "setTense"
)

// System triggers a built-in behavior such as clearing the text bar.
type System struct {
	Action string
	Text   string
}

func (Symbol) Kind() Kind   { return KindSymbol }
func (Category) Kind() Kind { return KindCategory }
func (System) Kind() Kind   { return KindSystem }

func (Symbol) sealed()   {}
func (Category) sealed() {}
func (System) sealed()   {}

// Item is one cell of the board. Item is a value type: copying it copies the
// variant as well.
type Item struct {
	ID       string
	Label    string
	Icon     string
	Color    string
	Visible  bool
	Hideable bool
	Variant  Variant
}

// Kind returns the discriminator of the item's variant.
func (it Item) Kind() Kind {
	if it.Variant == nil {
		return KindSymbol
	}
	return it.Variant.Kind()
}

// Target returns the category key an item navigates into.
func (it Item) Target() (string, bool) {
	c, ok := it.Variant.(Category)
	if !ok {
		return "", false
	}
	return c.Target, true
}

// NewSymbol builds a visible, hideable symbol item.
func NewSymbol(label, text, speak string, st SymbolType) Item {
	if text == "" {
		text = label
	}
	if speak == "" {
		speak = text
	}
	return Item{Label: label, Visible: true, Hideable: true, Variant: Symbol{Text: text, Speak: speak, Type: st}}
}

// NewCategory builds a visible, hideable category item.
func NewCategory(label, target string) Item {
	return Item{Label: label, Visible: true, Hideable: true, Variant: Category{Target: target}}
}

// NewSystem builds a system control.
func NewSystem(label, action string) Item {
	return Item{Label: label, Visible: true, Variant: System{Action: action}}
}

// TextItem returns the entry the item contributes to the text bar, or false
// when the item does not insert text.
func (it Item) TextItem() (TextItem, bool) {
	switch v := it.Variant.(type) {
	case Symbol:
		text := v.Text
		if text == "" {
			text = it.Label
		}
		speak := v.Speak
		if speak == "" {
			speak = text
		}
		return TextItem{Text: text, Speak: speak, Icon: it.Icon, Base: text, SymbolType: v.Type}, true
	case Category, System, nil:
		return TextItem{}, false
	default:
		panic(fmt.Sprintf("grid: unhandled variant %T", v))
	}
}

type wireItem struct {
	ID         string     `json:"id"`
	Type       Kind       `json:"type"`
	Label      string     `json:"label"`
	Icon       string     `json:"icon"`
	Color      string     `json:"color"`
	Target     string     `json:"target,omitempty"`
	Text       string     `json:"text,omitempty"`
	Speak      string     `json:"speak,omitempty"`
	Action     string     `json:"action,omitempty"`
	SymbolType SymbolType `json:"symbol_type,omitempty"`
	IsVisible  *bool      `json:"isVisible,omitempty"`
	IsHideable bool       `json:"isHideable"`
}

// MarshalJSON encodes the item in the backend's flat format.
func (it Item) MarshalJSON() ([]byte, error) {
	visible := it.Visible
	w := wireItem{
		ID:         it.ID,
		Type:       it.Kind(),
		Label:      it.Label,
		Icon:       it.Icon,
		Color:      it.Color,
		IsVisible:  &visible,
		IsHideable: it.Hideable,
	}
	switch v := it.Variant.(type) {
	case Symbol:
		w.Text, w.Speak, w.SymbolType = v.Text, v.Speak, v.Type
	case Category:
		w.Target = v.Target
	case System:
		w.Action, w.Text = v.Action, v.Text
	case nil:
	default:
		return nil, fmt.Errorf("grid: unhandled variant %T", v)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the backend's flat format. A missing isVisible
// field means visible.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Item{
		ID:       w.ID,
		Label:    w.Label,
		Icon:     w.Icon,
		Color:    w.Color,
		Visible:  w.IsVisible == nil || *w.IsVisible,
		Hideable: w.IsHideable,
	}
	switch w.Type {
	case KindSymbol, "":
		out.Variant = Symbol{Text: w.Text, Speak: w.Speak, Type: w.SymbolType}
	case KindCategory:
		out.Variant = Category{Target: w.Target}
	case KindSystem:
		out.Variant = System{Action: w.Action, Text: w.Text}
	default:
		return fmt.Errorf("grid: unknown item type %q", w.Type)
	}
	*it = out
	return nil
}

// Patch is a partial update of an item. Nil fields are left unchanged. Fields
// that do not apply to the item's variant are ignored.
type Patch struct {
	Label      *string     `json:"label,omitempty"`
	Icon       *string     `json:"icon,omitempty"`
	Color      *string     `json:"color,omitempty"`
	Visible    *bool       `json:"isVisible,omitempty"`
	Hideable   *bool       `json:"isHideable,omitempty"`
	Text       *string     `json:"text,omitempty"`
	Speak      *string     `json:"speak,omitempty"`
	SymbolType *SymbolType `json:"symbol_type,omitempty"`
	Action     *string     `json:"action,omitempty"`
}

// Apply returns a copy of it with the patch applied.
func (p Patch) Apply(it Item) Item {
	if p.Label != nil {
		it.Label = *p.Label
	}
	if p.Icon != nil {
		it.Icon = *p.Icon
	}
	if p.Color != nil {
		it.Color = *p.Color
	}
	if p.Visible != nil {
		it.Visible = *p.Visible
	}
	if p.Hideable != nil {
		it.Hideable = *p.Hideable
	}
	switch v := it.Variant.(type) {
	case Symbol:
		if p.Text != nil {
			v.Text = *p.Text
		}
		if p.Speak != nil {
			v.Speak = *p.Speak
		}
		if p.SymbolType != nil {
			v.Type = *p.SymbolType
		}
		it.Variant = v
	case System:
		if p.Action != nil {
			v.Action = *p.Action
		}
		if p.Text != nil {
			v.Text = *p.Text
		}
		it.Variant = v
	case Category, nil:
	}
	return it
}

// Ptr returns a pointer to v. It keeps Patch literals short.
func Ptr[T any](v T) *T { return &v }
