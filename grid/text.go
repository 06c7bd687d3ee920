package grid

import "strings"

// TextItem is one word of the sentence being composed.
type TextItem struct {
	Text  string `json:"text"`
	Speak string `json:"speak"`
	Icon  string `json:"icon,omitempty"`

	// Base is the uninflected form the word was added with. Conjugation is
	// always computed from it so switching tenses twice does not compound.
	Base       string     `json:"base,omitempty"`
	SymbolType SymbolType `json:"symbol_type,omitempty"`
}

func (t TextItem) base() string {
	if t.Base != "" {
		return t.Base
	}
	return t.Text
}

// Tense is the grammatical tense applied to the text bar.
type Tense string

const (
	TensePresent Tense = "presente"
	TensePast    Tense = "passato"
	TenseFuture  Tense = "futuro"
)

// ParseTense accepts both the wire values and their English names.
func ParseTense(s string) (Tense, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "presente", "present":
		return TensePresent, true
	case "passato", "past":
		return TensePast, true
	case "futuro", "future":
		return TenseFuture, true
	}
	return "", false
}

// PageSize is the cell size of the board.
type PageSize string

const (
	SizeSmall  PageSize = "small"
	SizeMedium PageSize = "medium"
	SizeBig    PageSize = "big"
)

// ParsePageSize validates a page size name.
func ParsePageSize(s string) (PageSize, bool) {
	switch PageSize(strings.ToLower(strings.TrimSpace(s))) {
	case SizeSmall:
		return SizeSmall, true
	case SizeMedium:
		return SizeMedium, true
	case SizeBig:
		return SizeBig, true
	}
	return "", false
}

// Mode selects between using the board and curating it.
type Mode string

const (
	ModeUser   Mode = "user"
	ModeEditor Mode = "editor"
)

// Sentence joins the written form of the buffer.
func Sentence(buf []TextItem) string {
	parts := make([]string, 0, len(buf))
	for _, t := range buf {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

// Utterance joins the spoken form of the buffer, falling back to the text.
func Utterance(buf []TextItem) string {
	parts := make([]string, 0, len(buf))
	for _, t := range buf {
		if t.Speak != "" {
			parts = append(parts, t.Speak)
		} else {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, " ")
}

// conjugate rewrites the eligible entries of buf from a base->inflected map.
// Entries without a mapping keep their current text.
func conjugate(buf []TextItem, forms map[string]string) []TextItem {
	out := make([]TextItem, len(buf))
	for i, t := range buf {
		out[i] = t
		if !t.SymbolType.Conjugable() {
			continue
		}
		if form, ok := forms[t.base()]; ok && form != "" {
			out[i].Text = form
			out[i].Speak = form
		}
	}
	return out
}

func conjugableBases(buf []TextItem) []string {
	var out []string
	for _, t := range buf {
		if t.SymbolType.Conjugable() {
			out = append(out, t.base())
		}
	}
	return out
}
