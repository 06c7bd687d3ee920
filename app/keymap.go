package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the board keybindings. Editor bindings only act in editor
// mode.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Select key.Binding
	Back   key.Binding
	Home   key.Binding

	DeleteWord key.Binding
	ClearText  key.Binding
	Speak      key.Binding
	Copy       key.Binding
	Correct    key.Binding
	Tense      key.Binding
	Size       key.Binding

	Editor     key.Binding
	Add        key.Binding
	Rename     key.Binding
	Delete     key.Binding
	Visibility key.Binding
	MoveTo     key.Binding
	CopyTo     key.Binding
	Earlier    key.Binding
	Later      key.Binding
	Refresh    key.Binding

	Palette key.Binding
	Help    key.Binding
	Quit    key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "H"),
			key.WithHelp("H", "home"),
		),
		DeleteWord: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("⌫", "delete last word"),
		),
		ClearText: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "clear text"),
		),
		Speak: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "speak"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy sentence"),
		),
		Correct: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "correct grammar"),
		),
		Tense: key.NewBinding(
			key.WithKeys("t", "tab"),
			key.WithHelp("t", "next tense"),
		),
		Size: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cell size"),
		),
		Editor: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "editor mode"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add item"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Visibility: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "show/hide"),
		),
		MoveTo: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move to…"),
		),
		CopyTo: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "copy to…"),
		),
		Earlier: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "move earlier"),
		),
		Later: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "move later"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload board"),
		),
		Palette: key.NewBinding(
			key.WithKeys("ctrl+p", ":"),
			key.WithHelp(":", "actions"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp satisfies help.KeyMap for the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Back, k.Speak, k.DeleteWord, k.Tense, k.Palette, k.Help}
}

// FullHelp satisfies help.KeyMap. Groups become the sections of the help
// screen.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Select, k.Back, k.Home},
		{k.DeleteWord, k.ClearText, k.Speak, k.Copy, k.Correct, k.Tense, k.Size},
		{k.Editor, k.Add, k.Rename, k.Delete, k.Visibility, k.MoveTo, k.CopyTo, k.Earlier, k.Later, k.Refresh},
		{k.Palette, k.Help, k.Quit, k.Cancel},
	}
}
