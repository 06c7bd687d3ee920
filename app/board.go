package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/markdown"
	"github.com/miosa/aac-board/model"
	"github.com/miosa/aac-board/msg"
	"github.com/miosa/aac-board/speech"
	"github.com/miosa/aac-board/style"
)

var (
	tenseCycle = []grid.Tense{grid.TensePresent, grid.TensePast, grid.TenseFuture}
	sizeCycle  = []grid.PageSize{grid.SizeSmall, grid.SizeMedium, grid.SizeBig}
)

func (m Model) handleBoardKey(k tea.KeyMsg) (Model, tea.Cmd) {
	st := m.deps.Board.State()
	switch {
	case key.Matches(k, m.keys.Up):
		m.board.Move(0, -1)
	case key.Matches(k, m.keys.Down):
		m.board.Move(0, 1)
	case key.Matches(k, m.keys.Left):
		m.board.Move(-1, 0)
	case key.Matches(k, m.keys.Right):
		m.board.Move(1, 0)
	case key.Matches(k, m.keys.Select):
		if it, ok := m.board.Selected(); ok {
			return m.selectItem(it)
		}
	case key.Matches(k, m.keys.Back):
		m.deps.Board.GoBack()
	case key.Matches(k, m.keys.Home):
		m.deps.Board.GoHome()
	case key.Matches(k, m.keys.DeleteWord):
		return m.runControl(grid.ActionDeleteLastWord, "")
	case key.Matches(k, m.keys.ClearText):
		return m.runControl(grid.ActionDeleteAllText, "")
	case key.Matches(k, m.keys.Speak):
		return m.runControl(grid.ActionSpeakText, "")
	case key.Matches(k, m.keys.Tense):
		return m.runControl(grid.ActionSetTense, string(next(tenseCycle, st.Tense)))
	case key.Matches(k, m.keys.Size):
		m.deps.Board.SetPageSize(next(sizeCycle, st.PageSize))
	case key.Matches(k, m.keys.Copy):
		return m, m.copySentence(st)
	case key.Matches(k, m.keys.Correct):
		return m.correct(st)
	case key.Matches(k, m.keys.Editor):
		return m.toggleEditor(st)
	case key.Matches(k, m.keys.Refresh):
		return m, m.run("reload", m.deps.Board.LoadGrid)
	case key.Matches(k, m.keys.Palette):
		return m, m.palette.Open(m.paletteItems(st), m.width, m.height)
	case key.Matches(k, m.keys.Help):
		m.openHelp()
	case key.Matches(k, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(k, m.keys.Add, m.keys.Rename, m.keys.Delete, m.keys.Visibility,
		m.keys.MoveTo, m.keys.CopyTo, m.keys.Earlier, m.keys.Later):
		if st.Mode != grid.ModeEditor {
			m.toast("Switch to editor mode (e) to change the board", model.ToastWarning)
			return m, nil
		}
		return m.handleEditKey(k, st)
	}
	return m, nil
}

func (m Model) handleEditKey(k tea.KeyMsg, st grid.State) (Model, tea.Cmd) {
	if key.Matches(k, m.keys.Add) {
		m.values = &formValues{}
		return m, m.openForm(formAddItem, addItemForm(m.values, st.Categories.CategoryName(st.CurrentCategory()), m.width))
	}
	it, ok := m.board.Selected()
	if !ok {
		return m, nil
	}
	d := m.deps
	switch {
	case key.Matches(k, m.keys.Rename):
		m.target = it.ID
		return m, m.input.Open("Rename", "rename", it.Label)
	case key.Matches(k, m.keys.Delete):
		if it.Kind() == grid.KindSystem {
			m.toast("System controls cannot be deleted. Hide them instead.", model.ToastWarning)
			return m, nil
		}
		m.target = it.ID
		m.values = &formValues{}
		return m, m.openForm(formConfirmDelete, confirmDeleteForm(m.values, it, m.width))
	case key.Matches(k, m.keys.Visibility):
		id := it.ID
		return m, m.run("visibility", func(ctx context.Context) bool { return d.Board.ToggleVisibility(ctx, id) })
	case key.Matches(k, m.keys.MoveTo, m.keys.CopyTo):
		purpose, title := "move", "Move "+it.Label+" to"
		if key.Matches(k, m.keys.CopyTo) {
			purpose, title = "copy", "Copy "+it.Label+" to"
		}
		m.target = it.ID
		m.picker.Open(title, purpose, destinations(st, it, purpose == "move"))
	case key.Matches(k, m.keys.Earlier, m.keys.Later):
		delta := -1
		if key.Matches(k, m.keys.Later) {
			delta = 1
		}
		other, ok := m.board.Neighbor(delta)
		if !ok {
			return m, nil
		}
		// Both ids are in the current category; hidden items are shown in
		// editor mode so the board and the store agree on neighbors. The
		// cursor follows the dragged id on the next sync.
		dragged, target := it.ID, other.ID
		return m, m.run("reorder", func(ctx context.Context) bool { return d.Board.MoveItem(ctx, dragged, target) })
	}
	return m, nil
}

// destinations lists home and the categories under it as targets for a copy
// or move. The item's own page and, for a move, its current parent are
// disabled.
func destinations(st grid.State, it grid.Item, move bool) []model.PickerItem {
	own, _ := it.Target()
	parent := ""
	if loc, ok := st.Categories.FindItemByID(it.ID); ok {
		parent = loc.Parent
	}
	refs := append([]grid.CategoryRef{{Key: grid.HomeKey, Name: "Home", Level: -1}}, st.Categories.AllCategories()...)
	items := make([]model.PickerItem, 0, len(refs))
	for _, r := range refs {
		items = append(items, model.PickerItem{
			Key:      r.Key,
			Name:     r.Name,
			Level:    r.Level + 1,
			Disabled: r.Key == own || (move && r.Key == parent),
		})
	}
	return items
}

func (m Model) selectItem(it grid.Item) (Model, tea.Cmd) {
	switch v := it.Variant.(type) {
	case grid.Category:
		m.deps.Board.NavigateToCategory(v.Target)
	case grid.System:
		return m.runControl(v.Action, v.Text)
	default:
		if t, ok := it.TextItem(); ok {
			m.deps.Board.AddToTextBuffer(t)
		}
	}
	return m, nil
}

// controlHidden reports whether the system control for action (and, for
// tense controls, text) is hidden. A hidden control is disabled in user mode
// along with its shortcut.
func controlHidden(st grid.State, action, text string) bool {
	for _, it := range st.Categories[grid.SystemControlsKey] {
		sys, ok := it.Variant.(grid.System)
		if !ok || sys.Action != action || (text != "" && sys.Text != "" && sys.Text != text) {
			continue
		}
		return !it.Visible
	}
	return false
}

func (m Model) runControl(action, text string) (Model, tea.Cmd) {
	st := m.deps.Board.State()
	if st.Mode == grid.ModeUser && controlHidden(st, action, text) {
		return m, nil
	}
	d := m.deps
	switch action {
	case grid.ActionDeleteLastWord:
		d.Board.RemoveLastWord()
	case grid.ActionDeleteAllText:
		d.Board.ClearTextBuffer()
	case grid.ActionSpeakText:
		return m, m.speak(st)
	case grid.ActionSetTense:
		t, ok := grid.ParseTense(text)
		if !ok {
			m.toastError("Unknown tense " + text)
			return m, nil
		}
		return m, m.run("tense", func(ctx context.Context) bool { return d.Board.SetTense(ctx, t) })
	default:
		m.toast("Unknown control "+action, model.ToastWarning)
	}
	return m, nil
}

func (m Model) speak(st grid.State) tea.Cmd {
	if len(st.Text) == 0 {
		return nil
	}
	s, ctx, buf := m.deps.Speaker, m.ctx, st.Text
	return func() tea.Msg {
		return msg.SpeakResult{Text: grid.Utterance(buf), Err: speech.SpeakBuffer(ctx, s, buf)}
	}
}

func (m Model) copySentence(st grid.State) tea.Cmd {
	text := grid.Sentence(st.Text)
	if text == "" {
		return nil
	}
	cp := m.deps.Copy
	return func() tea.Msg { return msg.CopyResult{Err: cp(text)} }
}

func (m Model) correct(st grid.State) (Model, tea.Cmd) {
	if len(st.Text) == 0 {
		return m, nil
	}
	return m, m.run("correct", m.deps.Board.CorrectText)
}

func (m Model) toggleEditor(st grid.State) (Model, tea.Cmd) {
	if st.Mode == grid.ModeEditor {
		m.deps.Board.SetMode(grid.ModeUser)
		m.toast("User mode", model.ToastInfo)
		return m, nil
	}
	if m.deps.Editor == nil {
		m.deps.Board.SetMode(grid.ModeEditor)
		return m, nil
	}
	m.values = &formValues{}
	return m, m.openForm(formEditorPassword, editorPasswordForm(m.values, m.width))
}

func (m Model) handlePickerChoice(c model.PickerChoice) (Model, tea.Cmd) {
	id, dest, d := m.target, c.Key, m.deps
	m.target = ""
	if id == "" {
		return m, nil
	}
	if c.Purpose == "copy" {
		return m, m.run("copy", func(ctx context.Context) bool { return d.Board.CopyToCategory(ctx, id, dest) })
	}
	return m, m.run("move", func(ctx context.Context) bool { return d.Board.MoveToCategory(ctx, id, dest) })
}

func (m Model) handleInputSubmit(s model.InputSubmit) (Model, tea.Cmd) {
	id, d := m.target, m.deps
	m.target = ""
	if s.Purpose != "rename" || id == "" {
		return m, nil
	}
	patch := grid.Patch{Label: grid.Ptr(s.Value)}
	return m, m.run("rename", func(ctx context.Context) bool { return d.Board.UpdateGridItem(ctx, id, patch) })
}

// -- Palette --

func (m Model) paletteItems(st grid.State) []model.PaletteItem {
	items := []model.PaletteItem{
		{Action: "speak", Title: "Speak", Description: "Read the sentence aloud", Key: "space"},
		{Action: "copy", Title: "Copy sentence", Description: "Put the sentence on the clipboard", Key: "y"},
		{Action: "correct", Title: "Correct grammar", Description: "Fix the sentence with the AI service", Key: "c"},
		{Action: "clear", Title: "Clear text", Description: "Empty the text bar", Key: "x"},
	}
	for _, t := range tenseCycle {
		items = append(items, model.PaletteItem{Action: "tense." + string(t), Title: "Tense: " + string(t), Description: "Conjugate the verbs in the text bar"})
	}
	for _, s := range sizeCycle {
		items = append(items, model.PaletteItem{Action: "size." + string(s), Title: "Cell size: " + string(s)})
	}
	session := "Start communication session"
	if st.SessionActive {
		session = "End communication session"
	}
	items = append(items,
		model.PaletteItem{Action: "session", Title: session},
		model.PaletteItem{Action: "editor", Title: "Toggle editor mode", Key: "e"},
		model.PaletteItem{Action: "reload", Title: "Reload board", Description: "Fetch the board from the server", Key: "ctrl+r"},
	)
	if st.Mode == grid.ModeEditor {
		items = append(items,
			model.PaletteItem{Action: "controls", Title: "Edit system controls", Description: "Open the control row as a page"},
			model.PaletteItem{Action: "save", Title: "Save board", Description: "Upload the whole board"},
		)
	}
	for _, name := range style.ThemeNames {
		items = append(items, model.PaletteItem{Action: "theme." + name, Title: "Theme: " + name})
	}
	return append(items,
		model.PaletteItem{Action: "help", Title: "Help", Key: "?"},
		model.PaletteItem{Action: "logout", Title: "Log out"},
		model.PaletteItem{Action: "quit", Title: "Quit", Key: "q"},
	)
}

func (m Model) runAction(action string) (Model, tea.Cmd) {
	st := m.deps.Board.State()
	d, ctx := m.deps, m.ctx
	name, arg, _ := strings.Cut(action, ".")
	switch name {
	case "speak":
		return m.runControl(grid.ActionSpeakText, "")
	case "copy":
		return m, m.copySentence(st)
	case "correct":
		return m.correct(st)
	case "clear":
		return m.runControl(grid.ActionDeleteAllText, "")
	case "tense":
		return m.runControl(grid.ActionSetTense, arg)
	case "size":
		if s, ok := grid.ParsePageSize(arg); ok {
			d.Board.SetPageSize(s)
		}
	case "session":
		d.Board.SetSessionActive(!st.SessionActive)
	case "editor":
		return m.toggleEditor(st)
	case "reload":
		return m, m.run("reload", d.Board.LoadGrid)
	case "controls":
		d.Board.NavigateToCategory(grid.SystemControlsKey)
	case "save":
		return m, m.run("save", d.Board.SaveGrid)
	case "theme":
		if style.SetTheme(arg) {
			markdown.SetStyle(arg)
		}
	case "help":
		m.openHelp()
	case "logout":
		return m, func() tea.Msg {
			d.Session.Logout(ctx)
			return msg.LoggedOut{}
		}
	case "quit":
		return m, tea.Quit
	}
	return m, nil
}

// -- Layout --

// chrome is the number of lines around the grid: header, text bar (3),
// control row, prompt, status and key help.
const chrome = 8

const cellHeightMin = 4

func (m *Model) layout() {
	m.banner.SetWidth(m.width)
	m.board.SetSize(m.width, max(m.height-chrome, cellHeightMin))
	m.picker.SetWidth(m.width)
	m.input.SetWidth(m.width)
	m.helpBar.Width = m.width
	m.helpView.Width = m.width
	m.helpView.Height = max(m.height-3, 3)
}

// sync copies the store and session state into the components. It runs
// after every Update.
func (m *Model) sync() {
	st := m.deps.Board.State()
	if cur := st.CurrentCategory(); cur != m.current || len(st.Stack) != m.depth {
		m.board.Reset()
		m.current, m.depth = cur, len(st.Stack)
	}
	m.board.SetItems(st.VisibleItems(), st.PageSize)

	names := make([]string, len(st.Stack))
	for i, k := range st.Stack {
		names[i] = st.Categories.CategoryName(k)
	}
	m.banner.SetPath(names)
	m.status.SetBoard(string(st.Mode), string(st.Tense), string(st.PageSize))
	if u := m.deps.Session.State().User; u != nil {
		m.status.SetUser(u.Username)
	} else {
		m.status.SetUser("")
	}
}

func next[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
