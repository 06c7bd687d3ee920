package app

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/mockapi"
	"github.com/miosa/aac-board/model"
	"github.com/miosa/aac-board/msg"
	"github.com/miosa/aac-board/session"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type harness struct {
	srv   *mockapi.Server
	api   *client.Client
	sess  *session.Session
	board *grid.Store
}

// newHarness seeds anna with roles, or as an editor when none are given.
func newHarness(t *testing.T, roles ...string) *harness {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{mockapi.RoleEditor}
	}
	srv := mockapi.New(mockapi.WithUser("anna", "secret1", "pw", roles...))
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	api := client.New(hs.URL)
	return &harness{
		srv:   srv,
		api:   api,
		sess:  session.New(api, nil, nil),
		board: grid.NewStore(api),
	}
}

func (h *harness) model() Model {
	return New(context.Background(), Deps{Board: h.board, Session: h.sess, Editor: h.api})
}

// signedIn returns a model showing the loaded board for an editor.
func signedIn(t *testing.T) (*harness, Model) {
	t.Helper()
	return signedInAs(t, mockapi.RoleEditor)
}

func signedInAs(t *testing.T, roles ...string) (*harness, Model) {
	t.Helper()
	h := newHarness(t, roles...)
	if !h.sess.Login(context.Background(), "anna", "secret1") {
		t.Fatalf("login: %s", h.sess.State().Err)
	}
	m := h.model()
	if m.state != StateLoading {
		t.Fatalf("a signed-in session starts loading, got %s", m.state)
	}
	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = execute(t, m, m.loadBoard())
	if m.state != StateBoard {
		t.Fatalf("want board state, got %s", m.state)
	}
	return h, m
}

func send(m Model, message tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(message)
	return next.(Model), cmd
}

// execute runs cmd and feeds the messages it produces back into the model.
// Commands returned by those updates are dropped so no timer ever fires.
func execute(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch v := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range v {
			m = execute(t, m, c)
		}
	default:
		m, _ = send(m, v)
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := send(m, k)
	return execute(t, m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter     = tea.KeyMsg{Type: tea.KeyEnter}
	esc       = tea.KeyMsg{Type: tea.KeyEsc}
	backspace = tea.KeyMsg{Type: tea.KeyBackspace}
)

func itemByLabel(t *testing.T, items []grid.Item, label string) grid.Item {
	t.Helper()
	for _, it := range items {
		if it.Label == label {
			return it
		}
	}
	t.Fatalf("no item %q", label)
	return grid.Item{}
}

func labels(items []grid.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func TestApp_SignedOutStartsAtLogin(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	if m.state != StateLogin || m.form == nil || m.formKind != formLogin {
		t.Fatalf("want the login form, got state %s", m.state)
	}
	if !strings.Contains(m.View(), "Username") {
		t.Error("login view should show the username field")
	}
}

func TestApp_LoginLoadsBoard(t *testing.T) {
	h := newHarness(t)
	m := h.model()

	m, cmd := m.submitForm(formLogin, &formValues{username: "anna", password: "wrong"})
	m, cmd = send(m, cmd())
	if m.state != StateLogin {
		t.Fatalf("a failed login returns to the form, got %s", m.state)
	}
	if m.toasts.Len() == 0 {
		t.Error("a failed login should explain itself")
	}

	m, cmd = m.submitForm(formLogin, &formValues{username: "anna", password: "secret1"})
	if m.state != StateLoading {
		t.Fatalf("want loading while signing in, got %s", m.state)
	}
	m, cmd = send(m, cmd())
	m = execute(t, m, cmd)
	if m.state != StateBoard {
		t.Fatalf("want board after login, got %s", m.state)
	}
	if n := len(h.board.State().CurrentItems()); n != 5 {
		t.Errorf("want the five starter categories, got %d", n)
	}
	if !strings.Contains(m.View(), "anna") {
		t.Error("status line should name the user")
	}
}

func TestApp_LoggedOutReturnsToLogin(t *testing.T) {
	h, m := signedIn(t)
	m, _ = send(m, msg.LoggedOut{Reason: "Session expired. Please log in again."})
	if m.state != StateLogin {
		t.Fatalf("want login, got %s", m.state)
	}
	if len(h.board.State().Categories) != 0 {
		t.Error("the board should be cleared on logout")
	}
	n := m.toasts.Len()
	m, _ = send(m, msg.LoggedOut{})
	if m.toasts.Len() != n {
		t.Error("a second logout is ignored")
	}
}

func TestApp_LogoutAction(t *testing.T) {
	h, m := signedIn(t)
	m, cmd := send(m, model.PaletteExecuteMsg{Action: "logout"})
	m = execute(t, m, cmd)
	if m.state != StateLogin {
		t.Fatalf("want login after logout, got %s", m.state)
	}
	if h.sess.State().Authenticated() {
		t.Error("session still authenticated")
	}
}

func TestApp_SessionChangedElsewhere(t *testing.T) {
	h, m := signedIn(t)
	ctx := context.Background()

	h.sess.Logout(ctx)
	m, _ = send(m, msg.SessionChanged{})
	if m.state != StateLogin {
		t.Fatalf("logout in another terminal: want login, got %s", m.state)
	}

	if !h.sess.Login(ctx, "anna", "secret1") {
		t.Fatal(h.sess.State().Err)
	}
	m, cmd := send(m, msg.SessionChanged{})
	if m.state != StateLoading || cmd == nil {
		t.Fatalf("login in another terminal: want loading, got %s", m.state)
	}
	m = execute(t, m, cmd)
	if m.state != StateBoard {
		t.Errorf("want board after reload, got %s", m.state)
	}
}

// ---------------------------------------------------------------------------
// Board
// ---------------------------------------------------------------------------

func TestApp_NavigateAndCompose(t *testing.T) {
	h, m := signedIn(t)

	m = press(t, m, enter) // Emozioni
	st := h.board.State()
	if got := st.Categories.CategoryName(st.CurrentCategory()); got != "Emozioni" {
		t.Fatalf("enter on a category should open it, now on %s", got)
	}
	if !strings.Contains(m.banner.View(), "Emozioni") {
		t.Error("the breadcrumb should show the category")
	}

	m = press(t, m, runes("l"))
	m = press(t, m, enter) // Triste
	m = press(t, m, runes("h"))
	m = press(t, m, enter) // Felice
	if got := grid.Sentence(h.board.State().Text); got != "triste felice" {
		t.Errorf("want %q, got %q", "triste felice", got)
	}

	m = press(t, m, backspace)
	if n := len(h.board.State().Text); n != 1 {
		t.Errorf("backspace removes the last word, %d left", n)
	}

	m = press(t, m, esc)
	if got := h.board.State().CurrentCategory(); got != grid.HomeKey {
		t.Errorf("esc goes back home, now on %s", got)
	}
	if m.board.Cursor() != 0 {
		t.Error("the cursor resets when the category changes")
	}
}

func TestApp_EditorKeysNeedEditorMode(t *testing.T) {
	h, m := signedIn(t)
	for _, k := range []string{"a", "r", "d", "v", "m", "p", "[", "]"} {
		m = press(t, m, runes(k))
		if m.form != nil || m.picker.IsActive() || m.input.IsActive() {
			t.Fatalf("%q opened an editor tool in user mode", k)
		}
	}
	if m.toasts.Len() == 0 {
		t.Error("user mode should point at editor mode")
	}
	if h.board.State().Mode != grid.ModeUser {
		t.Error("mode changed")
	}
}

func TestApp_EditorUnlock(t *testing.T) {
	h, m := signedIn(t)

	m, _ = send(m, runes("e"))
	if m.state != StateForm || m.formKind != formEditorPassword {
		t.Fatalf("e should ask for the editor password, state %s", m.state)
	}
	m.closeForm()

	m, cmd := m.submitForm(formEditorPassword, &formValues{password: "nope"})
	m = execute(t, m, cmd)
	if h.board.State().Mode != grid.ModeUser {
		t.Fatal("a wrong password must not unlock editor mode")
	}

	m, cmd = m.submitForm(formEditorPassword, &formValues{password: "pw"})
	m = execute(t, m, cmd)
	if h.board.State().Mode != grid.ModeEditor {
		t.Fatal("the right password unlocks editor mode")
	}

	m = press(t, m, runes("e"))
	if h.board.State().Mode != grid.ModeUser || m.form != nil {
		t.Error("e in editor mode goes straight back to user mode")
	}
}

func TestApp_AddItem(t *testing.T) {
	h, m := signedIn(t)
	h.board.SetMode(grid.ModeEditor)
	food, _ := itemByLabel(t, h.board.State().CurrentItems(), "Cibo").Target()
	h.board.NavigateToCategory(food)

	m, _ = send(m, runes("a"))
	if m.formKind != formAddItem {
		t.Fatal("a should open the add form in editor mode")
	}
	m.closeForm()

	m, cmd := m.submitForm(formAddItem, &formValues{
		kind:       string(grid.KindSymbol),
		label:      "Pasta",
		symbolType: string(grid.SymbolNoun),
		color:      "#CAFFBF",
	})
	m = execute(t, m, cmd)
	if m.status.IsBusy() {
		t.Error("status should be idle after the operation")
	}
	if got := labels(h.board.State().CurrentItems()); len(got) != 2 || got[1] != "Pasta" {
		t.Fatalf("want Pizza, Pasta; got %v", got)
	}
	saved, _ := h.srv.Board("anna")
	if got := labels(saved[food]); len(got) != 2 {
		t.Errorf("server should have the new item, got %v", got)
	}
}

func TestApp_PlainUserCannotEdit(t *testing.T) {
	h, m := signedInAs(t, mockapi.RoleUser)
	h.board.SetMode(grid.ModeEditor)
	food, _ := itemByLabel(t, h.board.State().CurrentItems(), "Cibo").Target()
	h.board.NavigateToCategory(food)

	m, cmd := m.submitForm(formAddItem, &formValues{
		kind:       string(grid.KindSymbol),
		label:      "Pasta",
		symbolType: string(grid.SymbolNoun),
	})
	m = execute(t, m, cmd)
	if got := labels(h.board.State().CurrentItems()); len(got) != 1 {
		t.Errorf("a rejected add is rolled back, got %v", got)
	}
	if !strings.Contains(h.board.State().Err, "Permission denied") {
		t.Errorf("err = %q", h.board.State().Err)
	}
	if !strings.Contains(m.toasts.View(100), "Permission denied") {
		t.Error("the rejection is shown as a toast")
	}
	saved, _ := h.srv.Board("anna")
	if got := labels(saved[food]); len(got) != 1 {
		t.Errorf("server board changed: %v", got)
	}
}

func TestApp_ReorderFollowsItem(t *testing.T) {
	h, m := signedIn(t)
	h.board.SetMode(grid.ModeEditor)
	m, _ = send(m, msg.GridChanged{})

	m = press(t, m, runes("]"))
	got := labels(h.board.State().CurrentItems())
	if got[0] != "Azioni" || got[1] != "Emozioni" {
		t.Fatalf("want the first two swapped, got %v", got)
	}
	if it, _ := m.board.Selected(); it.Label != "Emozioni" {
		t.Errorf("the cursor should stay on the moved item, on %s", it.Label)
	}

	m = press(t, m, runes("["))
	if got := labels(h.board.State().CurrentItems()); got[0] != "Emozioni" {
		t.Errorf("[ moves it back, got %v", got)
	}
}

func TestApp_HiddenControlDisablesShortcut(t *testing.T) {
	h, m := signedIn(t)
	ctx := context.Background()
	clearAll := itemByLabel(t, h.board.State().Categories[grid.SystemControlsKey], "Cancella tutto")
	if !h.board.ToggleVisibility(ctx, clearAll.ID) {
		t.Fatalf("hide: %s", h.board.State().Err)
	}
	h.board.AddToTextBuffer(grid.TextItem{Text: "io", Speak: "io"})

	m = press(t, m, runes("x"))
	if len(h.board.State().Text) != 1 {
		t.Fatal("a hidden control is disabled in user mode")
	}
	if strings.Contains(m.View(), "Cancella tutto") {
		t.Error("a hidden control is not listed in user mode")
	}

	h.board.SetMode(grid.ModeEditor)
	m = press(t, m, runes("x"))
	if len(h.board.State().Text) != 0 {
		t.Error("editor mode still runs hidden controls")
	}
}

func TestApp_MoveToCategory(t *testing.T) {
	h, m := signedIn(t)
	h.board.SetMode(grid.ModeEditor)
	home := h.board.State().CurrentItems()
	food, _ := itemByLabel(t, home, "Cibo").Target()
	h.board.NavigateToCategory(food)
	m, _ = send(m, msg.GridChanged{})

	m = press(t, m, runes("m"))
	if !m.picker.IsActive() {
		t.Fatal("m should open the destination picker")
	}
	family, _ := itemByLabel(t, home, "Famiglia").Target()
	m, cmd := send(m, model.PickerChoice{Purpose: "move", Key: family})
	m = execute(t, m, cmd)

	st := h.board.State()
	if len(st.Categories[food]) != 0 {
		t.Errorf("Pizza should have left Cibo, got %v", labels(st.Categories[food]))
	}
	if got := labels(st.Categories[family]); len(got) != 2 || got[1] != "Pizza" {
		t.Errorf("Pizza should be in Famiglia, got %v", got)
	}
}

func TestDestinations(t *testing.T) {
	cat := grid.NewCategory("Cibo", "food")
	cat.ID = "c1"
	pizza := grid.NewSymbol("Pizza", "", "", grid.SymbolNoun)
	pizza.ID = "s1"
	st := grid.State{Categories: grid.Categories{
		grid.HomeKey: {cat},
		"food":       {pizza},
	}}

	disabled := func(items []model.PickerItem) map[string]bool {
		out := map[string]bool{}
		for _, it := range items {
			out[it.Key] = it.Disabled
		}
		return out
	}

	got := disabled(destinations(st, pizza, true))
	if got[grid.HomeKey] || !got["food"] {
		t.Errorf("move: the current parent is disabled, got %v", got)
	}
	got = disabled(destinations(st, pizza, false))
	if got["food"] {
		t.Error("copy: the current parent is allowed")
	}
	got = disabled(destinations(st, cat, true))
	if !got["food"] || !got[grid.HomeKey] {
		t.Errorf("a category cannot go into its own page, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Chrome
// ---------------------------------------------------------------------------

func TestApp_ControlRowMarksTense(t *testing.T) {
	h, m := signedIn(t)
	var active []string
	for _, c := range m.controls(h.board.State()) {
		if c.Active {
			active = append(active, c.Label)
		}
	}
	if len(active) != 1 || active[0] != "Presente" {
		t.Errorf("want the present tense marked, got %v", active)
	}
}

func TestApp_HelpScreen(t *testing.T) {
	_, m := signedIn(t)
	m = press(t, m, runes("?"))
	if m.state != StateHelp {
		t.Fatalf("want help, got %s", m.state)
	}
	m = press(t, m, esc)
	if m.state != StateBoard {
		t.Errorf("esc closes help, got %s", m.state)
	}
	md := m.helpMarkdown()
	for _, want := range []string{"## Moving around", "| `space` |", "speak"} {
		if !strings.Contains(md, want) {
			t.Errorf("help lacks %q", want)
		}
	}
}

func TestApp_QuitNeedsTwoCtrlC(t *testing.T) {
	_, m := signedIn(t)
	ctrlC := tea.KeyMsg{Type: tea.KeyCtrlC}
	m, cmd := send(m, ctrlC)
	if cmd != nil {
		t.Fatal("the first ctrl+c only warns")
	}
	_, cmd = send(m, ctrlC)
	if cmd == nil {
		t.Fatal("the second ctrl+c quits")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("want tea.QuitMsg")
	}
}

func TestNext(t *testing.T) {
	if got := next(tenseCycle, grid.TenseFuture); got != grid.TensePresent {
		t.Errorf("the cycle wraps, got %s", got)
	}
	if got := next(sizeCycle, grid.PageSize("huge")); got != grid.SizeSmall {
		t.Errorf("an unknown value restarts the cycle, got %s", got)
	}
}
