// Package app is the board's terminal UI: a tea.Model state machine over the
// grid store and the session.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/miosa/aac-board/admin"
	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/model"
	"github.com/miosa/aac-board/msg"
	"github.com/miosa/aac-board/session"
	"github.com/miosa/aac-board/speech"
)

// EditorGate checks the password that unlocks editor mode.
type EditorGate interface {
	CheckEditorPassword(ctx context.Context, password string) (bool, error)
}

// HealthChecker pings the backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) admin.HealthStatus
}

// Deps are the services the UI drives.
type Deps struct {
	Board   *grid.Store
	Session *session.Session
	Editor  EditorGate
	Health  HealthChecker // nil disables the backend indicator
	Speaker speech.Speaker
	Copy    func(text string) error // speech.Copy when nil
	Log     *slog.Logger

	// SignedIn runs before the first board fetch of every session, e.g. to
	// restore cached preferences and start autosave.
	SignedIn func(ctx context.Context, user client.User)

	Version        string
	HealthInterval time.Duration
}

// ProgramReady hands the running program to the model so store and session
// callbacks can be turned into messages.
type ProgramReady struct{ Program *tea.Program }

type retryHealth struct{}

// healthRetry is the ping interval while the backend is down.
const healthRetry = 5 * time.Second

type Model struct {
	deps Deps
	ctx  context.Context

	banner   model.BannerModel
	board    model.BoardModel
	status   model.StatusModel
	toasts   model.ToastsModel
	picker   model.PickerModel
	palette  model.PaletteModel
	input    model.InputModel
	helpView viewport.Model
	helpBar  help.Model

	form     *huh.Form
	formKind formKind
	values   *formValues
	target   string // id of the item the open picker, prompt or form acts on

	state       State
	program     *tea.Program
	keys        KeyMap
	width       int
	height      int
	confirmQuit bool
	inflight    int

	// category shown by the board, to reset the cursor on navigation
	current string
	depth   int
}

// New builds the UI. ctx bounds every backend call it makes; cancel it after
// the program exits.
func New(ctx context.Context, d Deps) Model {
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Speaker == nil {
		d.Speaker = speech.Silent{}
	}
	if d.Copy == nil {
		d.Copy = speech.Copy
	}
	m := Model{
		deps: d, ctx: ctx,
		banner: model.NewBanner(d.Version), board: model.NewBoard(), status: model.NewStatus(),
		toasts: model.NewToasts(), picker: model.NewPicker(), palette: model.NewPalette(),
		input: model.NewInput(), helpView: viewport.New(80, 20), helpBar: help.New(),
		keys: DefaultKeyMap(), width: 80, height: 24,
	}
	if d.Session.State().Authenticated() {
		m.state = StateLoading
	} else {
		m.openLogin("")
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.checkHealth(), tickCmd(), tea.WindowSize()}
	if m.state == StateLogin {
		cmds = append(cmds, m.form.Init())
	} else {
		cmds = append(cmds, m.loadBoard())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(rawMsg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(rawMsg)
	m.sync()
	return m, cmd
}

func (m Model) update(rawMsg tea.Msg) (Model, tea.Cmd) {
	switch v := rawMsg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
		m.layout()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(v)
	case ProgramReady:
		m.program = v.Program
		m.subscribe()
		return m, nil
	case msg.GridChanged:
		return m, nil
	case msg.SessionChanged:
		return m.handleSessionChanged()
	case msg.LoggedOut:
		return m.handleLoggedOut(v)
	case msg.LoginResult:
		return m.handleLogin(v)
	case msg.GridLoaded:
		if m.state == StateLoading {
			m.state = StateBoard
		}
		if !v.OK {
			m.toastError("Could not load the board.")
		}
		return m, nil
	case msg.OpResult:
		return m.handleOp(v)
	case msg.EditorUnlock:
		return m.handleEditorUnlock(v)
	case msg.SpeakResult:
		switch {
		case errors.Is(v.Err, speech.ErrNoSpeaker):
			m.toast("No speech command configured. Set speech_command in config.yaml.", model.ToastWarning)
		case v.Err != nil:
			m.deps.Log.Warn("speak failed", "err", v.Err)
			m.toastError("Speech failed.")
		}
		return m, nil
	case msg.CopyResult:
		if v.Err != nil {
			m.toastError("Could not copy: " + v.Err.Error())
		} else {
			m.toast("Sentence copied", model.ToastInfo)
		}
		return m, nil
	case msg.HealthResult:
		return m.handleHealth(v)
	case retryHealth:
		return m, m.checkHealth()
	case msg.TickMsg:
		m.toasts.Tick(time.Time(v))
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.status, cmd = m.status.Update(v)
		return m, cmd
	case model.PickerChoice:
		return m.handlePickerChoice(v)
	case model.InputSubmit:
		return m.handleInputSubmit(v)
	case model.PaletteExecuteMsg:
		return m.runAction(v.Action)
	case model.PickerCancel, model.InputCancel, model.PaletteDismissMsg:
		m.target = ""
		return m, nil
	}
	return m.forward(rawMsg)
}

// forward hands messages the model does not handle, such as cursor blinks,
// to whichever component is active.
func (m Model) forward(rawMsg tea.Msg) (Model, tea.Cmd) {
	switch {
	case m.form != nil:
		return m.updateForm(rawMsg)
	case m.palette.IsActive():
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(rawMsg)
		return m, cmd
	case m.input.IsActive():
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(rawMsg)
		return m, cmd
	case m.state == StateHelp:
		var cmd tea.Cmd
		m.helpView, cmd = m.helpView.Update(rawMsg)
		return m, cmd
	}
	return m, nil
}

// subscribe relays store and session callbacks as messages. Store changes
// are coalesced; sends happen off the callback goroutine because the store
// notifies synchronously, possibly from inside Update.
func (m *Model) subscribe() {
	p, ctx := m.program, m.ctx
	changed := make(chan struct{}, 1)
	stop := m.deps.Board.OnChange(func(grid.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				p.Send(msg.GridChanged{})
			}
		}
	}()
	sess := m.deps.Session
	sess.OnChange(func(session.State) { go p.Send(msg.SessionChanged{}) })
	sess.OnLogout(func() { go p.Send(msg.LoggedOut{Reason: sess.State().Err}) })
}

func (m Model) handleKey(k tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(k, m.keys.Cancel) {
		if m.confirmQuit {
			return m, tea.Quit
		}
		m.confirmQuit = true
		m.toast("Press Ctrl+C again to quit", model.ToastWarning)
		return m, nil
	}
	m.confirmQuit = false

	switch m.state {
	case StateLogin, StateForm:
		return m.updateForm(k)
	case StateLoading:
		return m, nil
	case StateHelp:
		if key.Matches(k, m.keys.Back, m.keys.Help, m.keys.Quit) {
			m.state = StateBoard
			return m, nil
		}
		var cmd tea.Cmd
		m.helpView, cmd = m.helpView.Update(k)
		return m, cmd
	}

	var cmd tea.Cmd
	switch {
	case m.palette.IsActive():
		m.palette, cmd = m.palette.Update(k)
		return m, cmd
	case m.picker.IsActive():
		m.picker, cmd = m.picker.Update(k)
		return m, cmd
	case m.input.IsActive():
		m.input, cmd = m.input.Update(k)
		return m, cmd
	}
	return m.handleBoardKey(k)
}

// -- Forms --

func (m *Model) openForm(kind formKind, f *huh.Form) tea.Cmd {
	m.form, m.formKind = f, kind
	if kind != formLogin {
		m.state = StateForm
	}
	return f.Init()
}

func (m *Model) openLogin(username string) {
	m.values = &formValues{username: username}
	m.form, m.formKind = loginForm(m.values, m.width), formLogin
	m.state = StateLogin
}

func (m *Model) closeForm() {
	m.form, m.formKind = nil, formNone
	if m.state == StateForm {
		m.state = StateBoard
	}
}

func (m Model) updateForm(rawMsg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	fm, cmd := m.form.Update(rawMsg)
	if f, ok := fm.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		kind, v := m.formKind, m.values
		m.closeForm()
		next, done := m.submitForm(kind, v)
		return next, tea.Batch(cmd, done)
	case huh.StateAborted:
		if m.formKind == formLogin {
			// There is nothing behind the login form; start over.
			m.openLogin(m.values.username)
			return m, m.form.Init()
		}
		m.closeForm()
		m.target = ""
	}
	return m, cmd
}

func (m Model) submitForm(kind formKind, v *formValues) (Model, tea.Cmd) {
	d, ctx := m.deps, m.ctx
	switch kind {
	case formLogin:
		m.state = StateLoading
		user, pw := v.username, v.password
		return m, func() tea.Msg {
			ok := d.Session.Login(ctx, user, pw)
			return msg.LoginResult{OK: ok, Err: d.Session.State().Err}
		}
	case formAddItem:
		item := v.item()
		parent := d.Board.State().CurrentCategory()
		return m, m.run("add", func(ctx context.Context) bool { return d.Board.AddGridItem(ctx, item, parent) })
	case formEditorPassword:
		pw := v.password
		return m, func() tea.Msg {
			valid, err := d.Editor.CheckEditorPassword(ctx, pw)
			return msg.EditorUnlock{Valid: valid, Err: err}
		}
	case formConfirmDelete:
		id := m.target
		m.target = ""
		if !v.confirm || id == "" {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) bool { return d.Board.DeleteGridItem(ctx, id, "") })
	}
	return m, nil
}

// -- Session --

func (m Model) handleLogin(r msg.LoginResult) (Model, tea.Cmd) {
	if !r.OK {
		username := ""
		if m.values != nil {
			username = m.values.username
		}
		m.openLogin(username)
		m.toastError(orDefault(r.Err, "Login failed."))
		return m, m.form.Init()
	}
	m.state = StateLoading
	return m, m.loadBoard()
}

func (m Model) handleLoggedOut(v msg.LoggedOut) (Model, tea.Cmd) {
	if m.state == StateLogin {
		return m, nil
	}
	m.deps.Board.Reset()
	m.picker.Clear()
	m.input.Close()
	m.target, m.inflight = "", 0
	m.status.Idle()
	m.openLogin("")
	if v.Reason != "" {
		m.toast(v.Reason, model.ToastWarning)
	} else {
		m.toast("Logged out", model.ToastInfo)
	}
	return m, m.form.Init()
}

// handleSessionChanged follows tokens adopted from disk: a login made in
// another terminal opens the board, a logout there returns to the form.
func (m Model) handleSessionChanged() (Model, tea.Cmd) {
	st := m.deps.Session.State()
	switch {
	case st.Loading:
	case m.state == StateLogin && st.Authenticated():
		m.form, m.formKind = nil, formNone
		m.state = StateLoading
		return m, m.loadBoard()
	case m.state != StateLogin && m.state != StateLoading && !st.Authenticated():
		return m.handleLoggedOut(msg.LoggedOut{Reason: orDefault(st.Err, "Signed out in another terminal.")})
	}
	return m, nil
}

func (m Model) loadBoard() tea.Cmd {
	d, ctx := m.deps, m.ctx
	return func() tea.Msg {
		if u := d.Session.State().User; u != nil && d.SignedIn != nil {
			d.SignedIn(ctx, *u)
		}
		return msg.GridLoaded{OK: d.Board.InitialLoad(ctx)}
	}
}

func (m Model) handleEditorUnlock(v msg.EditorUnlock) (Model, tea.Cmd) {
	switch {
	case v.Err != nil:
		m.deps.Log.Warn("editor password check failed", "err", v.Err)
		m.toastError("Could not check the editor password.")
	case !v.Valid:
		m.toastError("Wrong editor password.")
	default:
		m.deps.Board.SetMode(grid.ModeEditor)
		m.toast("Editor mode", model.ToastInfo)
	}
	return m, nil
}

// -- Operations --

// run executes a blocking store operation off the UI goroutine.
func (m *Model) run(action string, fn func(ctx context.Context) bool) tea.Cmd {
	ctx := m.ctx
	m.inflight++
	return tea.Batch(
		m.status.Busy(action+"…"),
		func() tea.Msg { return msg.OpResult{Action: action, OK: fn(ctx)} },
	)
}

var opSuccess = map[string]string{
	"add":     "Item added",
	"delete":  "Item deleted",
	"rename":  "Item renamed",
	"copy":    "Item copied",
	"move":    "Item moved",
	"save":    "Board saved",
	"reload":  "Board reloaded",
	"correct": "Text corrected",
}

func (m Model) handleOp(r msg.OpResult) (Model, tea.Cmd) {
	if m.inflight > 0 {
		m.inflight--
	}
	if m.inflight == 0 {
		m.status.Idle()
	}
	if !r.OK {
		m.toastError(orDefault(m.deps.Board.State().Err, "Failed to "+r.Action+"."))
		return m, nil
	}
	if text, ok := opSuccess[r.Action]; ok {
		m.toast(text, model.ToastInfo)
	}
	return m, nil
}

// -- Health --

func (m Model) checkHealth() tea.Cmd {
	h, ctx := m.deps.Health, m.ctx
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		st := h.CheckHealth(ctx)
		r := msg.HealthResult{Err: st.Err, Latency: st.Latency}
		if st.Response != nil {
			r.Status = st.Response.Status
			r.Version = st.Response.Version
			r.Storage = st.Response.Database
			r.UptimeSeconds = st.Response.UptimeSeconds
		}
		return r
	}
}

func (m Model) handleHealth(r msg.HealthResult) (Model, tea.Cmd) {
	m.status.SetHealth(r, time.Now())
	interval := m.deps.HealthInterval
	if interval <= 0 {
		interval = admin.HealthInterval
	}
	if !r.Up() {
		interval = min(interval, healthRetry)
	}
	return m, tea.Tick(interval, func(time.Time) tea.Msg { return retryHealth{} })
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return msg.TickMsg(t) })
}

// -- Toasts --

func (m *Model) toast(text string, level model.ToastLevel) {
	m.toasts.Add(text, level, time.Now())
}

func (m *Model) toastError(text string) {
	m.toast(text, model.ToastError)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
