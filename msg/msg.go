// Package msg defines the tea.Msg types dispatched within the board TUI.
// It imports no other package of the module so every layer can use it.
package msg

import "time"

// -- Lifecycle --

// HealthResult from a backend ping.
type HealthResult struct {
	Status        string
	Version       string
	Storage       string
	UptimeSeconds int64
	Latency       time.Duration
	Err           error
}

// Up reports whether the backend answered and called itself healthy.
func (h HealthResult) Up() bool {
	return h.Err == nil && (h.Status == "ok" || h.Status == "healthy")
}

// GridLoaded after the first fetch of the board.
type GridLoaded struct {
	OK bool
}

// GridChanged whenever the board store notifies a change. It carries no data;
// the view reads the store.
type GridChanged struct{}

// SessionChanged whenever the session notifies a change.
type SessionChanged struct{}

// LoggedOut after the session was cleared, by the user or by expiry.
type LoggedOut struct {
	Reason string
}

// -- Operations --

// OpResult ends an asynchronous board operation. Action names it for the
// toast; the error text, when any, is in the store state.
type OpResult struct {
	Action string
	OK     bool
}

// LoginResult from the login form.
type LoginResult struct {
	OK  bool
	Err string
}

// EditorUnlock from the editor password check.
type EditorUnlock struct {
	Valid bool
	Err   error
}

// SpeakResult after the speech command finished.
type SpeakResult struct {
	Text string
	Err  error
}

// CopyResult after the sentence was put on the clipboard.
type CopyResult struct {
	Err error
}

// -- Timers --

// TickMsg drives toast expiry.
type TickMsg time.Time
