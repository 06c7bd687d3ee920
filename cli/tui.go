package cli

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/miosa/aac-board/admin"
	tui "github.com/miosa/aac-board/app"
	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
	"github.com/miosa/aac-board/persist"
	"github.com/miosa/aac-board/session"
	"github.com/miosa/aac-board/speech"
)

// autosaveInterval bounds how often the preference cache is written.
const autosaveInterval = 2 * time.Second

func runTUI(cmd *cobra.Command, app *App) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The terminal belongs to the board, so the log goes to a file.
	log, closer, err := app.cfg.OpenLog(app.profileDir)
	if err != nil {
		log = app.log
		log.Warn("log file unavailable, logging to stderr", "err", err)
	} else {
		defer closer.Close()
	}

	c := app.client(log)
	tokens := app.tokens()
	sess := session.New(c, tokens, log)
	if sess.Restore() {
		sess.CheckAuth(ctx)
	}

	board := grid.NewStore(c, grid.WithLogger(log))
	board.SetPageSize(app.cfg.PageSize)

	saver := &autosaver{board: board, log: log, every: autosaveInterval}
	cache, err := persist.Open(ctx, filepath.Join(app.profileDir, persist.Filename))
	if err != nil {
		log.Warn("preference cache unavailable", "err", err)
	} else {
		defer cache.Close()
		saver.cache = cache
	}
	// Flush before the cache closes.
	defer saver.stop()
	sess.OnLogout(saver.stop)

	speaker, err := speech.New(app.cfg.SpeechCommand)
	if err != nil {
		log.Warn("speech disabled", "err", err)
	}

	go func() {
		err := tokens.Watch(ctx, log, 200*time.Millisecond, func(access, refresh string) {
			sess.Adopt(ctx, access, refresh)
		})
		if err != nil {
			log.Warn("token watch stopped", "err", err)
		}
	}()

	m := tui.New(ctx, tui.Deps{
		Board:          board,
		Session:        sess,
		Editor:         c,
		Health:         admin.New(c, log),
		Speaker:        speaker,
		Log:            log,
		SignedIn:       saver.start,
		Version:        app.version,
		HealthInterval: app.cfg.HealthInterval,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	go p.Send(tui.ProgramReady{Program: p})
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// autosaver keeps the signed-in user's preferences in the local cache. Each
// session restores the cached copy and saves changes until logout.
type autosaver struct {
	cache *persist.Store
	board *grid.Store
	log   *slog.Logger
	every time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wait   func()
}

func (a *autosaver) start(ctx context.Context, u client.User) {
	a.stop()
	if a.cache == nil || u.ID == "" {
		return
	}
	prefs, savedAt, ok, err := a.cache.Load(ctx, u.ID)
	switch {
	case err != nil:
		a.log.Warn("load cached preferences", "user", u.ID, "err", err)
	case ok:
		a.board.RestorePrefs(prefs)
		a.log.Debug("restored cached preferences", "user", u.ID, "saved_at", savedAt)
	}

	ctx, cancel := context.WithCancel(ctx)
	wait := a.cache.Autosave(ctx, a.board, u.ID, a.every, a.log)
	a.mu.Lock()
	a.cancel, a.wait = cancel, wait
	a.mu.Unlock()
}

// stop flushes pending changes and ends the current autosave, if any.
func (a *autosaver) stop() {
	a.mu.Lock()
	cancel, wait := a.cancel, a.wait
	a.cancel, a.wait = nil, nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		wait()
	}
}
