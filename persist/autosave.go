package persist

import (
	"context"
	"log/slog"
	"time"

	"github.com/miosa/aac-board/grid"
)

// Autosave saves the board for user after it changes, at most once per
// interval, until ctx is done. Pending changes are flushed on exit. The
// listener is registered before Autosave returns; the returned function
// blocks until the final save has finished.
func (s *Store) Autosave(ctx context.Context, board *grid.Store, user string, interval time.Duration, log *slog.Logger) (wait func()) {
	dirty := make(chan struct{}, 1)
	stop := board.OnChange(func(grid.State) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	save := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Save(ctx, user, board.Prefs()); err != nil && log != nil {
			log.Warn("autosave failed", "err", err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stop()
		t := time.NewTicker(interval)
		defer t.Stop()
		pending := false
		for {
			select {
			case <-ctx.Done():
				select {
				case <-dirty:
					pending = true
				default:
				}
				if pending {
					save()
				}
				return
			case <-dirty:
				pending = true
			case <-t.C:
				if pending {
					save()
					pending = false
				}
			}
		}
	}()
	return func() { <-done }
}
