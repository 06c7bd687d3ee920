package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Token file names inside the profile directory.
const (
	AccessFile  = "token"
	RefreshFile = "refresh_token"
)

// TokenStore persists the token pair between runs.
type TokenStore interface {
	Load() (access, refresh string, err error)
	Save(access, refresh string) error
}

// FileTokens keeps the pair as two 0600 files in Dir. Saving an empty token
// removes its file.
type FileTokens struct {
	Dir string
}

func (f FileTokens) Load() (access, refresh string, err error) {
	access, err = f.read(AccessFile)
	if err != nil {
		return "", "", err
	}
	refresh, err = f.read(RefreshFile)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (f FileTokens) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (f FileTokens) Save(access, refresh string) error {
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	if err := f.write(AccessFile, access); err != nil {
		return err
	}
	return f.write(RefreshFile, refresh)
}

func (f FileTokens) write(name, value string) error {
	path := filepath.Join(f.Dir, name)
	if value == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Watch calls fn with the stored pair whenever one of the token files
// changes, so a login from another terminal reaches a running board. Events
// are coalesced over debounce. Watch blocks until ctx is done.
func (f FileTokens) Watch(ctx context.Context, log *slog.Logger, debounce time.Duration, fn func(access, refresh string)) error {
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch tokens: %w", err)
	}
	defer w.Close()
	if err := w.Add(f.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", f.Dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != AccessFile && name != RefreshFile {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if log != nil {
				log.Warn("token watcher error", "err", err)
			}
		case <-fire:
			fire = nil
			access, refresh, err := f.Load()
			if err != nil {
				if log != nil {
					log.Warn("reload tokens", "err", err)
				}
				continue
			}
			fn(access, refresh)
		}
	}
}
