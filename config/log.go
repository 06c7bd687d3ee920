package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogFile is where the board writes its log while it owns the terminal.
const LogFile = "aac.log"

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewLogger returns a text logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(c.LogLevel)}))
}

// OpenLog opens <profileDir>/aac.log for appending and returns a logger on it.
// The caller closes the returned file.
func (c Config) OpenLog(profileDir string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(profileDir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return c.NewLogger(f), f, nil
}
