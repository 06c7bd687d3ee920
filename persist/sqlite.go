// Package persist keeps a per-user snapshot of the board (tense, page size,
// mode and the last known category map) in a local SQLite file, so the board
// comes back as it was and can be shown before the server answers.
package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/miosa/aac-board/grid"
)

// Filename of the snapshot database inside the profile directory.
const Filename = "board.sqlite"

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			user_key TEXT PRIMARY KEY,
			tense TEXT NOT NULL,
			page_size TEXT NOT NULL,
			mode TEXT NOT NULL,
			categories_json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(k, v) VALUES ('schema_version', '1');`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save replaces the snapshot for user.
func (s *Store) Save(ctx context.Context, user string, p grid.Prefs) error {
	cats := p.Categories
	if cats == nil {
		cats = grid.Categories{}
	}
	data, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots(user_key, tense, page_size, mode, categories_json, updated_at_unixms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			tense = excluded.tense,
			page_size = excluded.page_size,
			mode = excluded.mode,
			categories_json = excluded.categories_json,
			updated_at_unixms = excluded.updated_at_unixms`,
		user, string(p.Tense), string(p.PageSize), string(p.Mode), string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for user. ok is false when none was saved.
func (s *Store) Load(ctx context.Context, user string) (p grid.Prefs, savedAt time.Time, ok bool, err error) {
	var tense, size, mode, data string
	var ms int64
	row := s.db.QueryRowContext(ctx,
		`SELECT tense, page_size, mode, categories_json, updated_at_unixms FROM snapshots WHERE user_key = ?`, user)
	if err := row.Scan(&tense, &size, &mode, &data, &ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grid.Prefs{}, time.Time{}, false, nil
		}
		return grid.Prefs{}, time.Time{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var cats grid.Categories
	if err := json.Unmarshal([]byte(data), &cats); err != nil {
		return grid.Prefs{}, time.Time{}, false, fmt.Errorf("decode categories: %w", err)
	}
	p = grid.Prefs{
		Tense:      grid.Tense(tense),
		PageSize:   grid.PageSize(size),
		Mode:       grid.Mode(mode),
		Categories: cats,
	}
	return p, time.UnixMilli(ms), true, nil
}

// Delete drops the snapshot for user.
func (s *Store) Delete(ctx context.Context, user string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE user_key = ?`, user); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
