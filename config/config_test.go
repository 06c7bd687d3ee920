package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miosa/aac-board/grid"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg := Load(t.TempDir())
	if cfg != Defaults() {
		t.Errorf("want defaults, got %+v", cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	data := "backend_url: http://aac.local:8080\nrequest_timeout: 3s\npage_size: huge\n"
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load(dir)
	if cfg.BackendURL != "http://aac.local:8080" {
		t.Errorf("backend_url: got %q", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("request_timeout: got %v", cfg.RequestTimeout)
	}
	if cfg.PageSize != grid.SizeMedium {
		t.Errorf("invalid page size should fall back, got %q", cfg.PageSize)
	}
	if cfg.HealthInterval != 30*time.Second {
		t.Errorf("health_interval: got %v", cfg.HealthInterval)
	}
}

func TestLoadFrom_MalformedReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), filename)
	if err := os.WriteFile(path, []byte("backend_url: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("want parse error")
	}
	if cfg != Defaults() {
		t.Errorf("want defaults on error, got %+v", cfg)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles", "dev")
	want := Defaults()
	want.Theme = "light"
	want.SpeechCommand = "espeak -v it"
	if err := Save(dir, want); err != nil {
		t.Fatal(err)
	}
	if got := Load(dir); got != want {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AAC_URL", "http://env:1")
	t.Setenv("AAC_LOG_LEVEL", "debug")
	cfg := Defaults()
	cfg.ApplyEnv()
	if cfg.BackendURL != "http://env:1" || ParseLevel(cfg.LogLevel) != slog.LevelDebug {
		t.Errorf("got %+v", cfg)
	}
}

func TestProfileDir(t *testing.T) {
	t.Setenv("HOME", "/home/anna")
	t.Setenv("AAC_PROFILE", "")
	if got := ProfileDir(""); got != filepath.Join("/home/anna", ".aac") {
		t.Errorf("default: got %q", got)
	}
	if got := ProfileDir("school"); got != filepath.Join("/home/anna", ".aac", "profiles", "school") {
		t.Errorf("named: got %q", got)
	}
	t.Setenv("AAC_PROFILE", "home")
	if got := ProfileDir(""); got != filepath.Join("/home/anna", ".aac", "profiles", "home") {
		t.Errorf("env: got %q", got)
	}
}
