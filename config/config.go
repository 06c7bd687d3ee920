// Package config holds the persistent client settings stored at
// <profileDir>/config.yaml and the profile directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miosa/aac-board/grid"
)

// Config holds persistent settings. Zero fields fall back to defaults.
type Config struct {
	BackendURL     string        `yaml:"backend_url,omitempty"`
	Theme          string        `yaml:"theme,omitempty"` // dark, light, contrast
	Language       string        `yaml:"language,omitempty"`
	PageSize       grid.PageSize `yaml:"page_size,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	HealthInterval time.Duration `yaml:"health_interval,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`

	// SpeechCommand is run with the utterance appended as the last argument,
	// e.g. "espeak -v it".
	SpeechCommand string `yaml:"speech_command,omitempty"`
}

const (
	filename = "config.yaml"

	DefaultBackendURL = "http://localhost:3000"
	DevBackendURL     = "http://localhost:3001"
)

// Load reads <profileDir>/config.yaml and returns the parsed Config.
// If the file is absent or unreadable, a default Config is returned.
func Load(profileDir string) Config {
	cfg, _ := LoadFrom(filepath.Join(profileDir, filename))
	return cfg
}

// LoadFrom reads config from a specific path. A missing file yields the
// defaults with no error; a malformed one yields the defaults and the error.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parsing config: %w", err)
	}
	cfg.fill()
	return cfg, nil
}

// Save writes cfg to <profileDir>/config.yaml, creating the directory if needed.
func Save(profileDir string, cfg Config) error {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(profileDir, filename), data, 0o644)
}

// Defaults returns a Config with every field set.
func Defaults() Config {
	return Config{
		BackendURL:     DefaultBackendURL,
		Theme:          "dark",
		Language:       "it-IT",
		PageSize:       grid.SizeMedium,
		RequestTimeout: 10 * time.Second,
		HealthInterval: 30 * time.Second,
		LogLevel:       "info",
	}
}

func (c *Config) fill() {
	d := Defaults()
	if c.BackendURL == "" {
		c.BackendURL = d.BackendURL
	}
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	if _, ok := grid.ParsePageSize(string(c.PageSize)); !ok {
		c.PageSize = d.PageSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = d.HealthInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// ApplyEnv overrides fields from AAC_URL and AAC_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("AAC_URL")); v != "" {
		c.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AAC_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
}

// ProfileDir returns ~/.aac, or ~/.aac/profiles/<name> for a named profile.
// An empty name falls back to AAC_PROFILE.
func ProfileDir(name string) string {
	if name == "" {
		name = os.Getenv("AAC_PROFILE")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if name == "" {
		return filepath.Join(home, ".aac")
	}
	return filepath.Join(home, ".aac", "profiles", name)
}
