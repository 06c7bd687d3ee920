// Package cli is the aac command line. Without a subcommand it runs the
// board; the subcommands script the session, the board and administration.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/config"
	"github.com/miosa/aac-board/markdown"
	"github.com/miosa/aac-board/session"
	"github.com/miosa/aac-board/style"
)

type App struct {
	Profile string
	Dev     bool
	URL     string
	NoColor bool
	JSON    bool

	version    string
	profileDir string
	cfg        config.Config
	log        *slog.Logger
}

func NewRootCmd(version string) *cobra.Command {
	app := &App{version: version}

	cmd := &cobra.Command{
		Use:          "aac",
		Short:        "AAC communication board for the terminal",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		Example: strings.TrimSpace(`
  # Open the board
  aac

  # Sign in once; the board and every command reuse the session
  aac login -u anna

  # Back up and restore the board
  aac grid export board.json
  aac grid import board.json

  # Try everything against a local in-memory backend
  aac mock-server --user anna:secret1:pw
  aac --url http://localhost:3000 login -u anna
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
	cmd.SetVersionTemplate("aac {{.Version}}\n")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.setup(cmd)
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Profile, "profile", envOr("AAC_PROFILE", ""), "Named profile for state isolation (~/.aac/profiles/<name>)")
	cmd.PersistentFlags().BoolVar(&app.Dev, "dev", false, "Dev mode (alias for --profile dev, backend on port 3001)")
	cmd.PersistentFlags().StringVar(&app.URL, "url", "", "Backend URL (overrides config and AAC_URL)")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable ANSI colors")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print command results as JSON")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newGridCmd(app))
	cmd.AddCommand(newPictogramsCmd(app))
	cmd.AddCommand(newAdminCmd(app))
	cmd.AddCommand(newMockServerCmd(app))

	return cmd
}

// setup resolves the profile and loads its config. Flags win over the
// environment, which wins over config.yaml.
func (app *App) setup(cmd *cobra.Command) {
	profile := app.Profile
	if app.Dev && profile == "" {
		profile = "dev"
	}
	app.profileDir = config.ProfileDir(profile)

	cfg := config.Load(app.profileDir)
	cfg.ApplyEnv()
	if app.Dev && cfg.BackendURL == config.DefaultBackendURL {
		cfg.BackendURL = config.DevBackendURL
	}
	if app.URL != "" {
		cfg.BackendURL = app.URL
	}
	app.cfg = cfg

	if app.NoColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if !style.SetTheme(cfg.Theme) {
		style.SetTheme("dark")
	}
	markdown.SetStyle(cfg.Theme)

	app.log = cfg.NewLogger(cmd.ErrOrStderr())
}

func (app *App) client(log *slog.Logger) *client.Client {
	return client.New(app.cfg.BackendURL,
		client.WithTimeout(app.cfg.RequestTimeout),
		client.WithLogger(log),
	)
}

func (app *App) tokens() session.FileTokens {
	return session.FileTokens{Dir: app.profileDir}
}

var errNotLoggedIn = errors.New("not logged in; run `aac login`")

// signedIn restores the profile's session and verifies it with the backend.
func (app *App) signedIn(ctx context.Context) (*client.Client, *session.Session, error) {
	c := app.client(app.log)
	s := session.New(c, app.tokens(), app.log)
	s.Restore()
	if access, refresh := c.Tokens(); access == "" && refresh == "" {
		return nil, nil, errNotLoggedIn
	}
	if !s.CheckAuth(ctx) {
		return nil, nil, fmt.Errorf("%s Run `aac login`.", orDefault(s.State().Err, "Session expired."))
	}
	return c, s, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
