package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/miosa/aac-board/mockapi"
)

func newMockServerCmd(app *App) *cobra.Command {
	var (
		addr        string
		users       []string
		accessTTL   time.Duration
		geminiKey   string
		geminiModel string
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory backend for development and demos",
		Long: strings.TrimSpace(`
Run an in-memory backend speaking the board API. State is lost on exit.

Seed accounts with --user name:password[:editor-password[:role,role]]. Without
--gemini-key sentence correction and conjugation use a small built-in
dictionary.
`),
		Example: "  aac mock-server --user anna:secret1:pw --user root:secret1::admin",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []mockapi.Option{
				mockapi.WithLogger(app.log),
				mockapi.WithAccessTTL(accessTTL),
			}
			for _, spec := range users {
				seed, err := parseSeedUser(spec)
				if err != nil {
					return err
				}
				opts = append(opts, seed)
			}
			if geminiKey != "" {
				ai, err := mockapi.NewGemini(cmd.Context(), geminiKey, geminiModel)
				if err != nil {
					return err
				}
				opts = append(opts, mockapi.WithTextAI(ai))
			}
			return serve(cmd.Context(), app, addr, mockapi.New(opts...))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address")
	cmd.Flags().StringArrayVar(&users, "user", nil, "Seed account name:password[:editor-password[:role,role]] (repeatable)")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", mockapi.DefaultAccessTTL, "Access token lifetime")
	cmd.Flags().StringVar(&geminiKey, "gemini-key", envOr("GEMINI_API_KEY", ""), "Gemini API key for sentence correction")
	cmd.Flags().StringVar(&geminiModel, "gemini-model", mockapi.DefaultGeminiModel, "Gemini model name")
	return cmd
}

// parseSeedUser reads name:password[:editor-password[:role,role]]. Accounts
// without roles get the user role.
func parseSeedUser(spec string) (mockapi.Option, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("--user %q: want name:password[:editor-password[:role,role]]", spec)
	}
	var editor string
	if len(parts) > 2 {
		editor = parts[2]
	}
	var roles []string
	if len(parts) > 3 {
		for _, r := range strings.Split(parts[3], ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
	}
	if len(roles) == 0 {
		roles = []string{mockapi.RoleUser}
	}
	return mockapi.WithUser(parts[0], parts[1], editor, roles...), nil
}

// serve runs h on addr until ctx is done, then drains open requests.
func serve(ctx context.Context, app *App, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	app.log.Info("mock backend listening", "addr", ln.Addr().String(), "version", mockapi.Version)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
