package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/mockapi"
	"github.com/miosa/aac-board/session"
)

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func newLoginCmd(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session for this profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields []huh.Field
			if username == "" {
				fields = append(fields, huh.NewInput().Title("Username").Value(&username).Validate(notBlank("username")))
			}
			if password == "" {
				fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password).Validate(notBlank("password")))
			}
			if len(fields) > 0 {
				if err := newForm(huh.NewGroup(fields...)).Run(); err != nil {
					return err
				}
			}

			c := app.client(app.log)
			s := session.New(c, app.tokens(), app.log)
			if !s.Login(cmd.Context(), strings.TrimSpace(username), password) {
				return errors.New(orDefault(s.State().Err, "Login failed."))
			}
			u := s.State().User
			return writeOut(cmd, app, u, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s (%s)\n", u.Username, app.cfg.BackendURL)
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", envOr("AAC_USERNAME", ""), "Username")
	cmd.Flags().StringVarP(&password, "password", "p", envOr("AAC_PASSWORD", ""), "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var req client.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account with a starter board",
		Long: strings.TrimSpace(`
Create an account and sign in. The editor password protects editor mode on
the board; it can differ from the account password.

Grid types:
  default     five categories with subjects, verbs, feelings, food and family
  simplified  two categories and no tense controls
  empty       only the system controls
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Username == "" || req.Password == "" {
				if err := registerForm(&req).Run(); err != nil {
					return err
				}
			}
			if _, ok := mockapi.BoardFor(req.GridType); !ok {
				return fmt.Errorf("unknown grid type %q (want default, simplified or empty)", req.GridType)
			}

			c := app.client(app.log)
			s := session.New(c, app.tokens(), app.log)
			req.Username = strings.TrimSpace(req.Username)
			if !s.Register(cmd.Context(), req) {
				return errors.New(orDefault(s.State().Err, "Registration failed."))
			}
			u := s.State().User
			return writeOut(cmd, app, u, func(w io.Writer) {
				fmt.Fprintf(w, "Account %s created and signed in\n", u.Username)
			})
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password, at least 6 characters")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.EditorPassword, "editor-password", "", "Password for editor mode")
	cmd.Flags().StringVar(&req.GridType, "grid-type", mockapi.GridDefault, "Starter board: default, simplified or empty")
	return cmd
}

func registerForm(req *client.RegisterRequest) *huh.Form {
	if req.GridType == "" {
		req.GridType = mockapi.GridDefault
	}
	return newForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&req.Username).Validate(notBlank("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&req.Password).
				Validate(func(s string) error {
					if len(s) < 6 {
						return errors.New("use at least 6 characters")
					}
					return nil
				}),
			huh.NewInput().Title("Email").Description("Optional.").Value(&req.Email),
		).Title("New account"),
		huh.NewGroup(
			huh.NewInput().
				Title("Editor password").
				Description("Unlocks editor mode on the board. Optional.").
				EchoMode(huh.EchoModePassword).
				Value(&req.EditorPassword),
			huh.NewSelect[string]().
				Title("Starter board").
				Options(
					huh.NewOption("Default: subjects, verbs, feelings, food, family", mockapi.GridDefault),
					huh.NewOption("Simplified: two categories", mockapi.GridSimplified),
					huh.NewOption("Empty", mockapi.GridEmpty),
				).
				Value(&req.GridType),
		),
	)
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget its tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.client(app.log)
			s := session.New(c, app.tokens(), app.log)
			s.Restore()
			if access, refresh := c.Tokens(); access == "" && refresh == "" {
				return errNotLoggedIn
			}
			s.Logout(cmd.Context())
			return writeOut(cmd, app, map[string]bool{"logged_out": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Signed out")
			})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := app.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			u := s.State().User
			return writeOut(cmd, app, u, func(w io.Writer) {
				printKV(w,
					"User", u.Username,
					"ID", u.ID,
					"Email", u.Email,
					"Roles", roleNames(u.Roles, u.Role),
					"Editor", yesNo(u.CanEdit()),
					"Backend", app.cfg.BackendURL,
				)
			})
		},
	}
}

func roleNames(roles []client.Role, legacy string) string {
	names := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		names = append(names, r.Name)
	}
	if len(names) == 0 && legacy != "" {
		names = append(names, legacy)
	}
	return strings.Join(names, ", ")
}
