package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/miosa/aac-board/admin"
	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/markdown"
	"github.com/miosa/aac-board/style"
)

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "User, role and system administration (admin role required)",
	}
	cmd.AddCommand(newAdminUsersCmd(app))
	cmd.AddCommand(newAdminRolesCmd(app))
	cmd.AddCommand(newAdminAnalyticsCmd(app))
	cmd.AddCommand(newAdminHealthCmd(app))
	return cmd
}

// service returns the admin service over the signed-in client.
func (app *App) service(cmd *cobra.Command) (*admin.Service, error) {
	c, _, err := app.signedIn(cmd.Context())
	if err != nil {
		return nil, err
	}
	return admin.New(c, app.log), nil
}

// -- users --

func newAdminUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newAdminUsersListCmd(app))
	cmd.AddCommand(newAdminUsersGetCmd(app))
	cmd.AddCommand(newAdminUsersCreateCmd(app))
	cmd.AddCommand(newAdminUsersUpdateCmd(app))
	cmd.AddCommand(newAdminUsersDeleteCmd(app))
	cmd.AddCommand(newAdminUsersBulkCmd(app))
	return cmd
}

func newAdminUsersListCmd(app *App) *cobra.Command {
	var f client.UserFilters
	var active string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if active != "" {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("--active: want true or false, got %q", active)
				}
				f.IsActive = &b
			}
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			page, err := svc.Users(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, page, func(w io.Writer) {
				if len(page.Users) == 0 {
					fmt.Fprintln(w, "No users")
					return
				}
				fmt.Fprintln(w, usersTable(page.Users))
				fmt.Fprintln(w, style.Faint.Render(fmt.Sprintf("page %d of %d · %d users", page.CurrentPage, max(page.TotalPages, 1), page.TotalCount)))
			})
		},
	}

	cmd.Flags().IntVar(&f.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&f.Limit, "limit", admin.DefaultPageSize, "Users per page")
	cmd.Flags().StringVar(&f.Search, "search", "", "Match username or email")
	cmd.Flags().StringVar(&f.Role, "role", "", "Only users with this role")
	cmd.Flags().StringVar(&active, "active", "", "Only active (true) or inactive (false) users")
	cmd.Flags().StringVar(&f.SortBy, "sort-by", "", "Sort field, e.g. username or created_at")
	cmd.Flags().StringVar(&f.SortOrder, "sort-order", "", "asc or desc")
	return cmd
}

func usersTable(users []client.User) string {
	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{u.ID, u.Username, u.Email, roleNames(u.Roles, u.Role), yesNo(u.IsActive), u.LastLogin}
	}
	return renderTable([]string{"ID", "Username", "Email", "Roles", "Active", "Last login"}, rows)
}

func newAdminUsersGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			u, err := svc.User(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOut(cmd, app, u, func(w io.Writer) { printUser(w, u) })
		},
	}
}

func printUser(w io.Writer, u *client.User) {
	printKV(w,
		"ID", u.ID,
		"Username", u.Username,
		"Email", u.Email,
		"Roles", roleNames(u.Roles, u.Role),
		"Active", yesNo(u.IsActive),
		"Created", u.CreatedAt,
		"Last login", u.LastLogin,
	)
}

func newAdminUsersCreateCmd(app *App) *cobra.Command {
	var req client.CreateUserRequest
	var inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inactive {
				f := false
				req.IsActive = &f
			}
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			u, err := svc.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, u, func(w io.Writer) { printUser(w, u) })
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password, at least 6 characters")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&req.Roles, "role", nil, "Role to grant (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the account deactivated")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAdminUsersUpdateCmd(app *App) *cobra.Command {
	var email, password string
	var active bool

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change email, password or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req client.UpdateUserRequest
			if cmd.Flags().Changed("email") {
				req.Email = &email
			}
			if cmd.Flags().Changed("password") {
				req.Password = &password
			}
			if cmd.Flags().Changed("active") {
				req.IsActive = &active
			}
			if req == (client.UpdateUserRequest{}) {
				return fmt.Errorf("nothing to update; pass --email, --password or --active")
			}
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			u, err := svc.UpdateUser(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, u, func(w io.Writer) { printUser(w, u) })
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().BoolVar(&active, "active", true, "Activate (true) or deactivate (false)")
	return cmd
}

func newAdminUsersDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account and its board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s\n", args[0])
			})
		},
	}
}

func newAdminUsersBulkCmd(app *App) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "bulk <operation> <user-id>...",
		Short: "Run one operation over many accounts",
		Long: `Operations: delete, activate, deactivate, assign_role and remove_role.
The role operations need --role.`,
		Example: "  aac admin users bulk deactivate 3f2a 9c1d\n  aac admin users bulk assign_role 3f2a --role editor",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.Bulk(cmd.Context(), client.BulkOperation(args[0]), args[1:], role)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, res, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d of %d succeeded\n", args[0], res.SuccessCount, res.ProcessedCount)
				for _, e := range res.Errors {
					fmt.Fprintln(w, style.ErrorText.Render("  "+e))
				}
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role for assign_role and remove_role")
	return cmd
}

// -- roles --

func newAdminRolesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles",
	}

	list := &cobra.Command{
		Use:   "list [user-id]",
		Short: "List every role, or the roles of one user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			var roles []client.Role
			if len(args) == 1 {
				roles, err = svc.UserRoles(cmd.Context(), args[0])
			} else {
				roles, err = svc.Roles(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeOut(cmd, app, roles, func(w io.Writer) {
				rows := make([][]string, len(roles))
				for i, r := range roles {
					rows[i] = []string{r.Name, r.DisplayName, r.Description}
				}
				fmt.Fprintln(w, renderTable([]string{"Name", "Display name", "Description"}, rows))
			})
		},
	}

	var displayName, description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			r, err := svc.CreateRole(cmd.Context(), args[0], displayName, description)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, r, func(w io.Writer) {
				fmt.Fprintf(w, "Created role %s\n", r.Name)
			})
		},
	}
	create.Flags().StringVar(&displayName, "display-name", "", "Name shown in listings (defaults to the name)")
	create.Flags().StringVar(&description, "description", "", "What the role allows")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteRole(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted role %s\n", args[0])
			})
		},
	}

	assign := &cobra.Command{
		Use:   "assign <user-id> <role>",
		Short: "Grant a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.AssignRole(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]string{"user_id": args[0], "assigned": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "Granted %s to %s\n", args[1], args[0])
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <user-id> <role>",
		Short: "Revoke a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.RemoveRole(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]string{"user_id": args[0], "removed": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "Revoked %s from %s\n", args[1], args[0])
			})
		},
	}

	cmd.AddCommand(list, create, del, assign, remove)
	return cmd
}

// -- system --

func newAdminAnalyticsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show user and board statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.service(cmd)
			if err != nil {
				return err
			}
			d, err := svc.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return writeOut(cmd, app, d, func(w io.Writer) {
				fmt.Fprint(w, markdown.Render(d.Markdown()))
			})
		},
	}
}

func newAdminHealthCmd(app *App) *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Ping the backend",
		Long:  "Ping the backend once, or keep polling with --watch until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The ping is public, so no session is needed.
			svc := admin.New(app.client(app.log), app.log)
			if !watch {
				st := svc.CheckHealth(cmd.Context())
				if err := writeOut(cmd, app, healthReport(st), func(w io.Writer) {
					fmt.Fprintln(w, healthLine(st))
				}); err != nil {
					return err
				}
				if !st.Up() {
					return fmt.Errorf("backend %s is down", app.cfg.BackendURL)
				}
				return nil
			}
			if interval <= 0 {
				interval = app.cfg.HealthInterval
			}
			svc.PollHealth(cmd.Context(), interval, func(st admin.HealthStatus) {
				_ = writeOut(cmd, app, healthReport(st), func(w io.Writer) {
					fmt.Fprintln(w, healthLine(st))
				})
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval with --watch (default from config)")
	return cmd
}

type healthJSON struct {
	Up            bool   `json:"up"`
	Status        string `json:"status,omitempty"`
	Version       string `json:"version,omitempty"`
	Database      string `json:"database,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	LatencyMS     int64  `json:"latency_ms"`
	CheckedAt     string `json:"checked_at"`
	Error         string `json:"error,omitempty"`
}

func healthReport(st admin.HealthStatus) healthJSON {
	h := healthJSON{
		Up:        st.Up(),
		LatencyMS: st.Latency.Milliseconds(),
		CheckedAt: st.CheckedAt.Format(time.RFC3339),
	}
	if st.Response != nil {
		h.Status = st.Response.Status
		h.Version = st.Response.Version
		h.Database = st.Response.Database
		h.UptimeSeconds = st.Response.UptimeSeconds
	}
	if st.Err != nil {
		h.Error = st.Err.Error()
	}
	return h
}

// healthLine renders one ping:
//
//	15:04:05 ● up   mock-1.0 · memory · uptime 2h13m · 3ms
//	15:04:35 ● down connection refused
func healthLine(st admin.HealthStatus) string {
	at := st.CheckedAt.Format("15:04:05")
	if !st.Up() {
		reason := "unhealthy"
		switch {
		case st.Err != nil:
			reason = st.Err.Error()
		case st.Response != nil && st.Response.Status != "":
			reason = st.Response.Status
		}
		return at + " " + style.HealthDown.Render("● down") + " " + reason
	}
	r := st.Response
	line := at + " " + style.HealthUp.Render("● up  ")
	if r.Version != "" {
		line += " " + r.Version + " ·"
	}
	if r.Database != "" {
		line += " " + r.Database + " ·"
	}
	uptime := (time.Duration(r.UptimeSeconds) * time.Second).String()
	return line + " uptime " + uptime + " · " + st.Latency.Round(time.Millisecond).String()
}
