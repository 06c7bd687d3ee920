// Package admin is the user, role and system management surface. It has no
// shared state with the board.
package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/miosa/aac-board/apierr"
	"github.com/miosa/aac-board/client"
)

// Backend is the admin slice of the HTTP client.
type Backend interface {
	ListUsers(ctx context.Context, f client.UserFilters) (*client.UsersPage, error)
	GetUser(ctx context.Context, id string) (*client.User, error)
	CreateUser(ctx context.Context, req client.CreateUserRequest) (*client.User, error)
	UpdateUser(ctx context.Context, id string, req client.UpdateUserRequest) (*client.User, error)
	DeleteUser(ctx context.Context, id string) error
	BulkUsers(ctx context.Context, req client.BulkRequest) (*client.BulkResult, error)
	UserAnalytics(ctx context.Context) (*client.UserAnalytics, error)
	GridAnalytics(ctx context.Context) (*client.GridAnalytics, error)
	Health(ctx context.Context) (*client.HealthResponse, error)
	ListRoles(ctx context.Context) ([]client.Role, error)
	CreateRole(ctx context.Context, name, displayName, description string) (*client.Role, error)
	DeleteRole(ctx context.Context, name string) error
	UserRoles(ctx context.Context, userID string) ([]client.Role, error)
	AssignRole(ctx context.Context, userID, role string) error
	RemoveRole(ctx context.Context, userID, role string) error
}

type Service struct {
	api Backend
	log *slog.Logger
}

func New(api Backend, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{api: api, log: log}
}

// DefaultPageSize is used when a listing does not set a limit.
const DefaultPageSize = 20

func (s *Service) Users(ctx context.Context, f client.UserFilters) (*client.UsersPage, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		return nil, apierr.Validation("sort_order", "must be asc or desc")
	}
	return s.api.ListUsers(ctx, f)
}

func (s *Service) User(ctx context.Context, id string) (*client.User, error) {
	if id == "" {
		return nil, apierr.Validation("id", "is required")
	}
	return s.api.GetUser(ctx, id)
}

func (s *Service) CreateUser(ctx context.Context, req client.CreateUserRequest) (*client.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return nil, apierr.Validation("username", "is required")
	}
	if len(req.Password) < 6 {
		return nil, apierr.Validation("password", "must be at least 6 characters")
	}
	u, err := s.api.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, req client.UpdateUserRequest) (*client.User, error) {
	if id == "" {
		return nil, apierr.Validation("id", "is required")
	}
	if req.Email == nil && req.Password == nil && req.IsActive == nil {
		return nil, apierr.Validation("update", "has no fields")
	}
	return s.api.UpdateUser(ctx, id, req)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return apierr.Validation("id", "is required")
	}
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", "id", id)
	return nil
}

// Bulk runs op over ids. Duplicate and blank ids are dropped first.
func (s *Service) Bulk(ctx context.Context, op client.BulkOperation, ids []string, role string) (*client.BulkResult, error) {
	switch op {
	case client.BulkDelete, client.BulkActivate, client.BulkDeactivate, client.BulkAssignRole, client.BulkRemoveRole:
	default:
		return nil, apierr.Validation("operation", fmt.Sprintf("%q is not supported", op))
	}
	if op.NeedsRole() && role == "" {
		return nil, apierr.Validation("role_name", "is required for "+string(op))
	}
	seen := make(map[string]bool, len(ids))
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	if len(clean) == 0 {
		return nil, apierr.Validation("user_ids", "must not be empty")
	}
	res, err := s.api.BulkUsers(ctx, client.BulkRequest{Operation: op, UserIDs: clean, RoleName: role})
	if err != nil {
		return nil, err
	}
	s.log.Info("bulk operation", "op", op, "processed", res.ProcessedCount, "succeeded", res.SuccessCount)
	return res, nil
}

func (s *Service) Roles(ctx context.Context) ([]client.Role, error) {
	return s.api.ListRoles(ctx)
}

// CreateRole adds a role. The display name defaults to the name.
func (s *Service) CreateRole(ctx context.Context, name, displayName, description string) (*client.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("name", "is required")
	}
	if displayName == "" {
		displayName = name
	}
	return s.api.CreateRole(ctx, name, displayName, description)
}

func (s *Service) DeleteRole(ctx context.Context, name string) error {
	if name == "" {
		return apierr.Validation("name", "is required")
	}
	return s.api.DeleteRole(ctx, name)
}

func (s *Service) UserRoles(ctx context.Context, userID string) ([]client.Role, error) {
	return s.api.UserRoles(ctx, userID)
}

func (s *Service) AssignRole(ctx context.Context, userID, role string) error {
	if userID == "" || role == "" {
		return apierr.Validation("role", "user id and role are required")
	}
	return s.api.AssignRole(ctx, userID, role)
}

func (s *Service) RemoveRole(ctx context.Context, userID, role string) error {
	if userID == "" || role == "" {
		return apierr.Validation("role", "user id and role are required")
	}
	return s.api.RemoveRole(ctx, userID, role)
}

// Dashboard is everything the overview screen shows.
type Dashboard struct {
	Users  *client.UserAnalytics
	Grids  *client.GridAnalytics
	Health *client.HealthResponse
	Roles  []client.Role
}

// Dashboard fetches the overview in parallel. Any failure fails the whole
// call.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Users, err = s.api.UserAnalytics(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Grids, err = s.api.GridAnalytics(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Health, err = s.api.Health(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Roles, err = s.api.ListRoles(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return &d, nil
}
