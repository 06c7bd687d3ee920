package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListUsers(ctx context.Context, f UserFilters) (*UsersPage, error) {
	path := "/api/admin/users"
	if q := f.values().Encode(); q != "" {
		path += "?" + q
	}
	var page UsersPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &page, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/api/admin/users", req, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/api/admin/users/"+url.PathEscape(id), req, &user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (c *Client) BulkUsers(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	var result BulkResult
	if err := c.do(ctx, http.MethodPost, "/api/admin/users/bulk", req, &result); err != nil {
		return nil, fmt.Errorf("bulk %s: %w", req.Operation, err)
	}
	return &result, nil
}

func (c *Client) UserAnalytics(ctx context.Context) (*UserAnalytics, error) {
	var a UserAnalytics
	if err := c.do(ctx, http.MethodGet, "/api/admin/analytics/users", nil, &a); err != nil {
		return nil, fmt.Errorf("user analytics: %w", err)
	}
	return &a, nil
}

func (c *Client) GridAnalytics(ctx context.Context) (*GridAnalytics, error) {
	var a GridAnalytics
	if err := c.do(ctx, http.MethodGet, "/api/admin/analytics/grids", nil, &a); err != nil {
		return nil, fmt.Errorf("grid analytics: %w", err)
	}
	return &a, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/system/ping", nil, &health); err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return &health, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.do(ctx, http.MethodGet, "/api/auth/rbac/roles", nil, &roles); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (c *Client) CreateRole(ctx context.Context, name, displayName, description string) (*Role, error) {
	var role Role
	req := createRoleRequest{Name: name, DisplayName: displayName, Description: description}
	if err := c.do(ctx, http.MethodPost, "/api/auth/rbac/roles", req, &role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return &role, nil
}

func (c *Client) DeleteRole(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/auth/rbac/roles/"+url.PathEscape(name), nil, nil); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

func (c *Client) UserRoles(ctx context.Context, userID string) ([]Role, error) {
	var roles []Role
	if err := c.do(ctx, http.MethodGet, "/api/auth/rbac/users/"+url.PathEscape(userID)+"/roles", nil, &roles); err != nil {
		return nil, fmt.Errorf("user roles: %w", err)
	}
	return roles, nil
}

func (c *Client) AssignRole(ctx context.Context, userID, role string) error {
	if err := c.do(ctx, http.MethodPost, userRolePath(userID, role), nil, nil); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (c *Client) RemoveRole(ctx context.Context, userID, role string) error {
	if err := c.do(ctx, http.MethodDelete, userRolePath(userID, role), nil, nil); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}

func userRolePath(userID, role string) string {
	return "/api/auth/rbac/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(role)
}
