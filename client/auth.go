package client

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges credentials for a token pair and installs it.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", LoginRequest{Username: username, Password: password}, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.SetTokens(result.Token, result.RefreshToken)
	return &result, nil
}

// Register creates an account and installs the returned token pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if result.Token != "" {
		c.SetTokens(result.Token, result.RefreshToken)
	}
	return &result, nil
}

// Verify returns the user the current token belongs to.
func (c *Client) Verify(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &user); err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return &user, nil
}

// Revoke invalidates a refresh token server side.
func (c *Client) Revoke(ctx context.Context, refresh string) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/revoke", RefreshRequest{RefreshToken: refresh}, nil); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Logout ends the session server side and forgets the tokens. The tokens are
// cleared even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.Tokens()
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", RefreshRequest{RefreshToken: refresh}, nil)
	c.ClearTokens()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CheckEditorPassword asks the backend whether password unlocks editor mode.
// A rejected password is reported as false, not as an error.
func (c *Client) CheckEditorPassword(ctx context.Context, password string) (bool, error) {
	var result editorPasswordResponse
	err := c.doAccept(ctx, http.MethodPost, "/api/check-editor-password",
		editorPasswordRequest{Password: password}, &result, http.StatusUnauthorized)
	if err != nil {
		return false, fmt.Errorf("check editor password: %w", err)
	}
	return result.Valid, nil
}
