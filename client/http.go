// Package client is the HTTP wrapper around the AAC backend. It attaches the
// bearer token, and on a 401 refreshes the token pair once no matter how many
// requests are waiting on it.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/miosa/aac-board/apierr"
)

// DefaultTimeout bounds every request unless WithTimeout says otherwise.
const DefaultTimeout = 10 * time.Second

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	log *slog.Logger

	mu        sync.RWMutex
	access    string
	refresh   string
	onTokens  func(access, refresh string)
	onExpired func()

	flight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetTokens installs a token pair, typically restored from disk.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.access, c.refresh = access, refresh
	fn := c.onTokens
	c.mu.Unlock()
	if fn != nil {
		fn(access, refresh)
	}
}

// Tokens returns the current token pair.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access, c.refresh
}

// ClearTokens forgets both tokens.
func (c *Client) ClearTokens() {
	c.SetTokens("", "")
}

// OnTokens registers fn to be called whenever the token pair changes,
// including after a refresh.
func (c *Client) OnTokens(fn func(access, refresh string)) {
	c.mu.Lock()
	c.onTokens = fn
	c.mu.Unlock()
}

// OnSessionExpired registers fn to be called when a refresh is rejected and
// the session has been cleared.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// do sends a JSON request and decodes a JSON response into out (when not
// nil). A 401 on an authenticated path triggers one shared refresh and a
// single replay of the request.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doAccept(ctx, method, path, body, out)
}

// doAccept is do with extra status codes whose body is decoded as a normal
// answer instead of an error.
func (c *Client) doAccept(ctx context.Context, method, path string, body, out any, accept ...int) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		payload = data
	}

	resp, sent, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && refreshable(path) && !slices.Contains(accept, http.StatusUnauthorized) {
		drain(resp)
		c.log.Debug("request unauthorized, refreshing", "method", method, "path", path)
		if err := c.refreshAfter(ctx, sent); err != nil {
			return err
		}
		resp, _, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && !slices.Contains(accept, resp.StatusCode) {
		return c.parseError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Network(fmt.Errorf("read response: %w", err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// send issues one request and reports the access token it carried.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, "", err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	token := c.setHeaders(req)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, token, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, token, apierr.Network(fmt.Errorf("%s %s: %w", method, path, err))
	}
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, token, nil
}

func (c *Client) setHeaders(req *http.Request) string {
	token, _ := c.Tokens()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return token
}

// refreshAfter obtains a new token pair after a request carrying stale got a
// 401. Concurrent callers share one refresh call. A caller whose stale token
// has already been replaced just replays.
func (c *Client) refreshAfter(ctx context.Context, stale string) error {
	_, err, _ := c.flight.Do("refresh", func() (any, error) {
		access, refresh := c.Tokens()
		if access != "" && access != stale {
			return nil, nil
		}
		if refresh == "" {
			return nil, c.expire(errors.New("no refresh token"))
		}
		return nil, c.refreshTokens(context.WithoutCancel(ctx), refresh)
	})
	return err
}

func (c *Client) refreshTokens(ctx context.Context, refresh string) error {
	payload, err := json.Marshal(RefreshRequest{RefreshToken: refresh})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	resp, _, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", payload)
	if err != nil {
		// The session survives an unreachable backend.
		return fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.expire(c.parseError(resp))
	}
	var result RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return c.expire(fmt.Errorf("decode refresh: %w", err))
	}
	if result.Token == "" {
		return c.expire(errors.New("refresh returned no token"))
	}
	if result.RefreshToken != "" {
		refresh = result.RefreshToken
	}
	c.SetTokens(result.Token, refresh)
	c.log.Info("access token refreshed")
	return nil
}

func (c *Client) expire(cause error) error {
	c.log.Warn("session expired", "err", cause)
	c.mu.Lock()
	fn := c.onExpired
	c.mu.Unlock()
	c.ClearTokens()
	if fn != nil {
		fn()
	}
	return fmt.Errorf("%w: %w", apierr.ErrSessionExpired, cause)
}

func refreshable(path string) bool {
	switch path {
	case "/api/auth/login", "/api/auth/register", "/api/auth/refresh":
		return false
	}
	return true
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &apierr.Error{Status: resp.StatusCode}
	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil {
		e.Message = apiErr.Error
		if e.Message == "" {
			e.Message = apiErr.Message
		}
		e.Code = apiErr.Code
		if apiErr.Details != nil {
			e.Details = fmt.Sprint(apiErr.Details)
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
