// Package session owns the signed-in user and the lifecycle of the token
// pair: login, register, verification on startup, logout and expiry.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/miosa/aac-board/apierr"
	"github.com/miosa/aac-board/client"
)

// Backend is the part of the HTTP client the session drives.
type Backend interface {
	Login(ctx context.Context, username, password string) (*client.AuthResponse, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.AuthResponse, error)
	Verify(ctx context.Context) (*client.User, error)
	Logout(ctx context.Context) error
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
	OnTokens(fn func(access, refresh string))
	OnSessionExpired(fn func())
}

// State is a snapshot of the session.
type State struct {
	User    *client.User
	Loading bool
	Err     string
}

// Authenticated reports whether a verified user is signed in.
func (s State) Authenticated() bool { return s.User != nil }

type Session struct {
	api    Backend
	tokens TokenStore
	log    *slog.Logger

	mu       sync.Mutex
	st       State
	onChange []func(State)
	onLogout []func()
}

// New ties the session to the backend: token changes are persisted to tokens
// and an expired refresh ends the session.
func New(api Backend, tokens TokenStore, log *slog.Logger) *Session {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{api: api, tokens: tokens, log: log}
	api.OnTokens(s.persist)
	api.OnSessionExpired(s.expired)
	return s
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// OnChange registers fn to run after every state change.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// OnLogout registers fn to run when the session ends, by logout or expiry.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

func (s *Session) set(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.st)
	st := s.st
	fns := append([]func(State){}, s.onChange...)
	s.mu.Unlock()
	for _, f := range fns {
		f(st)
	}
}

func (s *Session) persist(access, refresh string) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.Save(access, refresh); err != nil {
		s.log.Warn("persist tokens", "err", err)
	}
}

// Restore loads stored tokens into the client. It reports whether an access
// token was found.
func (s *Session) Restore() bool {
	if s.tokens == nil {
		return false
	}
	access, refresh, err := s.tokens.Load()
	if err != nil {
		s.log.Warn("load tokens", "err", err)
		return false
	}
	if access == "" && refresh == "" {
		return false
	}
	s.api.SetTokens(access, refresh)
	return access != ""
}

// Login signs in with username and password.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	if strings.TrimSpace(username) == "" || password == "" {
		s.set(func(st *State) { st.Err = "Username and password are required." })
		return false
	}
	s.set(func(st *State) { st.Loading, st.Err = true, "" })
	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.log.Info("login failed", "user", username, "err", err)
		s.set(func(st *State) { st.Loading, st.Err = false, describe("Login failed.", err) })
		return false
	}
	return s.signedIn(ctx, res)
}

// Register creates an account and signs in with it.
func (s *Session) Register(ctx context.Context, req client.RegisterRequest) bool {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		s.set(func(st *State) { st.Err = "Username and password are required." })
		return false
	}
	s.set(func(st *State) { st.Loading, st.Err = true, "" })
	res, err := s.api.Register(ctx, req)
	if err != nil {
		s.set(func(st *State) { st.Loading, st.Err = false, describe("Registration failed.", err) })
		return false
	}
	return s.signedIn(ctx, res)
}

// signedIn completes login or register. Backends that omit the user in the
// auth response are asked for it.
func (s *Session) signedIn(ctx context.Context, res *client.AuthResponse) bool {
	user := res.User
	if user == nil {
		u, err := s.api.Verify(ctx)
		if err != nil {
			s.set(func(st *State) { st.Loading, st.Err = false, describe("Login failed.", err) })
			return false
		}
		user = u
	}
	s.log.Info("signed in", "user", user.Username)
	s.set(func(st *State) {
		st.User, st.Loading, st.Err = user, false, ""
	})
	return true
}

// CheckAuth verifies stored tokens on startup. A rejected token clears the
// session; an unreachable backend keeps the tokens for a later attempt.
func (s *Session) CheckAuth(ctx context.Context) bool {
	if access, refresh := s.api.Tokens(); access == "" && refresh == "" {
		return false
	}
	s.set(func(st *State) { st.Loading = true })
	user, err := s.api.Verify(ctx)
	if err != nil {
		if errors.Is(err, apierr.ErrUnauthorized) || errors.Is(err, apierr.ErrSessionExpired) {
			s.log.Info("stored session rejected", "err", err)
			s.clear("Session expired. Please login again.")
			return false
		}
		s.set(func(st *State) { st.Loading, st.Err = false, describe("Could not verify the session.", err) })
		return false
	}
	s.set(func(st *State) { st.User, st.Loading, st.Err = user, false, "" })
	return true
}

// Logout revokes the session server side when possible and always clears it
// locally.
func (s *Session) Logout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn("server logout failed", "err", err)
	}
	s.clear("")
}

func (s *Session) expired() {
	s.clear("Session expired. Please login again.")
}

func (s *Session) clear(errMsg string) {
	if access, refresh := s.api.Tokens(); access != "" || refresh != "" {
		s.api.SetTokens("", "")
	} else {
		s.persist("", "")
	}
	s.set(func(st *State) { *st = State{Err: errMsg} })
	s.mu.Lock()
	fns := append([]func(){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Adopt installs a pair written by another process, typically from
// FileTokens.Watch. An unchanged pair is ignored.
func (s *Session) Adopt(ctx context.Context, access, refresh string) {
	curA, curR := s.api.Tokens()
	if access == curA && refresh == curR {
		return
	}
	s.log.Info("tokens changed on disk")
	s.api.SetTokens(access, refresh)
	if access == "" {
		s.set(func(st *State) { *st = State{} })
		return
	}
	s.CheckAuth(ctx)
}

func describe(fallback string, err error) string {
	switch {
	case errors.Is(err, apierr.ErrNetwork):
		return "Cannot reach the server. Please check your connection."
	case errors.Is(err, apierr.ErrConflict):
		return "Username already exists."
	}
	if msg := apierr.Message(err); msg != "" {
		return msg
	}
	return fallback
}
