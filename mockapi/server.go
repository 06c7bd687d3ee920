// Package mockapi is an in-memory backend for the board. It serves the same
// HTTP surface as the production server so the client, the stores and the CLI
// can be exercised end to end without one.
package mockapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
)

// Version is reported by the ping endpoint.
const Version = "mock-1.0"

// Built-in role names.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)

// DefaultAccessTTL is how long an access token stays valid.
const DefaultAccessTTL = 15 * time.Minute

const timeLayout = time.RFC3339Nano

// Stats counts requests by kind. Tests use it to assert how often the client
// talked to the server.
type Stats struct {
	Requests  int
	Logins    int
	Refreshes int
	Rejected  int
}

type account struct {
	user       client.User
	hash       []byte
	editorHash []byte
}

// snapshot copies the user so it can be encoded without holding s.mu.
func (a *account) snapshot() client.User {
	u := a.user
	u.Roles = slices.Clone(a.user.Roles)
	return u
}

type accessToken struct {
	userID  string
	expires time.Time
}

type seedUser struct {
	username, password, editorPassword string
	roles                              []string
}

// Server is the in-memory backend. The zero value is not usable; call New.
type Server struct {
	log       *slog.Logger
	accessTTL time.Duration
	ai        TextAI
	now       func() time.Time
	started   time.Time
	seeds     []seedUser
	router    *mux.Router

	mu      sync.Mutex
	users   map[string]*account
	byName  map[string]string
	access  map[string]accessToken
	refresh map[string]string
	grids   map[string]grid.Categories
	roles   map[string]client.Role
	stats   Stats
}

// Option configures a Server.
type Option func(*Server)

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithTextAI replaces the dictionary corrector and conjugator.
func WithTextAI(ai TextAI) Option {
	return func(s *Server) { s.ai = ai }
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithClock overrides time.Now, mostly for token expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithUser seeds an account with the default board. Without roles the
// account gets the user role only.
func WithUser(username, password, editorPassword string, roles ...string) Option {
	return func(s *Server) {
		s.seeds = append(s.seeds, seedUser{username, password, editorPassword, roles})
	}
}

// New builds a server with the built-in roles and any seeded users.
func New(opts ...Option) *Server {
	s := &Server{
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		accessTTL: DefaultAccessTTL,
		ai:        Dictionary{},
		now:       time.Now,
		users:     map[string]*account{},
		byName:    map[string]string{},
		access:    map[string]accessToken{},
		refresh:   map[string]string{},
		grids:     map[string]grid.Categories{},
		roles:     map[string]client.Role{},
	}
	for _, o := range opts {
		o(s)
	}
	s.started = s.now()
	for _, r := range []client.Role{
		{Name: RoleAdmin, DisplayName: "Administrator", Description: "Full system access with all administrative privileges"},
		{Name: RoleEditor, DisplayName: "Editor", Description: "Can manage grid items and content"},
		{Name: RoleUser, DisplayName: "User", Description: "Basic user with limited permissions"},
	} {
		r.ID = uuid.NewString()
		s.roles[r.Name] = r
	}
	for _, u := range s.seeds {
		roles := u.roles
		if len(roles) == 0 {
			roles = []string{RoleUser}
		}
		if _, err := s.createAccount(u.username, u.password, u.editorPassword, "", roles, true); err != nil {
			s.log.Error("seed user", "username", u.username, "err", err)
			continue
		}
		s.grids[s.byName[u.username]] = DefaultBoard()
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Stats returns a copy of the request counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ExpireAccessTokens invalidates every issued access token while keeping the
// refresh tokens, which forces clients through a refresh.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, at := range s.access {
		at.expires = time.Time{}
		s.access[tok] = at
	}
}

// Board returns a copy of a user's category map.
func (s *Server) Board(username string) (grid.Categories, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, false
	}
	cats, ok := s.grids[id]
	return cats.Clone(), ok
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	authed := func(h http.HandlerFunc) http.Handler { return s.authenticate(h) }
	editor := func(h http.HandlerFunc) http.Handler {
		return s.authenticate(s.requireRole(RoleAdmin, RoleEditor)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return s.authenticate(s.requireRole(RoleAdmin)(h))
	}

	r.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods("POST")
	r.HandleFunc("/api/auth/revoke", s.handleRevoke).Methods("POST")
	r.HandleFunc("/api/admin/system/ping", s.handlePing).Methods("GET")

	r.Handle("/api/auth/logout", authed(s.handleLogout)).Methods("POST")
	r.Handle("/api/auth/verify", authed(s.handleVerify)).Methods("GET")
	r.Handle("/api/check-editor-password", authed(s.handleEditorPassword)).Methods("POST")
	r.Handle("/api/grid", authed(s.handleGetGrid)).Methods("GET")
	r.Handle("/api/correct", authed(s.handleCorrect)).Methods("POST")
	r.Handle("/api/conjugate", authed(s.handleConjugate)).Methods("POST")
	r.Handle("/api/ai/search-arasaac", authed(s.handleSearch)).Methods("GET")

	r.Handle("/api/grid", editor(s.handleSaveGrid)).Methods("POST")
	r.Handle("/api/grid/item", editor(s.handleAddItem)).Methods("POST")
	r.Handle("/api/grid/item/{id}", editor(s.handleUpdateItem)).Methods("PUT")
	r.Handle("/api/grid/item/{id}", editor(s.handleDeleteItem)).Methods("DELETE")

	r.Handle("/api/admin/users", admin(s.handleListUsers)).Methods("GET")
	r.Handle("/api/admin/users", admin(s.handleCreateUser)).Methods("POST")
	r.Handle("/api/admin/users/bulk", admin(s.handleBulk)).Methods("POST")
	r.Handle("/api/admin/users/{id}", admin(s.handleGetUser)).Methods("GET")
	r.Handle("/api/admin/users/{id}", admin(s.handleUpdateUser)).Methods("PUT")
	r.Handle("/api/admin/users/{id}", admin(s.handleDeleteUser)).Methods("DELETE")
	r.Handle("/api/admin/analytics/users", admin(s.handleUserAnalytics)).Methods("GET")
	r.Handle("/api/admin/analytics/grids", admin(s.handleGridAnalytics)).Methods("GET")
	r.Handle("/api/auth/rbac/roles", admin(s.handleListRoles)).Methods("GET")
	r.Handle("/api/auth/rbac/roles", admin(s.handleCreateRole)).Methods("POST")
	r.Handle("/api/auth/rbac/roles/{name}", admin(s.handleDeleteRole)).Methods("DELETE")
	r.Handle("/api/auth/rbac/users/{id}/roles", admin(s.handleUserRoles)).Methods("GET")
	r.Handle("/api/auth/rbac/users/{id}/roles/{role}", admin(s.handleAssignRole)).Methods("POST")
	r.Handle("/api/auth/rbac/users/{id}/roles/{role}", admin(s.handleRemoveRole)).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	return r
}

// -- middleware --

type ctxKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mu.Lock()
		s.stats.Requests++
		s.mu.Unlock()
		next.ServeHTTP(rec, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.reject(w, "Authorization header required")
			return
		}
		s.mu.Lock()
		at, found := s.access[token]
		valid := found && s.now().Before(at.expires)
		acct := s.users[at.userID]
		active := acct != nil && acct.user.IsActive
		s.mu.Unlock()
		if !valid || acct == nil {
			s.reject(w, "Invalid or expired token")
			return
		}
		if !active {
			writeError(w, http.StatusForbidden, "Account is disabled")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, at.userID)))
	})
}

func (s *Server) requireRole(roles ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			acct := s.users[userID(r)]
			allowed := false
			if acct != nil {
				for _, role := range roles {
					if acct.user.HasRole(role) {
						allowed = true
						break
					}
				}
			}
			s.mu.Unlock()
			if !allowed {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) reject(w http.ResponseWriter, msg string) {
	s.mu.Lock()
	s.stats.Rejected++
	s.mu.Unlock()
	writeError(w, http.StatusUnauthorized, msg)
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// -- accounts and tokens (callers hold no lock) --

var errUserExists = &conflictError{"Username already exists"}

type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }

func (s *Server) createAccount(username, password, editorPassword, email string, roles []string, active bool) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	var editorHash []byte
	if editorPassword != "" {
		if editorHash, err = bcrypt.GenerateFromPassword([]byte(editorPassword), bcrypt.MinCost); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[username]; taken {
		return nil, errUserExists
	}
	acct := &account{
		user: client.User{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			Status:    "active",
			IsActive:  active,
			CreatedAt: s.now().UTC().Format(timeLayout),
		},
		hash:       hash,
		editorHash: editorHash,
	}
	if !active {
		acct.user.Status = "inactive"
	}
	for _, name := range roles {
		if role, ok := s.roles[name]; ok {
			acct.user.Roles = append(acct.user.Roles, role)
		}
	}
	s.users[acct.user.ID] = acct
	s.byName[username] = acct.user.ID
	return acct, nil
}

// issue mints a token pair. Callers hold s.mu.
func (s *Server) issue(userID string) (access, refresh string) {
	access = "at-" + uuid.NewString()
	refresh = "rt-" + uuid.NewString()
	s.access[access] = accessToken{userID: userID, expires: s.now().Add(s.accessTTL)}
	s.refresh[refresh] = userID
	return access, refresh
}

// -- wire helpers --

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, client.ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, client.MessageResponse{Message: msg})
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
