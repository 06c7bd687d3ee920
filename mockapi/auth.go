package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/miosa/aac-board/client"
)

// MinPasswordLength applies to account passwords.
const MinPasswordLength = 6

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req client.LoginRequest
	if err := decode(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	s.mu.Lock()
	acct := s.users[s.byName[req.Username]]
	var hash []byte
	active := false
	if acct != nil {
		hash, active = acct.hash, acct.user.IsActive
	}
	s.mu.Unlock()
	if acct == nil || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !active {
		writeError(w, http.StatusForbidden, "Account is disabled")
		return
	}

	s.mu.Lock()
	s.stats.Logins++
	access, refresh := s.issue(acct.user.ID)
	acct.user.LastLogin = s.now().UTC().Format(timeLayout)
	user := acct.snapshot()
	s.mu.Unlock()

	s.log.Info("login", "username", req.Username)
	writeJSON(w, http.StatusOK, client.AuthResponse{Token: access, RefreshToken: refresh, User: &user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req client.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	board, ok := BoardFor(req.GridType)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown grid type")
		return
	}

	// Self-registered accounts curate their own board.
	acct, err := s.createAccount(req.Username, req.Password, req.EditorPassword, req.Email, []string{RoleUser, RoleEditor}, true)
	var conflict *conflictError
	switch {
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.msg)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	s.mu.Lock()
	s.grids[acct.user.ID] = board
	access, refresh := s.issue(acct.user.ID)
	user := acct.snapshot()
	s.mu.Unlock()

	s.log.Info("register", "username", req.Username, "grid_type", req.GridType)
	writeJSON(w, http.StatusCreated, client.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		User:         &user,
		Message:      "User registered successfully",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req client.RefreshRequest
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Refreshes++
	uid, ok := s.refresh[req.RefreshToken]
	if !ok || s.users[uid] == nil || !s.users[uid].user.IsActive {
		s.stats.Rejected++
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	delete(s.refresh, req.RefreshToken)
	access, refresh := s.issue(uid)
	writeJSON(w, http.StatusOK, client.RefreshResponse{Token: access, RefreshToken: refresh})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req client.RefreshRequest
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}
	s.mu.Lock()
	delete(s.refresh, req.RefreshToken)
	s.mu.Unlock()
	writeMessage(w, "Token revoked")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req client.RefreshRequest
	_ = decode(r, &req)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.access, token)
	if req.RefreshToken != "" {
		delete(s.refresh, req.RefreshToken)
	}
	s.mu.Unlock()
	writeMessage(w, "Logged out successfully")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.users[userID(r)]
	var user client.User
	if acct != nil {
		user = acct.snapshot()
	}
	s.mu.Unlock()
	if acct == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type editorPasswordBody struct {
	Password string `json:"password"`
}

type validBody struct {
	Valid bool `json:"valid"`
}

// An account registered without an editor password cannot unlock editor mode.
func (s *Server) handleEditorPassword(w http.ResponseWriter, r *http.Request) {
	var req editorPasswordBody
	if err := decode(r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}
	var hash []byte
	s.mu.Lock()
	if acct := s.users[userID(r)]; acct != nil {
		hash = acct.editorHash
	}
	s.mu.Unlock()
	if hash == nil || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, validBody{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, validBody{Valid: true})
}
