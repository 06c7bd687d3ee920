package mockapi

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/miosa/aac-board/client"
)

var builtinRoles = []string{RoleAdmin, RoleEditor, RoleUser}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, client.HealthResponse{
		Status:        "ok",
		Version:       Version,
		Database:      "memory",
		UptimeSeconds: int64(now.Sub(s.started) / time.Second),
		Timestamp:     now.UTC().Format(time.RFC3339),
	})
}

// -- users --

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var active *bool
	if v := q.Get("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_active must be true or false")
			return
		}
		active = &b
	}
	role, search := q.Get("role"), strings.ToLower(q.Get("search"))

	s.mu.Lock()
	var users []client.User
	for _, acct := range s.users {
		u := acct.snapshot()
		switch {
		case active != nil && u.IsActive != *active:
		case role != "" && !u.HasRole(role):
		case search != "" && !strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search):
		default:
			users = append(users, u)
		}
	}
	s.mu.Unlock()

	sortUsers(users, q.Get("sort_by"), q.Get("sort_order"))
	total := len(users)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	writeJSON(w, http.StatusOK, client.UsersPage{
		Users:       users[start:end],
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		TotalCount:  total,
	})
}

// sortUsers orders by created_at descending unless told otherwise. Username
// breaks ties so pages are stable.
func sortUsers(users []client.User, by, order string) {
	key := func(u client.User) string {
		switch by {
		case "username":
			return u.Username
		case "last_login":
			return u.LastLogin
		default:
			return u.CreatedAt
		}
	}
	desc := order != "asc"
	if by == "username" && order == "" {
		desc = false
	}
	slices.SortStableFunc(users, func(a, b client.User) int {
		c := cmp.Compare(key(a), key(b))
		if desc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.Username, b.Username))
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.users[mux.Vars(r)["id"]]
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

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req client.CreateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, "Username and a password of at least 6 characters are required")
		return
	}
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{RoleUser}
	}
	s.mu.Lock()
	for _, name := range roles {
		if _, ok := s.roles[name]; !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown role %q", name))
			return
		}
	}
	s.mu.Unlock()

	active := req.IsActive == nil || *req.IsActive
	acct, err := s.createAccount(req.Username, req.Password, "", req.Email, roles, active)
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
	s.grids[acct.user.ID] = DefaultBoard()
	user := acct.snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req client.UpdateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	var hash []byte
	if req.Password != nil {
		if len(*req.Password) < MinPasswordLength {
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.MinCost); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.users[mux.Vars(r)["id"]]
	if acct == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Email != nil {
		acct.user.Email = *req.Email
	}
	if hash != nil {
		acct.hash = hash
	}
	if req.IsActive != nil {
		s.setActive(acct, *req.IsActive)
	}
	writeJSON(w, http.StatusOK, acct.snapshot())
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == userID(r) {
		writeError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deleteAccount(id) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeMessage(w, "User deleted successfully")
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req client.BulkRequest
	if err := decode(r, &req); err != nil || len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "Operation and user_ids are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var role client.Role
	switch req.Operation {
	case client.BulkDelete, client.BulkActivate, client.BulkDeactivate:
	case client.BulkAssignRole, client.BulkRemoveRole:
		var ok bool
		if role, ok = s.roles[req.RoleName]; !ok {
			writeError(w, http.StatusBadRequest, "Unknown role")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "Unknown operation")
		return
	}

	result := client.BulkResult{ProcessedCount: len(req.UserIDs)}
	for _, id := range req.UserIDs {
		acct := s.users[id]
		if acct == nil {
			result.Errors = append(result.Errors, "user "+id+" not found")
			continue
		}
		if id == userID(r) && (req.Operation == client.BulkDelete || req.Operation == client.BulkDeactivate) {
			result.Errors = append(result.Errors, "cannot "+string(req.Operation)+" your own account")
			continue
		}
		switch req.Operation {
		case client.BulkDelete:
			s.deleteAccount(id)
		case client.BulkActivate:
			s.setActive(acct, true)
		case client.BulkDeactivate:
			s.setActive(acct, false)
		case client.BulkAssignRole:
			addRole(acct, role)
		case client.BulkRemoveRole:
			removeRole(acct, role.Name)
		}
		result.SuccessCount++
	}
	writeJSON(w, http.StatusOK, result)
}

// The helpers below run with s.mu held.

func (s *Server) setActive(acct *account, active bool) {
	acct.user.IsActive = active
	acct.user.Status = "active"
	if !active {
		acct.user.Status = "inactive"
		s.dropTokens(acct.user.ID)
	}
}

func (s *Server) deleteAccount(id string) bool {
	acct, ok := s.users[id]
	if !ok {
		return false
	}
	delete(s.users, id)
	delete(s.byName, acct.user.Username)
	delete(s.grids, id)
	s.dropTokens(id)
	return true
}

func (s *Server) dropTokens(uid string) {
	for tok, at := range s.access {
		if at.userID == uid {
			delete(s.access, tok)
		}
	}
	for tok, owner := range s.refresh {
		if owner == uid {
			delete(s.refresh, tok)
		}
	}
}

func addRole(acct *account, role client.Role) bool {
	if slices.ContainsFunc(acct.user.Roles, func(r client.Role) bool { return r.Name == role.Name }) {
		return false
	}
	acct.user.Roles = append(acct.user.Roles, role)
	return true
}

func removeRole(acct *account, name string) bool {
	n := len(acct.user.Roles)
	acct.user.Roles = slices.DeleteFunc(acct.user.Roles, func(r client.Role) bool { return r.Name == name })
	return len(acct.user.Roles) != n
}

// -- analytics --

func (s *Server) handleUserAnalytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := client.UserAnalytics{TotalUsers: len(s.users), RolesDistribution: map[string]int{}}
	for _, acct := range s.users {
		if acct.user.IsActive {
			a.ActiveUsers++
		} else {
			a.InactiveUsers++
		}
		for _, role := range acct.user.Roles {
			a.RolesDistribution[role.Name]++
		}
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleGridAnalytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := client.GridAnalytics{ItemsByType: map[string]int{}}
	for _, cats := range s.grids {
		if len(cats) > 0 {
			a.UsersWithGrids++
		}
		a.TotalCategories += len(cats)
		for _, items := range cats {
			a.TotalItems += len(items)
			for _, it := range items {
				a.ItemsByType[string(it.Kind())]++
			}
		}
	}
	writeJSON(w, http.StatusOK, a)
}

// -- rbac --

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	roles := make([]client.Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	s.mu.Unlock()
	slices.SortFunc(roles, func(a, b client.Role) int { return cmp.Compare(a.Name, b.Name) })
	writeJSON(w, http.StatusOK, roles)
}

type createRoleBody struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleBody
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Role name is required")
		return
	}
	role := client.Role{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		DisplayName: cmp.Or(req.DisplayName, req.Name),
		Description: req.Description,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.roles[role.Name]; exists {
		writeError(w, http.StatusConflict, "Role already exists")
		return
	}
	s.roles[role.Name] = role
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if slices.Contains(builtinRoles, name) {
		writeError(w, http.StatusBadRequest, "Built-in roles cannot be deleted")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[name]; !ok {
		writeError(w, http.StatusNotFound, "Role not found")
		return
	}
	delete(s.roles, name)
	for _, acct := range s.users {
		removeRole(acct, name)
	}
	writeMessage(w, "Role deleted successfully")
}

func (s *Server) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.users[mux.Vars(r)["id"]]
	if acct == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, append([]client.Role{}, acct.user.Roles...))
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.users[vars["id"]]
	role, ok := s.roles[vars["role"]]
	switch {
	case acct == nil:
		writeError(w, http.StatusNotFound, "User not found")
	case !ok:
		writeError(w, http.StatusNotFound, "Role not found")
	case !addRole(acct, role):
		writeError(w, http.StatusConflict, "User already has this role")
	default:
		writeMessage(w, "Role assigned successfully")
	}
}

func (s *Server) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["id"] == userID(r) && vars["role"] == RoleAdmin {
		writeError(w, http.StatusBadRequest, "Cannot remove your own admin role")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.users[vars["id"]]
	switch {
	case acct == nil:
		writeError(w, http.StatusNotFound, "User not found")
	case !removeRole(acct, vars["role"]):
		writeError(w, http.StatusNotFound, "User does not have this role")
	default:
		writeMessage(w, "Role removed successfully")
	}
}
