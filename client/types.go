package client

import (
	"net/url"
	"strconv"
)

// ErrorResponse for API errors. The backend uses either error or message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Role is an RBAC role.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// User as returned by auth and admin endpoints. Role is the legacy scalar
// role kept by older backends.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Roles     []Role `json:"roles,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
	LastLogin string `json:"last_login,omitempty"`
}

// HasRole checks both the role set and the legacy scalar role.
func (u User) HasRole(name string) bool {
	if u.Role == name {
		return true
	}
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user may change grid items.
func (u User) CanEdit() bool {
	return u.HasRole("admin") || u.HasRole("editor")
}

// LoginRequest for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest for POST /api/auth/register.
type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email,omitempty"`
	EditorPassword string `json:"editorPassword,omitempty"`
	GridType       string `json:"gridType,omitempty"`
}

// AuthResponse from login and register.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}

// RefreshRequest for POST /api/auth/refresh and /api/auth/revoke.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse from POST /api/auth/refresh. The backend rotates the
// refresh token; an empty one means keep the old.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type editorPasswordRequest struct {
	Password string `json:"password"`
}

type editorPasswordResponse struct {
	Valid bool `json:"valid"`
}

type correctRequest struct {
	Sentence string `json:"sentence"`
}

// CorrectResponse from POST /api/correct.
type CorrectResponse struct {
	Corrected string `json:"corrected_sentence"`
	Original  string `json:"original_sentence"`
}

type conjugateRequest struct {
	Sentence  string   `json:"sentence"`
	BaseForms []string `json:"base_forms"`
	Tense     string   `json:"tense"`
}

type addItemRequest struct {
	Item           any    `json:"item"`
	ParentCategory string `json:"parentCategory"`
}

type deleteItemRequest struct {
	CategoryTarget string `json:"categoryTarget,omitempty"`
}

// Keyword is one label attached to a pictogram.
type Keyword struct {
	Keyword string `json:"keyword"`
}

// Pictogram is an ARASAAC search hit.
type Pictogram struct {
	ID       int       `json:"_id"`
	Keywords []Keyword `json:"keywords"`
}

// URL is the image address of the pictogram.
func (p Pictogram) URL() string { return PictogramURL(p.ID) }

// Label returns the first keyword, if any.
func (p Pictogram) Label() string {
	if len(p.Keywords) == 0 {
		return ""
	}
	return p.Keywords[0].Keyword
}

// ArasaacBaseURL serves pictogram images.
const ArasaacBaseURL = "https://api.arasaac.org/api/pictograms"

// PictogramURL builds the image URL for a pictogram id.
func PictogramURL(id int) string {
	return ArasaacBaseURL + "/" + strconv.Itoa(id)
}

type searchResponse struct {
	Icons []Pictogram `json:"icons"`
	Total int         `json:"total"`
}

// -- Admin --

// UserFilters for GET /api/admin/users. Zero values are omitted.
type UserFilters struct {
	Page      int
	Limit     int
	IsActive  *bool
	Role      string
	Search    string
	SortBy    string
	SortOrder string
}

func (f UserFilters) values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.IsActive != nil {
		v.Set("is_active", strconv.FormatBool(*f.IsActive))
	}
	if f.Role != "" {
		v.Set("role", f.Role)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.SortBy != "" {
		v.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		v.Set("sort_order", f.SortOrder)
	}
	return v
}

// UsersPage from GET /api/admin/users.
type UsersPage struct {
	Users       []User `json:"users"`
	TotalPages  int    `json:"total_pages"`
	CurrentPage int    `json:"current_page"`
	TotalCount  int    `json:"total_count"`
}

// CreateUserRequest for POST /api/admin/users.
type CreateUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// UpdateUserRequest for PUT /api/admin/users/{id}. Nil fields are unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BulkOperation names a bulk user action.
type BulkOperation string

const (
	BulkDelete     BulkOperation = "delete"
	BulkActivate   BulkOperation = "activate"
	BulkDeactivate BulkOperation = "deactivate"
	BulkAssignRole BulkOperation = "assign_role"
	BulkRemoveRole BulkOperation = "remove_role"
)

// NeedsRole reports whether the operation requires a role name.
func (o BulkOperation) NeedsRole() bool {
	return o == BulkAssignRole || o == BulkRemoveRole
}

// BulkRequest for POST /api/admin/users/bulk.
type BulkRequest struct {
	Operation BulkOperation `json:"operation"`
	UserIDs   []string      `json:"user_ids"`
	RoleName  string        `json:"role_name,omitempty"`
}

// BulkResult from POST /api/admin/users/bulk.
type BulkResult struct {
	SuccessCount   int      `json:"success_count"`
	ProcessedCount int      `json:"processed_count"`
	Errors         []string `json:"errors,omitempty"`
}

// UserAnalytics from GET /api/admin/analytics/users.
type UserAnalytics struct {
	TotalUsers        int            `json:"total_users"`
	ActiveUsers       int            `json:"active_users"`
	InactiveUsers     int            `json:"inactive_users"`
	RolesDistribution map[string]int `json:"roles_distribution"`
}

// GridAnalytics from GET /api/admin/analytics/grids.
type GridAnalytics struct {
	TotalItems      int            `json:"total_items"`
	TotalCategories int            `json:"total_categories"`
	ItemsByType     map[string]int `json:"items_by_type"`
	UsersWithGrids  int            `json:"users_with_grids"`
}

// HealthResponse from GET /api/admin/system/ping.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Database      string `json:"database,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// Healthy reports whether the backend says it is up.
func (h HealthResponse) Healthy() bool {
	return h.Status == "ok" || h.Status == "healthy"
}

type createRoleRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// MessageResponse is the generic {message} body.
type MessageResponse struct {
	Message string `json:"message"`
}
