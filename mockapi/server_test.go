package mockapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/miosa/aac-board/apierr"
	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/grid"
)

var ctx = context.Background()

func start(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	s := New(opts...)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func login(t *testing.T, url, username, password string) *client.Client {
	t.Helper()
	c := client.New(url)
	if _, err := c.Login(ctx, username, password); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestLogin_VerifyReturnsUser(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")

	user, err := c.Verify(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.Username != "anna" || !user.CanEdit() {
		t.Errorf("user = %+v, want anna with edit rights", user)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", ""))
	_, err := client.New(url).Login(ctx, "anna", "nope")
	if !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if got := apierr.Message(err); got != "Invalid username or password" {
		t.Errorf("message = %q", got)
	}
}

func TestRegister_ConflictAndGridType(t *testing.T) {
	s, url := start(t)
	c := client.New(url)
	resp, err := c.Register(ctx, client.RegisterRequest{Username: "bea", Password: "secret1", GridType: GridSimplified})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		t.Fatal("register should return a token pair")
	}
	board, _ := s.Board("bea")
	if len(board[grid.HomeKey]) != 2 {
		t.Errorf("simplified home has %d items, want 2", len(board[grid.HomeKey]))
	}

	_, err = client.New(url).Register(ctx, client.RegisterRequest{Username: "bea", Password: "secret2"})
	if !errors.Is(err, apierr.ErrConflict) {
		t.Errorf("duplicate register err = %v, want conflict", err)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	_, url := start(t)
	_, err := client.New(url).Register(ctx, client.RegisterRequest{Username: "x", Password: "123"})
	if !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestRefresh_RotatesAndRetiresOldToken(t *testing.T) {
	s, url := start(t, WithUser("anna", "secret1", ""))
	c := login(t, url, "anna", "secret1")
	_, oldRefresh := c.Tokens()

	s.ExpireAccessTokens()
	if _, err := c.GetGrid(ctx); err != nil {
		t.Fatalf("get grid after expiry: %v", err)
	}
	if n := s.Stats().Refreshes; n != 1 {
		t.Errorf("refreshes = %d, want 1", n)
	}
	if _, newRefresh := c.Tokens(); newRefresh == oldRefresh {
		t.Error("refresh token was not rotated")
	}

	stale := client.New(url)
	stale.SetTokens("expired", oldRefresh)
	_, err := stale.GetGrid(ctx)
	if !errors.Is(err, apierr.ErrSessionExpired) {
		t.Errorf("reused refresh token err = %v, want session expired", err)
	}
}

func TestLogout_InvalidatesTokens(t *testing.T) {
	s, url := start(t, WithUser("anna", "secret1", ""))
	c := login(t, url, "anna", "secret1")
	access, refresh := c.Tokens()
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	again := client.New(url)
	again.SetTokens(access, refresh)
	if _, err := again.Verify(ctx); !errors.Is(err, apierr.ErrSessionExpired) {
		t.Errorf("verify after logout err = %v, want session expired", err)
	}
	if s.Stats().Rejected == 0 {
		t.Error("expected rejected requests to be counted")
	}
}

func TestEditorPassword(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", "pin42", RoleEditor), WithUser("bob", "secret1", ""))

	anna := login(t, url, "anna", "secret1")
	for pw, want := range map[string]bool{"pin42": true, "wrong": false} {
		ok, err := anna.CheckEditorPassword(ctx, pw)
		if err != nil {
			t.Fatalf("check %q: %v", pw, err)
		}
		if ok != want {
			t.Errorf("check %q = %v, want %v", pw, ok, want)
		}
	}
	// A rejected password must not look like an expired session.
	if a, _ := anna.Tokens(); a == "" {
		t.Error("tokens cleared after a wrong editor password")
	}

	bob := login(t, url, "bob", "secret1")
	if ok, _ := bob.CheckEditorPassword(ctx, "anything"); ok {
		t.Error("account without an editor password unlocked editor mode")
	}
}

// ---------------------------------------------------------------------------
// Grid
// ---------------------------------------------------------------------------

func TestGridItem_Lifecycle(t *testing.T) {
	s, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")

	cat := grid.NewCategory("Giochi", "tmp-key")
	if err := c.AddItem(ctx, cat, grid.HomeKey); err != nil {
		t.Fatalf("add category: %v", err)
	}
	board, _ := s.Board("anna")
	loc, ok := board.FindCategoryByTarget("tmp-key")
	if !ok {
		t.Fatal("category not stored under the proposed key")
	}
	if loc.Item.ID == "" {
		t.Fatal("server did not assign an id")
	}
	if _, ok := board["tmp-key"]; !ok {
		t.Fatal("target category key not created")
	}

	if err := c.AddItem(ctx, grid.NewSymbol("Palla", "", "", grid.SymbolNoun), "tmp-key"); err != nil {
		t.Fatalf("add symbol: %v", err)
	}
	if err := c.UpdateItem(ctx, loc.Item.ID, grid.Patch{Label: grid.Ptr("Giocare")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	board, _ = s.Board("anna")
	if got := board.CategoryName("tmp-key"); got != "Giocare" {
		t.Errorf("category name = %q, want Giocare", got)
	}

	if err := c.DeleteItem(ctx, loc.Item.ID, "tmp-key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	board, _ = s.Board("anna")
	if _, ok := board["tmp-key"]; ok {
		t.Error("category pages survived delete")
	}
	if _, ok := board.FindItemByID(loc.Item.ID); ok {
		t.Error("category item survived delete")
	}
}

func TestDeleteItem_KeepsCategoryLinkedElsewhere(t *testing.T) {
	s, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")

	board := grid.Categories{
		grid.HomeKey: {withID(grid.NewCategory("A", "a"), "ca"), withID(grid.NewCategory("B", "b"), "cb")},
		"a":          {withID(grid.NewCategory("Shared", "shared"), "sa")},
		"b":          {withID(grid.NewCategory("Shared", "shared"), "sb")},
		"shared":     {withID(grid.NewSymbol("X", "", "", grid.SymbolNoun), "x")},
	}
	if err := c.SaveGrid(ctx, board); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteItem(ctx, "ca", "a"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Board("anna")
	if _, ok := got["a"]; ok {
		t.Error("deleted category survived")
	}
	if _, ok := got["shared"]; !ok {
		t.Error("category still linked from b was deleted")
	}
}

func withID(it grid.Item, id string) grid.Item {
	it.ID = id
	return it
}

func TestAddItem_TakenKeyGetsFreshTarget(t *testing.T) {
	s, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")
	if err := c.AddItem(ctx, grid.NewCategory("Doppio", grid.HomeKey), grid.HomeKey); err != nil {
		t.Fatalf("add: %v", err)
	}
	board, _ := s.Board("anna")
	items := board[grid.HomeKey]
	target, _ := items[len(items)-1].Target()
	if target == grid.HomeKey || target == "" {
		t.Errorf("target = %q, want a generated key", target)
	}
}

func TestAddItem_Validation(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")

	err := c.AddItem(ctx, grid.NewSymbol("", "x", "", grid.SymbolNoun), grid.HomeKey)
	if !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("blank label err = %v, want validation", err)
	}
	err = c.AddItem(ctx, grid.NewSymbol("Sole", "", "", grid.SymbolNoun), "nowhere")
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("unknown parent err = %v, want not found", err)
	}
}

func TestGridWrites_RequireEditor(t *testing.T) {
	_, url := start(t, WithUser("viewer", "secret1", ""))
	c := login(t, url, "viewer", "secret1")

	if _, err := c.GetGrid(ctx); err != nil {
		t.Fatalf("read grid: %v", err)
	}
	err := c.AddItem(ctx, grid.NewSymbol("Sole", "", "", grid.SymbolNoun), grid.HomeKey)
	if !errors.Is(err, apierr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestSaveGrid_RequiresHome(t *testing.T) {
	s, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")

	err := c.SaveGrid(ctx, grid.Categories{"other": {}})
	if !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if err := c.SaveGrid(ctx, grid.Categories{grid.HomeKey: {}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	board, _ := s.Board("anna")
	if len(board) != 1 {
		t.Errorf("board has %d categories after save, want 1", len(board))
	}
}

func TestStore_AgainstServer(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")
	store := grid.NewStore(c)

	if !store.LoadGrid(ctx) {
		t.Fatalf("load: %s", store.State().Err)
	}
	home := store.State().Categories[grid.HomeKey]
	if len(home) != 5 {
		t.Fatalf("default home has %d items, want 5", len(home))
	}

	if !store.MoveItem(ctx, home[1].ID, home[0].ID) {
		t.Fatalf("move: %s", store.State().Err)
	}
	if !store.LoadGrid(ctx) {
		t.Fatal("reload failed")
	}
	got := store.State().Categories[grid.HomeKey]
	if got[0].ID != home[1].ID || got[1].ID != home[0].ID {
		t.Errorf("server order = %s, %s; want the first two swapped", got[0].Label, got[1].Label)
	}
}

func TestSearch(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", ""))
	c := login(t, url, "anna", "secret1")

	hits, err := c.SearchPictograms(ctx, "mangia", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1 with limit", len(hits))
	}
	if !strings.HasPrefix(hits[0].URL(), client.ArasaacBaseURL) {
		t.Errorf("url = %q", hits[0].URL())
	}
}

// ---------------------------------------------------------------------------
// AI
// ---------------------------------------------------------------------------

func TestDictionary_Conjugate(t *testing.T) {
	tests := []struct {
		base  string
		tense grid.Tense
		want  string
	}{
		{"mangiare", grid.TensePresent, "mangio"},
		{"mangiare", grid.TensePast, "ho mangiato"},
		{"mangiare", grid.TenseFuture, "mangerò"},
		{"giocare", grid.TenseFuture, "giocherò"},
		{"camminare", grid.TenseFuture, "camminerò"},
		{"dormire", grid.TensePast, "ho dormito"},
		{"dormire", grid.TenseFuture, "dormirò"},
		{"credere", grid.TensePast, "ho creduto"},
		{"essere", grid.TensePast, "sono stato"},
		{"andare", grid.TenseFuture, "andrò"},
		{"leggere", grid.TensePast, "ho letto"},
	}
	for _, tt := range tests {
		got, _ := Dictionary{}.Conjugate(ctx, "", []string{tt.base}, tt.tense)
		if got[tt.base] != tt.want {
			t.Errorf("%s/%s = %q, want %q", tt.base, tt.tense, got[tt.base], tt.want)
		}
	}
}

func TestDictionary_ConjugateOmitsUnknown(t *testing.T) {
	got, _ := Dictionary{}.Conjugate(ctx, "", []string{"pizza", "mangiare"}, grid.TensePast)
	if _, ok := got["pizza"]; ok {
		t.Error("non-verb should be omitted")
	}
	if len(got) != 1 {
		t.Errorf("forms = %v", got)
	}
}

func TestDictionary_Correct(t *testing.T) {
	got, _ := Dictionary{}.Correct(ctx, "  io   voglio mangiare ")
	if got != "Io voglio mangiare." {
		t.Errorf("corrected = %q", got)
	}
	got, _ = Dictionary{}.Correct(ctx, "dov'è?")
	if got != "Dov'è?" {
		t.Errorf("corrected = %q", got)
	}
}

func TestConjugateEndpoint(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", ""))
	c := login(t, url, "anna", "secret1")

	forms, err := c.Conjugate(ctx, "io mangiare", []string{"mangiare"}, grid.TenseFuture)
	if err != nil {
		t.Fatalf("conjugate: %v", err)
	}
	if forms["mangiare"] != "mangerò" {
		t.Errorf("forms = %v", forms)
	}
	_, err = c.Conjugate(ctx, "io mangiare", []string{"mangiare"}, grid.Tense("remoto"))
	if !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("bad tense err = %v, want validation", err)
	}
}

type failingAI struct{ Dictionary }

func (failingAI) Correct(context.Context, string) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestCorrectEndpoint_AIFailure(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", ""), WithTextAI(failingAI{}))
	c := login(t, url, "anna", "secret1")
	_, err := c.Correct(ctx, "io mangiare")
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502", err)
	}
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func adminServer(t *testing.T) (*Server, *client.Client) {
	t.Helper()
	s, url := start(t,
		WithUser("root", "secret1", "", RoleAdmin),
		WithUser("anna", "secret1", "", RoleEditor),
		WithUser("bob", "secret1", ""),
	)
	return s, login(t, url, "root", "secret1")
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	_, url := start(t, WithUser("anna", "secret1", "", RoleEditor))
	c := login(t, url, "anna", "secret1")
	if _, err := c.ListUsers(ctx, client.UserFilters{}); !errors.Is(err, apierr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestAdmin_ListUsersFiltersAndPages(t *testing.T) {
	_, c := adminServer(t)

	page, err := c.ListUsers(ctx, client.UserFilters{Limit: 2, SortBy: "username"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 3 || page.TotalPages != 2 || len(page.Users) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Users[0].Username != "anna" {
		t.Errorf("first user = %s, want anna", page.Users[0].Username)
	}

	page, _ = c.ListUsers(ctx, client.UserFilters{Role: RoleEditor})
	if page.TotalCount != 1 || page.Users[0].Username != "anna" {
		t.Errorf("role filter = %+v", page.Users)
	}
	page, _ = c.ListUsers(ctx, client.UserFilters{Search: "BO"})
	if page.TotalCount != 1 || page.Users[0].Username != "bob" {
		t.Errorf("search = %+v", page.Users)
	}
}

func TestAdmin_CreateUpdateDelete(t *testing.T) {
	_, c := adminServer(t)

	u, err := c.CreateUser(ctx, client.CreateUserRequest{Username: "carla", Password: "secret1", Roles: []string{RoleEditor}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !u.HasRole(RoleEditor) || !u.IsActive {
		t.Errorf("created = %+v", u)
	}
	if _, err := c.CreateUser(ctx, client.CreateUserRequest{Username: "carla", Password: "secret1"}); !errors.Is(err, apierr.ErrConflict) {
		t.Errorf("duplicate err = %v, want conflict", err)
	}

	email := "carla@example.org"
	u, err = c.UpdateUser(ctx, u.ID, client.UpdateUserRequest{Email: &email})
	if err != nil || u.Email != email {
		t.Fatalf("update = %+v, %v", u, err)
	}

	if err := c.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetUser(ctx, u.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("get deleted err = %v, want not found", err)
	}
}

func TestAdmin_BulkDeactivateBlocksLogin(t *testing.T) {
	_, c := adminServer(t)
	page, _ := c.ListUsers(ctx, client.UserFilters{Search: "bob"})
	bob := page.Users[0]

	res, err := c.BulkUsers(ctx, client.BulkRequest{Operation: client.BulkDeactivate, UserIDs: []string{bob.ID, "ghost"}})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.ProcessedCount != 2 || res.SuccessCount != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
	_, err = client.New(c.BaseURL).Login(ctx, "bob", "secret1")
	if !errors.Is(err, apierr.ErrForbidden) {
		t.Errorf("login of inactive user err = %v, want forbidden", err)
	}

	users, _ := c.UserAnalytics(ctx)
	if users.InactiveUsers != 1 || users.ActiveUsers != 2 {
		t.Errorf("analytics = %+v", users)
	}
}

func TestAdmin_Roles(t *testing.T) {
	_, c := adminServer(t)
	page, _ := c.ListUsers(ctx, client.UserFilters{Search: "bob"})
	bob := page.Users[0]

	if _, err := c.CreateRole(ctx, "therapist", "", "Speech therapist"); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := c.AssignRole(ctx, bob.ID, "therapist"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := c.AssignRole(ctx, bob.ID, "therapist"); !errors.Is(err, apierr.ErrConflict) {
		t.Errorf("second assign err = %v, want conflict", err)
	}
	roles, _ := c.UserRoles(ctx, bob.ID)
	if len(roles) != 2 {
		t.Errorf("bob roles = %+v", roles)
	}

	if err := c.DeleteRole(ctx, RoleEditor); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("delete builtin err = %v, want validation", err)
	}
	if err := c.DeleteRole(ctx, "therapist"); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	roles, _ = c.UserRoles(ctx, bob.ID)
	if len(roles) != 1 {
		t.Errorf("role not dropped from users: %+v", roles)
	}
}

func TestAdmin_GridAnalytics(t *testing.T) {
	_, c := adminServer(t)
	a, err := c.GridAnalytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	board := DefaultBoard()
	perUser := 0
	for _, items := range board {
		perUser += len(items)
	}
	if a.UsersWithGrids != 3 || a.TotalItems != 3*perUser {
		t.Errorf("analytics = %+v, want 3 users with %d items each", a, perUser)
	}
	if a.ItemsByType[string(grid.KindSystem)] != 3*len(board[grid.SystemControlsKey]) {
		t.Errorf("system items = %d", a.ItemsByType[string(grid.KindSystem)])
	}
}

func TestPing_NoAuth(t *testing.T) {
	_, url := start(t)
	h, err := client.New(url).Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !h.Healthy() || h.Version != Version {
		t.Errorf("health = %+v", h)
	}
}
