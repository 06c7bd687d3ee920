package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/miosa/aac-board/apierr"
	"github.com/miosa/aac-board/grid"
)

// ---------------------------------------------------------------------------
// Token refresh
// ---------------------------------------------------------------------------

func TestRefresh_SingleFlightForConcurrent401s(t *testing.T) {
	const n = 3
	var refreshCalls, replays atomic.Int32
	var arrived sync.WaitGroup
	arrived.Add(n)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/grid", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new" {
			replays.Add(1)
			fmt.Fprint(w, `{"home":[]}`)
			return
		}
		// Hold every stale request until all of them are in flight.
		arrived.Done()
		arrived.Wait()
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token expired"}`)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var req RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, `{"token":"new","refresh_token":"r2"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokens("old", "r1")

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetGrid(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d: %v", i, err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("want exactly 1 refresh, got %d", got)
	}
	if got := replays.Load(); got != n {
		t.Errorf("want %d replays with the new token, got %d", n, got)
	}
	if access, refresh := c.Tokens(); access != "new" || refresh != "r2" {
		t.Errorf("want rotated tokens, got %q/%q", access, refresh)
	}
}

func TestRefresh_RejectedExpiresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/grid", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"refresh token revoked"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var expired atomic.Int32
	c := New(srv.URL)
	c.SetTokens("old", "r1")
	c.OnSessionExpired(func() { expired.Add(1) })

	_, err := c.GetGrid(context.Background())
	if !errors.Is(err, apierr.ErrSessionExpired) {
		t.Fatalf("want ErrSessionExpired, got %v", err)
	}
	if expired.Load() != 1 {
		t.Errorf("want expiry hook called once, got %d", expired.Load())
	}
	if access, refresh := c.Tokens(); access != "" || refresh != "" {
		t.Errorf("want tokens cleared, got %q/%q", access, refresh)
	}
}

func TestRefresh_UnreachableKeepsSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL)
	c.SetTokens("old", "r1")
	_, err := c.GetGrid(context.Background())
	if !errors.Is(err, apierr.ErrNetwork) {
		t.Fatalf("want network error, got %v", err)
	}
	if access, _ := c.Tokens(); access != "old" {
		t.Errorf("want tokens kept, got %q", access)
	}
}

func TestLogin_401IsNotRefreshed(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"Invalid username or password"}`)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Login(context.Background(), "anna", "wrong")
	if !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if apierr.Message(err) != "Invalid username or password" {
		t.Errorf("want server message, got %q", apierr.Message(err))
	}
	if refreshCalls.Load() != 0 {
		t.Error("login must not trigger a refresh")
	}
}

func TestLogin_InstallsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"a1","refresh_token":"r1","user":{"id":"u1","username":"anna","roles":[{"id":"1","name":"editor","display_name":"Editor"}]}}`)
	}))
	defer srv.Close()

	var seen []string
	c := New(srv.URL)
	c.OnTokens(func(access, refresh string) { seen = append(seen, access+"/"+refresh) })
	res, err := c.Login(context.Background(), "anna", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !res.User.CanEdit() {
		t.Error("want editor role decoded")
	}
	if len(seen) != 1 || seen[0] != "a1/r1" {
		t.Errorf("want token hook with a1/r1, got %v", seen)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestParseError_StatusToSentinel(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{http.StatusForbidden, `{"error":"Insufficient permissions"}`, apierr.ErrForbidden, "Insufficient permissions"},
		{http.StatusNotFound, `{"message":"Item not found"}`, apierr.ErrNotFound, "Item not found"},
		{http.StatusBadRequest, `{"error":"Label required","details":"label"}`, apierr.ErrValidation, "Label required"},
		{http.StatusConflict, `plain text`, apierr.ErrConflict, "plain text"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, tc.body)
		}))
		c := New(srv.URL)
		c.SetTokens("t", "r")
		err := c.UpdateItem(context.Background(), "x", grid.Patch{})
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: want %v, got %v", tc.status, tc.want, err)
		}
		if got := apierr.Message(err); got != tc.msg {
			t.Errorf("status %d: want message %q, got %q", tc.status, tc.msg, got)
		}
	}
}

func TestCheckEditorPassword_RejectionIsFalse(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check-editor-password", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password == "secret" {
			fmt.Fprint(w, `{"valid":true}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"valid":false}`)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) { refreshCalls.Add(1) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokens("t", "r")
	ok, err := c.CheckEditorPassword(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("want false,nil got %v,%v", ok, err)
	}
	ok, err = c.CheckEditorPassword(context.Background(), "secret")
	if err != nil || !ok {
		t.Fatalf("want true,nil got %v,%v", ok, err)
	}
	if refreshCalls.Load() != 0 {
		t.Error("a wrong password must not trigger a refresh")
	}
}

// ---------------------------------------------------------------------------
// Request shapes
// ---------------------------------------------------------------------------

type recorded struct {
	method, path, query, auth string
	body                      string
}

func recorder(t *testing.T, reply string) (*Client, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, recorded{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization"), string(b)})
		mu.Unlock()
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.SetTokens("tok", "ref")
	return c, &got
}

func TestDeleteItem_SendsCascadeTarget(t *testing.T) {
	c, got := recorder(t, ``)
	if err := c.DeleteItem(context.Background(), "c1", "fruits"); err != nil {
		t.Fatal(err)
	}
	r := (*got)[0]
	if r.method != http.MethodDelete || r.path != "/api/grid/item/c1" {
		t.Errorf("got %s %s", r.method, r.path)
	}
	if !strings.Contains(r.body, `"categoryTarget":"fruits"`) {
		t.Errorf("want cascade target in body, got %s", r.body)
	}
	if r.auth != "Bearer tok" {
		t.Errorf("want bearer header, got %q", r.auth)
	}
}

func TestAddItem_WrapsParent(t *testing.T) {
	c, got := recorder(t, `{}`)
	it := grid.NewSymbol("Acqua", "acqua", "", grid.SymbolNoun)
	if err := c.AddItem(context.Background(), it, "home"); err != nil {
		t.Fatal(err)
	}
	body := (*got)[0].body
	for _, want := range []string{`"parentCategory":"home"`, `"item":{`, `"symbol_type":"nome"`} {
		if !strings.Contains(body, want) {
			t.Errorf("want %s in %s", want, body)
		}
	}
}

func TestConjugate_RequestAndMapping(t *testing.T) {
	c, got := recorder(t, `{"mangiare":"ho mangiato"}`)
	forms, err := c.Conjugate(context.Background(), "io mangiare", []string{"mangiare"}, grid.TensePast)
	if err != nil {
		t.Fatal(err)
	}
	if forms["mangiare"] != "ho mangiato" {
		t.Errorf("got %v", forms)
	}
	body := (*got)[0].body
	if !strings.Contains(body, `"base_forms":["mangiare"]`) || !strings.Contains(body, `"tense":"passato"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestListUsers_EncodesFilters(t *testing.T) {
	c, got := recorder(t, `{"users":[{"id":"1","username":"anna","is_active":true}],"total_pages":1,"current_page":1,"total_count":1}`)
	active := true
	page, err := c.ListUsers(context.Background(), UserFilters{Page: 2, IsActive: &active, Search: "an"})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalCount != 1 || page.Users[0].Username != "anna" {
		t.Errorf("got %+v", page)
	}
	if q := (*got)[0].query; q != "is_active=true&page=2&search=an" {
		t.Errorf("got query %q", q)
	}
}

func TestSearchPictograms_BlankQuerySkipsRequest(t *testing.T) {
	c, got := recorder(t, `{"icons":[{"_id":2349,"keywords":[{"keyword":"mela"}]}],"total":1}`)
	icons, err := c.SearchPictograms(context.Background(), "", 10)
	if err != nil || icons != nil || len(*got) != 0 {
		t.Fatalf("want no request, got %v %v %d", icons, err, len(*got))
	}
	icons, err = c.SearchPictograms(context.Background(), "mela", 10)
	if err != nil {
		t.Fatal(err)
	}
	if icons[0].Label() != "mela" || icons[0].URL() != "https://api.arasaac.org/api/pictograms/2349" {
		t.Errorf("got %+v", icons[0])
	}
}
