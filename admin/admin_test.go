package admin

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miosa/aac-board/apierr"
	"github.com/miosa/aac-board/client"
	"github.com/miosa/aac-board/mockapi"
)

var ctx = context.Background()

func newService(t *testing.T) (*Service, *client.Client) {
	t.Helper()
	srv := httptest.NewServer(mockapi.New(
		mockapi.WithUser("root", "secret1", "", mockapi.RoleAdmin),
		mockapi.WithUser("anna", "secret1", ""),
	))
	t.Cleanup(srv.Close)
	c := client.New(srv.URL)
	if _, err := c.Login(ctx, "root", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return New(c, nil), c
}

// recorder fails every call so tests can check nothing reached the backend.
type recorder struct {
	Backend
	calls int
}

func (r *recorder) BulkUsers(context.Context, client.BulkRequest) (*client.BulkResult, error) {
	r.calls++
	return &client.BulkResult{}, nil
}

func (r *recorder) CreateUser(context.Context, client.CreateUserRequest) (*client.User, error) {
	r.calls++
	return &client.User{}, nil
}

func TestValidation_NoRequest(t *testing.T) {
	rec := &recorder{}
	s := New(rec, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"blank username", func() error {
			_, err := s.CreateUser(ctx, client.CreateUserRequest{Username: "  ", Password: "secret1"})
			return err
		}},
		{"short password", func() error {
			_, err := s.CreateUser(ctx, client.CreateUserRequest{Username: "x", Password: "123"})
			return err
		}},
		{"empty update", func() error {
			_, err := s.UpdateUser(ctx, "id", client.UpdateUserRequest{})
			return err
		}},
		{"bad sort order", func() error {
			_, err := s.Users(ctx, client.UserFilters{SortOrder: "sideways"})
			return err
		}},
		{"unknown bulk op", func() error {
			_, err := s.Bulk(ctx, "explode", []string{"a"}, "")
			return err
		}},
		{"assign without role", func() error {
			_, err := s.Bulk(ctx, client.BulkAssignRole, []string{"a"}, "")
			return err
		}},
		{"only blank ids", func() error {
			_, err := s.Bulk(ctx, client.BulkDelete, []string{"", " "}, "")
			return err
		}},
		{"blank role name", func() error {
			_, err := s.CreateRole(ctx, " ", "", "")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, apierr.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
	if rec.calls != 0 {
		t.Errorf("backend called %d times", rec.calls)
	}
}

func TestBulk_DedupesIDs(t *testing.T) {
	s, _ := newService(t)
	page, err := s.Users(ctx, client.UserFilters{Search: "anna"})
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	id := page.Users[0].ID

	res, err := s.Bulk(ctx, client.BulkDeactivate, []string{id, id, " " + id}, "")
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.ProcessedCount != 1 || res.SuccessCount != 1 {
		t.Errorf("result = %+v, want one processed id", res)
	}
	u, _ := s.User(ctx, id)
	if u.IsActive {
		t.Error("user still active")
	}
}

func TestCreateRole_DefaultDisplayName(t *testing.T) {
	s, _ := newService(t)
	r, err := s.CreateRole(ctx, "therapist", "", "")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if r.DisplayName != "therapist" {
		t.Errorf("display name = %q", r.DisplayName)
	}
}

func TestUsers_DefaultPaging(t *testing.T) {
	s, _ := newService(t)
	page, err := s.Users(ctx, client.UserFilters{})
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if page.CurrentPage != 1 || page.TotalCount != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestDashboard_Markdown(t *testing.T) {
	s, _ := newService(t)
	d, err := s.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	md := d.Markdown()
	for _, want := range []string{"# Admin overview", "**System:** ok", "| 2 | 2 | 0 |", "`editor` Editor"} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestDashboard_ForbiddenForNonAdmin(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(mockapi.WithUser("anna", "secret1", "")))
	defer srv.Close()
	c := client.New(srv.URL)
	if _, err := c.Login(ctx, "anna", "secret1"); err != nil {
		t.Fatal(err)
	}
	_, err := New(c, nil).Dashboard(ctx)
	if !errors.Is(err, apierr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestPollHealth_ImmediateThenTicks(t *testing.T) {
	s, _ := newService(t)
	pollCtx, cancel := context.WithCancel(ctx)
	var mu sync.Mutex
	var got []HealthStatus
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.PollHealth(pollCtx, 10*time.Millisecond, func(h HealthStatus) {
			mu.Lock()
			got = append(got, h)
			n := len(got)
			mu.Unlock()
			if n == 3 {
				cancel()
			}
		})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("poller did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) < 3 {
		t.Fatalf("got %d checks, want 3", len(got))
	}
	if !got[0].Up() {
		t.Errorf("first check = %+v, want up", got[0])
	}
}

func TestCheckHealth_Down(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()
	h := New(client.New(srv.URL), nil).CheckHealth(ctx)
	if h.Up() || !errors.Is(h.Err, apierr.ErrNetwork) {
		t.Errorf("status = %+v, want network failure", h)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := map[int64]string{59: "0m", 3660: "1h 1m", 90000: "1d 1h"}
	for sec, want := range tests {
		if got := formatUptime(sec); got != want {
			t.Errorf("formatUptime(%d) = %q, want %q", sec, got, want)
		}
	}
}
