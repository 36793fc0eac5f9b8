package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/http/handlers"
	"github.com/instihub/portal/internal/repo/postgres"
)

type fakeUserStore struct {
	createFn func(ctx context.Context, u user.User) (user.User, error)
	getFn    func(ctx context.Context, id string) (user.User, error)
	listFn   func(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error)
	updateFn func(ctx context.Context, u user.User) (user.User, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeUserStore) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{}, nil
}

func (f *fakeUserStore) List(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeUserStore) Update(ctx context.Context, u user.User) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func TestCreateUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(*fakeUserStore)
		wantStatusCode int
	}{
		{
			name: "success_defaults_applied",
			body: `{"username": "jdoe", "email": "jdoe@example.com", "password": "s3cretpass"}`,
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					if u.Role != user.RoleStudent {
						t.Errorf("default role = %q, want STUDENT", u.Role)
					}
					if u.FullName != "Default Name" {
						t.Errorf("default full name = %q", u.FullName)
					}
					if !u.IsEnabled {
						t.Error("new users should start enabled")
					}
					return u, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "missing_password",
			body:           `{"username": "jdoe", "email": "jdoe@example.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_role",
			body:           `{"username": "jdoe", "email": "jdoe@example.com", "password": "s3cretpass", "role": "WIZARD"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_username",
			body: `{"username": "jdoe", "email": "jdoe@example.com", "password": "s3cretpass"}`,
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, postgres.ErrUsernameTaken
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tt.setup != nil {
				tt.setup(store)
			}

			h := handlers.NewUsersHandler(store)
			r := setupRouter(http.MethodPost, "/users", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if w.Code == http.StatusCreated && strings.Contains(w.Body.String(), "passwordHash") {
				t.Error("password hash leaked into the response")
			}
		})
	}
}

func TestListUsersHandlerFilters(t *testing.T) {
	var gotFilter user.ListUsersFilter

	store := &fakeUserStore{
		listFn: func(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error) {
			gotFilter = filter
			return []user.User{{ID: newUUID(), Username: "jdoe", Role: user.RoleStudent}}, nil
		},
	}

	h := handlers.NewUsersHandler(store)
	r := setupRouter(http.MethodGet, "/users", h.List)

	req := httptest.NewRequest(http.MethodGet, "/users?role=STUDENT&name=doe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotFilter.Role == nil || *gotFilter.Role != user.RoleStudent {
		t.Errorf("role filter not forwarded: %+v", gotFilter)
	}

	if gotFilter.Name == nil || *gotFilter.Name != "doe" {
		t.Errorf("name filter not forwarded: %+v", gotFilter)
	}

	var resp struct {
		Users []user.User `json:"users"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Users) != 1 {
		t.Errorf("got %d users, want 1", len(resp.Users))
	}
}

func TestListUsersHandlerRejectsUnknownRole(t *testing.T) {
	h := handlers.NewUsersHandler(&fakeUserStore{})
	r := setupRouter(http.MethodGet, "/users", h.List)

	req := httptest.NewRequest(http.MethodGet, "/users?role=WIZARD", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestGetUserHandlerInvalidID(t *testing.T) {
	h := handlers.NewUsersHandler(&fakeUserStore{})
	r := setupRouter(http.MethodGet, "/users/:id", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/users/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}
