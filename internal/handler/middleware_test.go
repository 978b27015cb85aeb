package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/handler"
)

func TestRequireAuth_ValidJWT(t *testing.T) {
	ts := newTestServer(t)
	userID, token := ts.newUser("valid@example.com")

	var gotID int64
	var gotRole domain.Role
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := handler.ClaimsFromContext(r.Context())
		if ok {
			gotID = claims.UserID
			gotRole = claims.Role
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.RequireAuth(ts.auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != userID {
		t.Fatalf("expected user id %d, got %d", userID, gotID)
	}
	if gotRole != domain.RoleRegular {
		t.Fatalf("expected role REGULAR, got %q", gotRole)
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.newUser("tamper@example.com")
	resetToken, _, err := ts.auth.IssueResetToken(1)
	if err != nil {
		t.Fatalf("IssueResetToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"empty token", "Bearer "},
		{"garbage", "Bearer invalid.jwt.token"},
		{"tampered", "Bearer " + token[:len(token)-1] + "X"},
		{"reset token", "Bearer " + resetToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("inner handler should not be called")
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.RequireAuth(ts.auth, inner).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ts := newTestServer(t)
	_, userToken := ts.newUser("regular@example.com")

	tests := []struct {
		name    string
		token   string
		status  int
		message string
	}{
		{"admin", ts.adminJWT, http.StatusOK, ""},
		{"regular user", userToken, http.StatusUnauthorized, "Insufficient Permissions"},
		{"no token", "", http.StatusUnauthorized, "Insufficient Permissions"},
		{"invalid token", "not-a-jwt", http.StatusUnauthorized, "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			handler.RequireAdmin(ts.auth, ts.users, inner).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.message != "" {
				if got := errorMessage(t, w.Body.Bytes()); got != tt.message {
					t.Fatalf("expected message %q, got %q", tt.message, got)
				}
			}
		})
	}
}

func TestRequireAdmin_RechecksStoredRole(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	newAdmin := func(email string) (int64, string) {
		t.Helper()
		u, err := ts.users.CreateByAdmin(ctx, domain.NewUser{
			Name:     "Second",
			Email:    email,
			Password: userPassword,
			Role:     domain.RoleAdmin,
		})
		if err != nil {
			t.Fatalf("CreateByAdmin: %v", err)
		}
		return u.ID, ts.signIn(email, userPassword)
	}
	demotedID, demotedToken := newAdmin("demoted@example.com")
	deletedID, deletedToken := newAdmin("deleted@example.com")

	guarded := handler.RequireAdmin(ts.auth, ts.users, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	status := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		guarded.ServeHTTP(w, req)
		return w.Code
	}

	// Both tokens work while the accounts are admins.
	if got := status(demotedToken); got != http.StatusOK {
		t.Fatalf("expected 200 before demotion, got %d", got)
	}
	if got := status(deletedToken); got != http.StatusOK {
		t.Fatalf("expected 200 before deletion, got %d", got)
	}

	regular := domain.RoleRegular
	if _, err := ts.users.UpdateByAdmin(ctx, demotedID, domain.AdminUserPatch{Role: &regular}); err != nil {
		t.Fatalf("UpdateByAdmin: %v", err)
	}
	if err := ts.users.DeleteByAdmin(ctx, deletedID); err != nil {
		t.Fatalf("DeleteByAdmin: %v", err)
	}

	if got := status(demotedToken); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 after demotion, got %d", got)
	}
	if got := status(deletedToken); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 after deletion, got %d", got)
	}
	if got := status(ts.adminJWT); got != http.StatusOK {
		t.Fatalf("expected seeded admin to keep access, got %d", got)
	}
}

func TestMetricsMiddleware_DefaultsStatus(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	w := httptest.NewRecorder()

	handler.Metrics(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("expected body to pass through, got %q", w.Body.String())
	}
}
