package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baybe/cleanbook/internal/auth"
	"github.com/baybe/cleanbook/internal/domain/user"
	"github.com/baybe/cleanbook/internal/http/middlewares"
	"github.com/baybe/cleanbook/internal/repo/postgres"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	users map[string]user.User
}

func (f *fakeResolver) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func setupGuardedRoute(verifier middlewares.TokenVerifier, resolver middlewares.UserResolver) *gin.Engine {
	guard := middlewares.NewAuthMiddleware(verifier, resolver)

	r := gin.New()

	r.GET("/protected", guard.RequireAuth(), func(c *gin.Context) {
		u, _ := middlewares.CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "email": u.Email})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	resolver := &fakeResolver{users: map[string]user.User{
		"u1": {ID: "u1", Email: "a@x.com"},
	}}

	validToken, err := manager.GenerateSessionToken("u1")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	deletedUserToken, err := manager.GenerateSessionToken("gone")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	expiredToken, err := auth.NewManager("test-secret", -time.Minute).GenerateSessionToken("u1")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "no header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer garbage", wantStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized},
		{name: "valid token but user deleted", authHeader: "Bearer " + deletedUserToken, wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + validToken, wantStatus: http.StatusOK},
	}

	router := setupGuardedRoute(manager, resolver)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("got status %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRequireAuthNeverServesAnotherUser(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	resolver := &fakeResolver{users: map[string]user.User{
		"a": {ID: "a", Email: "a@x.com"},
		"b": {ID: "b", Email: "b@x.com"},
	}}

	router := setupGuardedRoute(manager, resolver)

	tokenA, err := manager.GenerateSessionToken("a")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenA)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	body := rec.Body.String()

	if !strings.Contains(body, `"email":"a@x.com"`) {
		t.Errorf("expected a@x.com in body, got %s", body)
	}

	if strings.Contains(body, "b@x.com") {
		t.Errorf("token for user a must never resolve user b, got %s", body)
	}
}
