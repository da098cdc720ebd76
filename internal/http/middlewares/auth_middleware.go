package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baybe/cleanbook/internal/cache"
	"github.com/baybe/cleanbook/internal/domain/user"
)

// Small interfaces so tests can fake them easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (string, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// AuthMiddleware is the session guard: it verifies the bearer token AND
// resolves the embedded id to a live user record, so a token signed for a
// since-deleted user is rejected.
type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserResolver
	cache *cache.TTLCache
}

func NewAuthMiddleware(jwt TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		users: users,
		cache: cache.New(5 * time.Second),
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Not authorized, token missing")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Not authorized, token missing")
			return
		}

		userID, err := m.jwt.VerifySessionToken(raw)
		if err != nil {
			abortUnauthorized(c, "Not authorized")
			return
		}

		u, err := m.resolveUser(c.Request.Context(), userID)
		if err != nil {
			// valid token, but the record no longer exists
			abortUnauthorized(c, "Not authorized")
			return
		}

		c.Set(ctxUserKey, u)

		c.Next()
	}
}

func (m *AuthMiddleware) resolveUser(ctx context.Context, id string) (user.User, error) {
	if v, ok := m.cache.Get(id); ok {
		if u, ok := v.(user.User); ok {
			return u, nil
		}
	}

	u, err := m.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	m.cache.Set(id, u)

	return u, nil
}

// Invalidate drops a cached user record, e.g. after a password change.
func (m *AuthMiddleware) Invalidate(id string) {
	m.cache.Delete(id)
}

// CurrentUser returns the record the guard attached to the request.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}

	u, ok := v.(user.User)
	return u, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}
