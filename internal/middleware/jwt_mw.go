package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/utils"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthIdentityKey is the gin context key holding the caller's model.Identity
const AuthIdentityKey = "authIdentity"

// IdentityResolver loads the current state of an account.
// repository.UserRepository implements it.
type IdentityResolver interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// JWTAuthMiddleware validates the bearer token and resolves it to a fresh
// identity. Role and flags always come from the user table, never from the
// token, so deactivation and approval changes apply immediately.
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil, users IdentityResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := jwtUtil.ValidateToken(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "failed to resolve identity", "user_id", claims.UserID, "error", err)
			if errors.Is(err, repository.ErrUnavailable) {
				abort(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			abort(c, http.StatusInternalServerError, "Failed to resolve identity")
			return
		}
		if user == nil {
			abort(c, http.StatusUnauthorized, "Account no longer exists")
			return
		}
		if !user.IsActive {
			abort(c, http.StatusForbidden, "Account is inactive")
			return
		}

		c.Set(AuthIdentityKey, user.Identity())
		c.Next()
	}
}

// GetIdentity returns the identity stored by JWTAuthMiddleware
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	v, exists := c.Get(AuthIdentityKey)
	if !exists {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, response.Error(status, msg))
}
