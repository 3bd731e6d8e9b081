// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/pkg/jwt"
	"vas-billing-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenCookie carries the session token for browser clients.
const TokenCookie = "token"

const (
	ctxMSISDN  = "msisdn"
	ctxIsAdmin = "is_admin"
	ctxJTI     = "jti"
	ctxClaims  = "claims"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Auth validates the session token and stores its claims on the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, xerrors.ErrSessionExpired):
			response.Error(c, http.StatusUnauthorized, "session expired, please log in again", nil)
			return
		case errors.Is(err, xerrors.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		default:
			response.FromError(c, err)
			return
		}

		c.Set(ctxMSISDN, claims.MSISDN)
		c.Set(ctxIsAdmin, claims.IsAdmin)
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxClaims, claims)

		c.Next()
	}
}

// RequireAdmin must run after Auth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

// AdminOnly returns Auth followed by RequireAdmin.
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireAdmin(),
	}
}

// ExtractToken reads the token cookie, then a Bearer header, then ?token=.
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return c.Query("token")
}
