package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator map[string]*jwt.Claims

func (s stubValidator) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	switch token {
	case "revoked":
		return nil, xerrors.ErrSessionExpired
	case "unreachable":
		return nil, fmt.Errorf("failed to check token status: %w", errors.New("dial tcp: connection refused"))
	}
	claims, ok := s[token]
	if !ok {
		return nil, xerrors.ErrUnauthorized
	}
	return claims, nil
}

func claimsFor(msisdn string, admin bool) *jwt.Claims {
	return &jwt.Claims{MSISDN: msisdn, IsAdmin: admin, RegisteredClaims: gojwt.RegisteredClaims{ID: "jti-" + msisdn}}
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(stubValidator{
		"user":  claimsFor("0821234567", false),
		"admin": claimsFor("0000000001", true),
	})

	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()))
	r.GET("/me", m.Auth(), func(c *gin.Context) {
		jti, _ := GetJTI(c)
		c.String(http.StatusOK, MustGetMSISDN(c)+"|"+jti)
	})
	r.GET("/admin", append(m.AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthTokenSources(t *testing.T) {
	r := newEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "user"})
	req.Header.Set("Authorization", "Bearer admin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0821234567|jti-0821234567", w.Body.String(), "cookie wins over header")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer admin")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "0000000001|jti-0000000001", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=user", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejections(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=forged", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=revoked", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session expired")
}

func TestAuthReportsBlacklistOutageAsServerError(t *testing.T) {
	r := newEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer unreachable")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
}

func TestAdminOnly(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin?token=user", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin?token=admin", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryReturns500(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("http://localhost:3000"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
