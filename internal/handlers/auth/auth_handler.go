// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"
	"time"

	"vas-billing-service/internal/domain/auth"
	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"
	authUsecase "vas-billing-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== OTP ==========

// SendOTP sends a login code to a registered number.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req auth.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	resp, err := h.authService.SendOTP(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("send otp failed", zap.String("msisdn", req.MSISDN), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "OTP sent successfully", resp)
}

// Register creates a subscriber and sends the first login code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("registration failed", zap.String("msisdn", req.MSISDN), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "User registered and OTP sent", resp)
}

// VerifyOTP exchanges a valid code for a session cookie.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req auth.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	session, err := h.authService.VerifyOTP(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("otp verification failed", zap.String("msisdn", req.MSISDN), zap.Error(err))
		response.FromError(c, err)
		return
	}

	setTokenCookie(c, session.Token, int(time.Until(session.ExpiresAt).Seconds()))
	response.Success(c, http.StatusOK, "Authentication successful", session)
}

// ========== Logout ==========

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("logout failed", zap.String("msisdn", claims.MSISDN), zap.Error(err))
		response.FromError(c, err)
		return
	}

	setTokenCookie(c, "", -1)
	response.Success(c, http.StatusOK, "Logged out successfully", nil)
}

// setTokenCookie writes the cross-site session cookie. A negative maxAge clears it.
func setTokenCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", true, true)
}
