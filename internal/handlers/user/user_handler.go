// internal/handlers/user/user_handler.go
package user

import (
	"net/http"

	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"
	service "vas-billing-service/internal/service/user"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.userService.Profile(c.Request.Context(), middleware.MustGetMSISDN(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved successfully", profile)
}
