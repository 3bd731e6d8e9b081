// internal/handlers/admin/admin_handler.go
package admin

import (
	"net/http"
	"time"

	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"
	service "vas-billing-service/internal/service/admin"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) GetProfile(c *gin.Context) {
	profile, err := h.adminService.Profile(c.Request.Context(), middleware.MustGetMSISDN(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "admin profile retrieved successfully", profile)
}

func (h *AdminHandler) ActiveUsersPerService(c *gin.Context) {
	stats, err := h.adminService.ActiveUsersPerService(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "active users retrieved successfully", stats)
}

// WebsocketStats reports live notification connections.
func (h *AdminHandler) WebsocketStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"connections": h.adminService.ConnectionStats(),
		"timestamp":   time.Now(),
	})
}
