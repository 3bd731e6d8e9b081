// internal/handlers/catalog/catalog_handler.go
package catalog

import (
	"net/http"
	"strconv"

	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/pkg/response"
	service "vas-billing-service/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ========== Public ==========

// ListServices returns active services, optionally by ?category=gaming,music.
func (h *CatalogHandler) ListServices(c *gin.Context) {
	filters, err := service.ParseCategories(c.Query("category"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	services, err := h.catalogService.ListActive(c.Request.Context(), filters)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "services retrieved successfully", services)
}

func (h *CatalogHandler) GetService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	svc, err := h.catalogService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "service retrieved successfully", svc)
}

// ========== Admin ==========

func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req catalog.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "all fields are required", err)
		return
	}

	svc, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "service created successfully", svc)
}

func (h *CatalogHandler) ActivateService(c *gin.Context) {
	h.setActive(c, true, "service activated successfully")
}

func (h *CatalogHandler) DeactivateService(c *gin.Context) {
	h.setActive(c, false, "service deactivated successfully")
}

func (h *CatalogHandler) setActive(c *gin.Context, active bool, message string) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	svc, err := h.catalogService.SetActive(c.Request.Context(), id, active)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, message, svc)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid service ID", err)
		return 0, false
	}
	return id, true
}
