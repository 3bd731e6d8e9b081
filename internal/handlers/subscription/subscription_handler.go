// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"
	service "vas-billing-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	logger              *zap.Logger
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// ListSubscriptions returns the caller's subscriptions, optionally ?status=active.
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	msisdn := middleware.MustGetMSISDN(c)

	status, err := subscription.ParseStatus(c.Query("status"))
	if err != nil {
		response.ValidationError(c, "invalid status filter", err)
		return
	}

	subs, err := h.subscriptionService.List(c.Request.Context(), msisdn, status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved successfully", subs)
}

// Subscribe charges the caller and opens a subscription.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	msisdn := middleware.MustGetMSISDN(c)

	var req subscription.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "serviceId is required", err)
		return
	}

	result, err := h.subscriptionService.Subscribe(c.Request.Context(), msisdn, &req)
	if err != nil {
		h.logger.Warn("subscribe failed",
			zap.String("msisdn", msisdn),
			zap.Int64("service_id", req.ServiceID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Subscription successful", result)
}

// Unsubscribe cancels one of the caller's subscriptions and refunds it.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	msisdn := middleware.MustGetMSISDN(c)

	id, err := strconv.ParseInt(c.Param("subscriptionId"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid subscription ID", err)
		return
	}

	result, err := h.subscriptionService.Unsubscribe(c.Request.Context(), msisdn, id)
	if err != nil {
		h.logger.Warn("unsubscribe failed",
			zap.String("msisdn", msisdn),
			zap.Int64("subscription_id", id),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Subscription cancelled successfully", result)
}

// writeError adds the provider to billing rejections.
func writeError(c *gin.Context, err error) {
	var perr *subscription.ProviderError
	if errors.As(err, &perr) {
		response.FromError(c, err, gin.H{"provider": perr.Provider})
		return
	}
	response.FromError(c, err)
}
