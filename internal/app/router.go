// internal/app/router.go
package app

import (
	"net/http"

	adminHandler "vas-billing-service/internal/handlers/admin"
	authHandler "vas-billing-service/internal/handlers/auth"
	catalogHandler "vas-billing-service/internal/handlers/catalog"
	subscriptionHandler "vas-billing-service/internal/handlers/subscription"
	transactionHandler "vas-billing-service/internal/handlers/transaction"
	userHandler "vas-billing-service/internal/handlers/user"
	wsHandler "vas-billing-service/internal/handlers/websocket"
	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	CatalogHandler      *catalogHandler.CatalogHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	TransactionHandler  *transactionHandler.TransactionHandler
	UserHandler         *userHandler.UserHandler
	AdminHandler        *adminHandler.AdminHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket & Metrics ====================
	r.GET("/ws", h.WSHandler.HandleConnection)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== Auth ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/send-otp", h.AuthHandler.SendOTP)
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/verify-otp", h.AuthHandler.VerifyOTP)
	}

	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
	}

	// ==================== Services ====================
	services := api.Group("/services")
	services.Use(h.AuthMiddleware.Auth())
	{
		services.GET("", h.CatalogHandler.ListServices)
		services.GET("/:id", h.CatalogHandler.GetService)
		services.POST("", h.AuthMiddleware.RequireAdmin(), h.CatalogHandler.CreateService)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.GET("", h.SubscriptionHandler.ListSubscriptions)
		subscriptions.POST("", h.SubscriptionHandler.Subscribe)
		subscriptions.DELETE("/:subscriptionId", h.SubscriptionHandler.Unsubscribe)
	}

	// ==================== Transactions ====================
	transactions := api.Group("/transactions")
	transactions.Use(h.AuthMiddleware.Auth())
	{
		transactions.GET("", h.TransactionHandler.ListTransactions)
		transactions.GET("/stats", h.TransactionHandler.GetStats)
	}

	// ==================== User ====================
	users := api.Group("/user")
	users.Use(h.AuthMiddleware.Auth())
	{
		users.GET("/profile", h.UserHandler.GetProfile)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/profile", h.AdminHandler.GetProfile)
		admin.GET("/active-users-per-service", h.AdminHandler.ActiveUsersPerService)
		admin.GET("/ws/stats", h.AdminHandler.WebsocketStats)
		admin.PUT("/services/:id/activate", h.CatalogHandler.ActivateService)
		admin.PUT("/services/:id/deactivate", h.CatalogHandler.DeactivateService)
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
}
