// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"

	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"
	ws "vas-billing-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigin, or from anywhere when it is "*".
func NewWebSocketHandler(hub *ws.Hub, allowedOrigin string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

// HandleConnection authenticates with the session token before upgrading.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	auth, err := h.hub.Authenticate(c.Request.Context(), middleware.ExtractToken(c))
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Unauthorized(c, "authentication failed")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, auth)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
