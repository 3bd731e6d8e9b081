// internal/websocket/hub.go
package websocket

import (
	"context"
	"fmt"
	"sync"

	"vas-billing-service/internal/domain/admin"
	wstypes "vas-billing-service/internal/domain/websocket"
	"vas-billing-service/internal/metrics"
	"vas-billing-service/internal/pkg/jwt"
	"vas-billing-service/internal/pkg/session"

	"go.uber.org/zap"
)

type Hub struct {
	// Connected clients by msisdn
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	handlerRegistry *HandlerRegistry

	verifier  *jwt.Verifier
	blacklist session.Blacklist
	logger    *zap.Logger
}

// BroadcastMessage targets the listed msisdns, or every client when MSISDNs is nil.
type BroadcastMessage struct {
	MSISDNs []string
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(verifier *jwt.Verifier, blacklist session.Blacklist, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		verifier:        verifier,
		blacklist:       blacklist,
		logger:          logger,
	}
}

// Authenticate accepts the same tokens as the HTTP API, minus revoked ones.
func (h *Hub) Authenticate(ctx context.Context, token string) (*ClientAuth, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := h.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return nil, ErrTokenBlacklisted
	}

	return &ClientAuth{
		MSISDN:  claims.MSISDN,
		TokenID: claims.ID,
		IsAdmin: claims.IsAdmin,
	}, nil
}

// RegisterHandler must be called before Run.
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage reports whether a registered handler took msg.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Register adds client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) publish(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event", zap.String("type", string(msg.Message.Type)))
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.msisdn] == nil {
		h.clients[client.msisdn] = make(map[*Client]bool)
	}
	h.clients[client.msisdn][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	metrics.SetWebsocketConnections(total)
	h.logger.Info("websocket client connected",
		zap.String("msisdn", client.msisdn),
		zap.Bool("is_admin", client.isAdmin),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"msisdn":  client.msisdn,
		"isAdmin": client.isAdmin,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.clients[client.msisdn]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.msisdn)
	}
	total := h.totalClients()
	h.mu.Unlock()

	client.Close()
	metrics.SetWebsocketConnections(total)
	h.logger.Info("websocket client disconnected",
		zap.String("msisdn", client.msisdn),
		zap.Int("total", total),
	)
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.MSISDNs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	for _, msisdn := range msg.MSISDNs {
		for client := range h.clients[msisdn] {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}
}

// NotifySubscription pushes a lifecycle change to every connection of msisdn.
func (h *Hub) NotifySubscription(msisdn string, data *wstypes.SubscriptionEventData) {
	h.publish(&BroadcastMessage{
		MSISDNs: []string{msisdn},
		Channel: wstypes.ChannelSubscriptions,
		Message: wstypes.NewMessage(wstypes.SubscriptionEventFor(msisdn), data),
	})
}

// NotifyAdminStats tells admin dashboards to refresh.
func (h *Hub) NotifyAdminStats() {
	h.publish(&BroadcastMessage{
		Channel: wstypes.ChannelAdmin,
		Message: wstypes.NewMessage(wstypes.EventTypeAdminStatsUpdate, nil),
	})
}

// RevokeSession disconnects the connections opened with token jti.
func (h *Hub) RevokeSession(msisdn, jti string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := wstypes.NewMessage(wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
		SessionID: jti,
		Reason:    "logout",
		Message:   "You have been logged out",
	})
	for client := range h.clients[msisdn] {
		if client.tokenID != jti {
			continue
		}
		client.SendMessage(msg)
		client.Close()
	}
}

func (h *Hub) Stats() admin.ConnectionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := admin.ConnectionStats{Users: len(h.clients)}
	for _, clients := range h.clients {
		for client := range clients {
			stats.Connections++
			if client.isAdmin {
				stats.Admins++
			}
		}
	}
	return stats
}

func (h *Hub) IsUserConnected(msisdn string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[msisdn]) > 0
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for msisdn, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, msisdn)
	}
	metrics.SetWebsocketConnections(0)
}
