// internal/websocket/handler/subscription.go
package handler

import (
	"context"
	"fmt"

	"vas-billing-service/internal/domain/admin"
	"vas-billing-service/internal/domain/subscription"
	wstypes "vas-billing-service/internal/domain/websocket"
	ws "vas-billing-service/internal/websocket"
)

type SubscriptionLister interface {
	List(ctx context.Context, msisdn string, status *subscription.Status) ([]*subscription.Subscription, error)
}

type ActiveUserCounter interface {
	ActiveUsersPerService(ctx context.Context) ([]*admin.ActiveUsersPerService, error)
}

// SubscriptionHandler answers dashboard reads over the socket so clients can
// refresh after a push without another HTTP round trip.
type SubscriptionHandler struct {
	subscriptions SubscriptionLister
	stats         ActiveUserCounter
}

func NewSubscriptionHandler(subscriptions SubscriptionLister, stats ActiveUserCounter) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, stats: stats}
}

func (h *SubscriptionHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeSubscriptionList,
		wstypes.EventTypeAdminStats,
	}
}

func (h *SubscriptionHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeSubscriptionList:
		return h.handleList(ctx, client, msg)
	case wstypes.EventTypeAdminStats:
		return h.handleAdminStats(ctx, client)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *SubscriptionHandler) handleList(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req struct {
		Status string `json:"status"`
	}
	if msg.Data != nil {
		if err := ws.MapToStruct(msg.Data, &req); err != nil {
			return fmt.Errorf("invalid list request: %w", err)
		}
	}

	status, err := subscription.ParseStatus(req.Status)
	if err != nil {
		return err
	}

	subs, err := h.subscriptions.List(ctx, client.MSISDN(), status)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSubscriptionList, map[string]interface{}{
		"subscriptions": subs,
		"count":         len(subs),
	}))
	return nil
}

func (h *SubscriptionHandler) handleAdminStats(ctx context.Context, client *ws.Client) error {
	if !client.IsAdmin() {
		return ws.ErrAdminRequired
	}

	stats, err := h.stats.ActiveUsersPerService(ctx)
	if err != nil {
		return fmt.Errorf("failed to count active users: %w", err)
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeAdminStats, stats))
	return nil
}
