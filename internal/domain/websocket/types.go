// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Session events
	EventTypeSessionRevoked EventType = "session:revoked"

	// Subscription events (client -> server)
	EventTypeSubscriptionList EventType = "subscription:list"

	// Admin events
	EventTypeAdminStatsUpdate EventType = "admin:statsUpdate"
	EventTypeAdminStats       EventType = "admin:stats"

	// Channel management (client -> server)
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// SubscriptionEventFor is the per-subscriber event name, "subscription:<msisdn>".
func SubscriptionEventFor(msisdn string) EventType {
	return EventType(fmt.Sprintf("subscription:%s", msisdn))
}

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Channels that clients can subscribe to
type ChannelType string

const (
	ChannelSubscriptions ChannelType = "subscriptions"
	ChannelAdmin         ChannelType = "admin"
)

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type SubscriptionAction string

const (
	ActionSubscribe   SubscriptionAction = "subscribe"
	ActionUnsubscribe SubscriptionAction = "unsubscribe"
)

// SubscriptionEventData is pushed to a subscriber after a lifecycle change.
type SubscriptionEventData struct {
	Type           SubscriptionAction `json:"type"`
	SubscriptionID int64              `json:"subscriptionId,omitempty"`
	Subscription   interface{}        `json:"subscription"`
}

// SessionEventData for session events
type SessionEventData struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// NewMessage stamps a message with the current time and a ulid.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
