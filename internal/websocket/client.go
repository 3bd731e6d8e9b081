// internal/websocket/client.go
package websocket

import (
	"context"
	"sync"
	"time"

	wstypes "vas-billing-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// ClientAuth is what the token says about a connecting subscriber.
type ClientAuth struct {
	MSISDN  string
	TokenID string
	IsAdmin bool
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	msisdn  string
	tokenID string
	isAdmin bool

	channels map[wstypes.ChannelType]bool
	chMutex  sync.RWMutex

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient joins the subscriptions channel, and the admin channel for admins.
func NewClient(hub *Hub, conn *websocket.Conn, auth *ClientAuth) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		msisdn:   auth.MSISDN,
		tokenID:  auth.TokenID,
		isAdmin:  auth.IsAdmin,
		channels: map[wstypes.ChannelType]bool{wstypes.ChannelSubscriptions: true},
		ctx:      ctx,
		cancel:   cancel,
	}
	if auth.IsAdmin {
		c.channels[wstypes.ChannelAdmin] = true
	}
	return c
}

func (c *Client) MSISDN() string {
	return c.msisdn
}

func (c *Client) IsAdmin() bool {
	return c.isAdmin
}

// Subscribe joins channel. Only admins may join the admin channel.
func (c *Client) Subscribe(channel wstypes.ChannelType) bool {
	if channel == wstypes.ChannelAdmin && !c.isAdmin {
		return false
	}

	c.chMutex.Lock()
	defer c.chMutex.Unlock()
	c.channels[channel] = true
	return true
}

func (c *Client) Unsubscribe(channel wstypes.ChannelType) {
	c.chMutex.Lock()
	defer c.chMutex.Unlock()
	delete(c.channels, channel)
}

func (c *Client) IsSubscribed(channel wstypes.ChannelType) bool {
	c.chMutex.RLock()
	defer c.chMutex.RUnlock()
	return c.channels[channel]
}

// ReadPump reads client frames until the connection drops, then leaves the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.remove(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", zap.String("msisdn", c.msisdn), zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes whatever was queued before the client was closed.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.SendError("invalid_message", "Failed to parse message", err.Error())
		return
	}

	if handled, err := c.hub.HandleClientMessage(c.ctx, c, msg); handled {
		if err != nil {
			c.SendError("handler_error", "Failed to process message", err.Error())
		}
		return
	}

	switch msg.Type {
	case wstypes.EventTypePing:
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypePong, nil))

	case wstypes.EventTypeSubscribe:
		var req wstypes.SubscribeRequest
		if err := MapToStruct(msg.Data, &req); err != nil {
			c.SendError("invalid_subscribe", "Invalid subscribe request", err.Error())
			return
		}
		var joined []wstypes.ChannelType
		for _, channel := range req.Channels {
			if c.Subscribe(channel) {
				joined = append(joined, channel)
			}
		}
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypeSubscribe, map[string]interface{}{
			"channels": joined,
			"status":   "subscribed",
		}))

	case wstypes.EventTypeUnsubscribe:
		var req wstypes.UnsubscribeRequest
		if err := MapToStruct(msg.Data, &req); err != nil {
			c.SendError("invalid_unsubscribe", "Invalid unsubscribe request", err.Error())
			return
		}
		for _, channel := range req.Channels {
			c.Unsubscribe(channel)
		}
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypeUnsubscribe, map[string]interface{}{
			"channels": req.Channels,
			"status":   "unsubscribed",
		}))

	default:
		c.SendError("unknown_event", "Unsupported event type", string(msg.Type))
	}
}

// SendMessage queues msg. A client whose buffer is full is dropped.
func (c *Client) SendMessage(msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		c.hub.logger.Error("failed to marshal websocket message", zap.Error(err))
		return
	}

	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		c.hub.logger.Warn("websocket send buffer full, dropping client", zap.String("msisdn", c.msisdn))
		c.Close()
		go c.hub.remove(c)
	}
}

func (c *Client) SendError(code, message, details string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
		Details: details,
	}))
}

// Close asks the write pump to flush and hang up. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(c.cancel)
}
