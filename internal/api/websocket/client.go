package websocket

import (
	"context"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/telemetry-platform/telemetry/internal/auth"
	"github.com/telemetry-platform/telemetry/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one connected WebSocket dashboard client. Readings flow one
// direction only (server -> client); ReadPump exists to service pongs and
// detect a dropped connection.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	ctx    context.Context
	cancel context.CancelFunc
	id     string
	claims *auth.Claims
}

// NewClient wraps an upgraded connection. claims is the verified bearer
// identity that authorized the upgrade.
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, id string, claims *auth.Claims) *Client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    hub,
		ctx:    clientCtx,
		cancel: cancel,
		id:     id,
		claims: claims,
	}
}

// Username returns the authenticated username.
func (c *Client) Username() string {
	if c.claims == nil {
		return ""
	}
	return c.claims.Username
}

// ReadPump discards inbound frames but keeps the read deadline alive via
// pong handling; it exits (and unregisters) when the peer disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.EventLog(os.Stderr, "debug", c.Username(), "websocket read error", err.Error())
				}
				return
			}
		}
	}
}

// WritePump delivers queued broadcast messages and periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close terminates both pumps.
func (c *Client) Close() {
	c.cancel()
}
