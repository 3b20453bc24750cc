package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

const sendBuffer = 256

// Limits bounds a single connection.
type Limits struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// LimitsFrom takes the WebSocket limits from the service configuration.
func LimitsFrom(cfg *config.ServerConfig) Limits {
	return Limits{
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod(),
		MaxMessageSize: cfg.MaxMessageSize,
	}
}

// Client is one participant connection. Everything except the pumps is
// owned by the hub loop.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan *signaling.Message
	limits Limits

	id     string
	userID string
	role   string

	roomID   string
	joinedAt time.Time
}

func (c *Client) participant() signaling.Participant {
	return signaling.Participant{
		ID:       c.id,
		UserID:   c.userID,
		Role:     c.role,
		JoinedAt: c.joinedAt,
	}
}

// ReadPump decodes messages from the connection and hands them to the hub
// in receipt order. It is the only reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.limits.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.limits.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.limits.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("connection closed", "client", c.id, "err", err)
			}
			return
		}

		var msg signaling.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("malformed message", "client", c.id, "err", err)
			if !c.hub.submit(c, nil) {
				return
			}
			continue
		}
		if !c.hub.submit(c, &msg) {
			return
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with
// pings. It is the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.limits.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.limits.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Debug("write failed", "client", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.limits.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
