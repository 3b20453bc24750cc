package signaling

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/dns"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 * 1024
	handshakeTimeout = 10 * time.Second
	incomingBuffer   = 64
	outgoingBuffer   = 64
)

// Channel is the signaling transport of one participant.
type Channel interface {
	// Send queues msg for delivery. It does not wait for the service.
	Send(msg *Message) error

	// OnMessage registers the handler. Messages are delivered in receipt
	// order, one at a time; anything received earlier is buffered.
	OnMessage(handler func(*Message))

	// Done is closed when the transport has ended for any reason.
	Done() <-chan struct{}

	// Close releases the transport. Safe to call more than once.
	Close() error
}

// Dialer opens signaling channels.
type Dialer interface {
	Dial(ctx context.Context, roomID, token string) (Channel, error)
}

// WebSocketDialer dials the coordination service over a WebSocket.
type WebSocketDialer struct {
	URL      string
	Resolver *dns.Resolver
	Logger   *slog.Logger
}

// NewDialer creates a dialer with the fallback DNS resolver.
func NewDialer(serverURL string) *WebSocketDialer {
	return &WebSocketDialer{
		URL:      serverURL,
		Resolver: dns.NewResolver(),
		Logger:   slog.Default().With("component", "signaling"),
	}
}

// Dial establishes the WebSocket connection. The room is joined later with
// a join message; the token is sent as a bearer credential.
func (d *WebSocketDialer) Dial(ctx context.Context, roomID, token string) (Channel, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, callerr.Connection("dial", err, "invalid server URL")
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	if d.Resolver != nil {
		dialer.NetDialContext = d.Resolver.DialContext
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, callerr.Connection("dial", callerr.ErrUnauthorized, resp.Status)
		}
		return nil, callerr.Connection("dial", err, u.Host)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("signaling connected", "url", u.String(), "room", roomID)

	return NewClient(conn, logger), nil
}

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	conn     *websocket.Conn
	incoming chan *Message
	outgoing chan *Message
	done     chan struct{}
	finished chan struct{}
	logger   *slog.Logger

	closeOnce   sync.Once
	finishOnce  sync.Once
	handlerOnce sync.Once
}

// NewClient wraps an established connection and starts its pumps.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	c := &Client{
		conn:     conn,
		incoming: make(chan *Message, incomingBuffer),
		outgoing: make(chan *Message, outgoingBuffer),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		logger:   logger,
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return c
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
		c.finish()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("signaling read failed", "err", err)
			}
			return
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			if err := c.write(message); err != nil {
				c.logger.Warn("signaling write failed", "type", message.Type, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.finished:
			return

		case <-c.done:
			// Flush what was queued before Close, e.g. a final leaveRoom.
			for {
				select {
				case message := <-c.outgoing:
					if err := c.write(message); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(msg *Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Send queues a message for the server.
func (c *Client) Send(msg *Message) error {
	select {
	case <-c.done:
		return callerr.ErrChannelClosed
	case <-c.finished:
		return callerr.ErrChannelClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return callerr.ErrChannelClosed
	case <-c.finished:
		return callerr.ErrChannelClosed
	}
}

// OnMessage starts delivering incoming messages to handler. Only the first
// registered handler is used.
func (c *Client) OnMessage(handler func(*Message)) {
	c.handlerOnce.Do(func() {
		go func() {
			for msg := range c.incoming {
				handler(msg)
			}
		}()
	})
}

// Done is closed once the read side of the transport has ended.
func (c *Client) Done() <-chan struct{} {
	return c.finished
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Client) finish() {
	c.finishOnce.Do(func() {
		close(c.finished)
	})
}
