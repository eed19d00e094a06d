package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MB
)

// joinState is the explicit per-connection state machine: a connection
// is either unjoined or joined to exactly one room. Tracking the
// identity used to join lets disconnect cleanup run the equivalent of
// leave-room without guessing.
type joinState struct {
	roomID   string
	userID   string
	userType string
}

// Client is one live connection. All semantic room state lives in the
// registry; the client only remembers who it is and where it sits.
type Client struct {
	ID       string
	UserID   string
	UserName string
	Conn     *websocket.Conn
	Send     chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.RWMutex
	joined *joinState // nil while unjoined
}

func NewClient(conn *websocket.Conn, userID, userName, clientID string, sendBuffer int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:       clientID,
		UserID:   userID,
		UserName: userName,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the read/write pumps. Inbound frames go to the
// dispatcher; the read pump exiting (for any reason) triggers the
// disconnect cleanup exactly once.
func (c *Client) Start(d *Dispatcher) {
	go c.writePump()
	go c.readPump(d)
}

// Joined reports the current room subscription, comma-ok style.
func (c *Client) Joined() (joinState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.joined == nil {
		return joinState{}, false
	}
	return *c.joined, true
}

func (c *Client) setJoined(roomID, userID, userType string) {
	c.mu.Lock()
	c.joined = &joinState{roomID: roomID, userID: userID, userType: userType}
	c.mu.Unlock()
}

func (c *Client) setUnjoined() {
	c.mu.Lock()
	c.joined = nil
	c.mu.Unlock()
}

func (c *Client) IsActive() bool {
	return c.ctx.Err() == nil
}

// enqueue hands a frame to the write pump without ever blocking the
// caller. A full buffer marks the client as a slow consumer and the
// frame is dropped.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.Send <- data:
		return true
	case <-c.ctx.Done():
		return false
	default:
		log.Warn().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: slow consumer, dropping frame")
		return false
	}
}

// Close is idempotent and safe from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

// writePump drains c.Send to the socket and keeps the peer alive with
// pings. One writer goroutine per connection, gorilla requires it.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump feeds inbound frames to the dispatcher and handles pongs for
// keep-alive. When it exits the transport is gone and the dispatcher
// reconciles room membership.
func (c *Client) readPump(d *Dispatcher) {
	defer func() {
		d.Disconnect(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("clientID", c.ID).Msg("ws: unexpected close")
			}
			return
		}

		d.Dispatch(c, raw)
	}
}
