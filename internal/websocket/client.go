package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"rack-service/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	defaultSendBuffer = 256
)

type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity auth.Identity

	ctx    context.Context
	cancel context.CancelFunc
	closed int32

	wg sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, identity auth.Identity) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	size := hub.sendBuffer
	if size <= 0 {
		size = defaultSendBuffer
	}

	return &Client{
		id:       uuid.New().String(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, size),
		identity: identity,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and stops both pumps.
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		if c.conn != nil {
			c.conn.Close()
		}
		slog.Debug("Client marked as closed", "clientID", c.id, "userID", c.identity.UserID)
	}
}

// Start runs the read and write pumps.
func (c *Client) Start() {
	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

// Wait blocks until both pumps have finished or timeout elapses.
func (c *Client) Wait(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for client goroutines", "clientID", c.id, "timeout", timeout)
	}
}

// readPump processes the client's frames one at a time, in arrival order.
func (c *Client) readPump() {
	defer func() {
		c.wg.Done()
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !c.isClosed() {
				slog.Warn("WebSocket read error", "clientID", c.id, "userID", c.identity.UserID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.identity.UserID)
			}
			return
		}

		c.hub.dispatch(c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.wg.Done()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "error", err)
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "error", err)
				c.close()
				return
			}

		case <-c.ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// SendMessage queues msg for delivery. A client whose buffer is full is
// disconnected.
func (c *Client) SendMessage(msg *Message) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.identity.UserID)
		c.close()
		return ErrClientDisconnected
	}
}

// ServeWS upgrades an authenticated request and registers the new session.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", identity.UserID, "error", err)
		return
	}

	client := NewClient(hub, conn, identity)
	if err := hub.Register(client); err != nil {
		slog.Warn("Rejected WebSocket connection", "userID", identity.UserID, "error", err)
		return
	}
	client.SendMessage(NewConnectedMessage(identity.UserID))

	slog.Info("New WebSocket connection established", "clientID", client.id, "userID", identity.UserID)
	client.Start()
}
