package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"rack-service/internal/auth"
)

const (
	presenceTimeout = 3 * time.Second
	presenceStripes = 64
)

// PresenceTracker records which users have at least one live connection.
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Hub owns the live clients and routes their requests. It is the Transport
// used by the Broadcaster.
type Hub struct {
	registry    *Registry
	coordinator *Coordinator
	presence    PresenceTracker
	metrics     *Metrics
	sendBuffer  int

	mu      sync.RWMutex
	clients map[string]*Client
	stopped bool

	// Per-user stripes held across a session count change and the presence
	// write it triggers.
	userLocks [presenceStripes]sync.Mutex
}

// NewHub creates a hub. presence may be nil.
func NewHub(registry *Registry, coordinator *Coordinator, presence PresenceTracker, metrics *Metrics, sendBuffer int) *Hub {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Hub{
		registry:    registry,
		coordinator: coordinator,
		presence:    presence,
		metrics:     metrics,
		sendBuffer:  sendBuffer,
		clients:     make(map[string]*Client),
	}
}

func (h *Hub) Metrics() *Metrics {
	return h.metrics
}

// Register adds the client and its session. After Stop the client is closed
// and ErrHubStopped is returned.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		c.close()
		return ErrHubStopped
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	identity := c.identity
	lock := h.userLock(identity.UserID)
	lock.Lock()
	h.registry.AddSession(c.id, &identity)
	if h.registry.UserSessionCount(identity.UserID) == 1 {
		h.setPresence(identity, true)
	}
	lock.Unlock()
	h.metrics.ConnectionOpened()

	slog.Info("Client registered", "clientID", c.id, "userID", identity.UserID, "totalClients", h.registry.Count())
	return nil
}

// Unregister drops the client and all its rack memberships. Calling it more
// than once is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.id]
	if !ok || current != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	h.mu.Unlock()

	lock := h.userLock(c.identity.UserID)
	lock.Lock()
	left := h.registry.RemoveSession(c.id)
	if h.registry.UserSessionCount(c.identity.UserID) == 0 {
		h.setPresence(c.identity, false)
	}
	lock.Unlock()
	h.metrics.ConnectionClosed()

	slog.Info("Client unregistered", "clientID", c.id, "userID", c.identity.UserID, "leftRacks", left, "totalClients", h.registry.Count())
}

func (h *Hub) userLock(userID uint) *sync.Mutex {
	return &h.userLocks[userID%presenceStripes]
}

func (h *Hub) setPresence(identity auth.Identity, online bool) {
	if h.presence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	key := identity.UserKey()
	var err error
	if online {
		err = h.presence.SetUserOnline(ctx, key)
	} else {
		err = h.presence.SetUserOffline(ctx, key)
	}
	if err != nil {
		slog.Warn("Failed to update user presence", "userID", identity.UserID, "online", online, "error", err)
	}
}

func (h *Hub) getClient(sessionID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[sessionID]
}

// Send implements Transport.
func (h *Hub) Send(sessionID string, msg *Message) error {
	c := h.getClient(sessionID)
	if c == nil {
		return ErrClientDisconnected
	}
	return c.SendMessage(msg)
}

// Stop refuses further registrations, closes every client and waits briefly
// for their pumps to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	for _, c := range clients {
		c.Wait(2 * time.Second)
		h.Unregister(c)
	}

	slog.Info("Hub stopped", "closedClients", len(clients))
}

// dispatch handles one inbound frame. Failures are reported to the client as
// error frames and never close the connection.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Debug("Invalid message format", "clientID", c.id, "error", err)
		c.SendMessage(NewErrorMessage("Invalid message format", err.Error()))
		return
	}

	switch msg.Event {
	case EventSubscribeToRack:
		res, err := h.coordinator.Subscribe(c.ctx, c.id, msg.Data)
		if err != nil {
			h.replyError(c, msg.Event, "Failed to subscribe to rack", err)
			return
		}
		c.SendMessage(NewMessage(EventInitialData, InitialDataPayload{RackID: res.RackID, Data: res.Data}))
		c.SendMessage(NewSubscribedAck(res.RackID))

	case EventUnsubscribeFromRack:
		rackID, err := h.coordinator.Unsubscribe(c.ctx, c.id, msg.Data)
		if err != nil {
			h.replyError(c, msg.Event, "Failed to unsubscribe from rack", err)
			return
		}
		c.SendMessage(NewUnsubscribedAck(rackID))

	case EventGetStatus:
		status, err := h.coordinator.Status(c.id)
		if err != nil {
			h.replyError(c, msg.Event, "Failed to get status", err)
			return
		}
		c.SendMessage(NewMessage(EventStatusAck, status))

	default:
		slog.Debug("Unknown event", "clientID", c.id, "event", msg.Event)
		c.SendMessage(NewErrorMessage("Unknown event", msg.Event.String()))
	}
}

func (h *Hub) replyError(c *Client, event EventName, message string, err error) {
	h.metrics.RequestFailed(KindOf(err))
	if KindOf(err) == KindInternal {
		slog.Error("Request failed", "clientID", c.id, "userID", c.identity.UserID, "event", event, "error", err)
	} else {
		slog.Debug("Request rejected", "clientID", c.id, "userID", c.identity.UserID, "event", event, "error", err)
	}
	c.SendMessage(NewErrorMessage(message, ReasonOf(err)))
}
