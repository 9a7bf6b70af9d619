package websocket

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Transport delivers a frame to one session.
type Transport interface {
	Send(sessionID string, msg *Message) error
}

// Broadcaster pushes rack events to every session in the rack's room.
// It never returns errors to the caller.
type Broadcaster struct {
	registry *Registry
	metrics  *Metrics

	transport atomic.Pointer[transportHandle]

	now func() time.Time
}

// NewBroadcaster creates a broadcaster with no transport. metrics may be nil.
func NewBroadcaster(registry *Registry, metrics *Metrics) *Broadcaster {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Broadcaster{registry: registry, metrics: metrics, now: time.Now}
}

type transportHandle struct {
	Transport
}

// SetTransport wires the push transport once it is ready. A nil t detaches it.
func (b *Broadcaster) SetTransport(t Transport) {
	if t == nil {
		b.transport.Store(nil)
		return
	}
	b.transport.Store(&transportHandle{Transport: t})
}

func (b *Broadcaster) currentTransport() Transport {
	if h := b.transport.Load(); h != nil {
		return h.Transport
	}
	return nil
}

func (b *Broadcaster) BroadcastSensorData(rackID string, data interface{}) {
	b.broadcast(rackID, EventSensorData, "data", data)
}

func (b *Broadcaster) BroadcastDeviceStatus(rackID string, status interface{}) {
	b.broadcast(rackID, EventDeviceStatus, "status", status)
}

func (b *Broadcaster) BroadcastNotification(rackID string, notification interface{}) {
	b.broadcast(rackID, EventNotification, "notification", notification)
}

func (b *Broadcaster) BroadcastAutomationEvent(rackID string, event interface{}) {
	b.broadcast(rackID, EventAutomationEvent, "event", event)
}

func (b *Broadcaster) broadcast(rackID string, event EventName, field string, payload interface{}) (delivered int) {
	transport := b.currentTransport()
	if transport == nil {
		slog.Warn("Dropping broadcast", "rackID", rackID, "event", event, "error", ErrTransportNotReady)
		b.metrics.BroadcastDropped()
		return 0
	}

	msg := newRackEvent(event, rackID, field, payload, b.now())
	members := b.registry.MembersOf(rackID)

	for _, sessionID := range members {
		if err := safeSend(transport, sessionID, msg); err != nil {
			slog.Warn("Broadcast delivery failed", "rackID", rackID, "event", event, "clientID", sessionID, "error", err)
			continue
		}
		delivered++
	}

	b.metrics.BroadcastSent(rackID, delivered, len(members)-delivered)
	slog.Debug("Broadcast sent", "rackID", rackID, "event", event, "members", len(members), "delivered", delivered)
	return delivered
}

func safeSend(t Transport, sessionID string, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return t.Send(sessionID, msg)
}
