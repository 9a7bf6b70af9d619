package websocket

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts connection and broadcast activity for the diagnostics endpoint.
type Metrics struct {
	startedAt time.Time

	connectionsOpened atomic.Int64
	connectionsClosed atomic.Int64

	broadcasts       atomic.Int64
	deliveries       atomic.Int64
	deliveryFailures atomic.Int64
	droppedNoTarget  atomic.Int64

	mu             sync.Mutex
	requestErrors  map[Kind]int64
	lastBroadcast  time.Time
	lastBroadcastR string
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Uptime            string           `json:"uptime"`
	ConnectionsOpened int64            `json:"connectionsOpened"`
	ConnectionsClosed int64            `json:"connectionsClosed"`
	Broadcasts        int64            `json:"broadcasts"`
	Deliveries        int64            `json:"deliveries"`
	DeliveryFailures  int64            `json:"deliveryFailures"`
	DroppedBroadcasts int64            `json:"droppedBroadcasts"`
	RequestErrors     map[string]int64 `json:"requestErrors"`
	LastBroadcastAt   *time.Time       `json:"lastBroadcastAt,omitempty"`
	LastBroadcastRack string           `json:"lastBroadcastRack,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:     time.Now(),
		requestErrors: make(map[Kind]int64),
	}
}

func (m *Metrics) ConnectionOpened() {
	m.connectionsOpened.Add(1)
}

func (m *Metrics) ConnectionClosed() {
	m.connectionsClosed.Add(1)
}

// BroadcastSent records one broadcast and its per-member outcome.
func (m *Metrics) BroadcastSent(rackID string, delivered, failed int) {
	m.broadcasts.Add(1)
	m.deliveries.Add(int64(delivered))
	m.deliveryFailures.Add(int64(failed))

	m.mu.Lock()
	m.lastBroadcast = time.Now()
	m.lastBroadcastR = rackID
	m.mu.Unlock()
}

// BroadcastDropped records a broadcast attempted before a transport was set.
func (m *Metrics) BroadcastDropped() {
	m.droppedNoTarget.Add(1)
}

func (m *Metrics) RequestFailed(kind Kind) {
	if kind == "" {
		kind = "unknown"
	}
	m.mu.Lock()
	m.requestErrors[kind]++
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := make(map[string]int64, len(m.requestErrors))
	for k, v := range m.requestErrors {
		errs[string(k)] = v
	}

	s := MetricsSnapshot{
		Uptime:            time.Since(m.startedAt).Round(time.Second).String(),
		ConnectionsOpened: m.connectionsOpened.Load(),
		ConnectionsClosed: m.connectionsClosed.Load(),
		Broadcasts:        m.broadcasts.Load(),
		Deliveries:        m.deliveries.Load(),
		DeliveryFailures:  m.deliveryFailures.Load(),
		DroppedBroadcasts: m.droppedNoTarget.Load(),
		RequestErrors:     errs,
	}
	if !m.lastBroadcast.IsZero() {
		at := m.lastBroadcast
		s.LastBroadcastAt = &at
		s.LastBroadcastRack = m.lastBroadcastR
	}
	return s
}
