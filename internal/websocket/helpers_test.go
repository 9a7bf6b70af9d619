package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"rack-service/internal/auth"
	"rack-service/internal/models"

	"github.com/stretchr/testify/require"
)

type fakeRacks struct {
	racks map[string]*models.Rack
	err   error
}

func (f *fakeRacks) FindByID(_ context.Context, rackID string) (*models.Rack, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.racks[rackID], nil
}

type fakeReadings struct {
	mu       sync.Mutex
	readings map[string]*models.SensorReading
	err      error
	block    bool
	calls    int
}

func (f *fakeReadings) Latest(ctx context.Context, rackID string) (*models.SensorReading, error) {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	reading := f.readings[rackID]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return reading, nil
}

type sentFrame struct {
	sessionID string
	msg       *Message
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []sentFrame
	failOn map[string]error
	panics map[string]bool
}

func (f *fakeTransport) Send(sessionID string, msg *Message) error {
	if f.panics[sessionID] {
		panic("boom")
	}
	if err := f.failOn[sessionID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentFrame{sessionID: sessionID, msg: msg})
	return nil
}

func (f *fakeTransport) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.sessionID)
	}
	return out
}

type fakePresence struct {
	mu           sync.Mutex
	online       map[string]bool
	changes      []string
	offlineDelay time.Duration
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[string]bool)}
}

func (f *fakePresence) SetUserOnline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	f.changes = append(f.changes, "online:"+userID)
	return nil
}

func (f *fakePresence) SetUserOffline(_ context.Context, userID string) error {
	time.Sleep(f.offlineDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, userID)
	f.changes = append(f.changes, "offline:"+userID)
	return nil
}

func (f *fakePresence) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.changes...)
}

func (f *fakePresence) isOnline(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

func ptr(v float64) *float64 {
	return &v
}

// testEnv wires a registry, coordinator and hub around fakes. Rack "rack-1"
// belongs to user 1 and "rack-2" to user 2.
type testEnv struct {
	registry    *Registry
	racks       *fakeRacks
	readings    *fakeReadings
	coordinator *Coordinator
	presence    *fakePresence
	hub         *Hub
	broadcaster *Broadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry := NewRegistry()
	racks := &fakeRacks{racks: map[string]*models.Rack{
		"rack-1": {ID: "rack-1", Name: "Kitchen", OwnerID: 1},
		"rack-2": {ID: "rack-2", Name: "Balcony", OwnerID: 2},
	}}
	readings := &fakeReadings{readings: map[string]*models.SensorReading{
		"rack-1": {RackID: "rack-1", Temperature: ptr(22.5), Humidity: ptr(55), RecordedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}}
	coordinator := NewCoordinator(registry, NewOwnershipGate(racks), readings, time.Second)
	presence := newFakePresence()
	metrics := NewMetrics()
	hub := NewHub(registry, coordinator, presence, metrics, 16)
	broadcaster := NewBroadcaster(registry, metrics)
	broadcaster.SetTransport(hub)

	t.Cleanup(hub.Stop)

	return &testEnv{
		registry:    registry,
		racks:       racks,
		readings:    readings,
		coordinator: coordinator,
		presence:    presence,
		hub:         hub,
		broadcaster: broadcaster,
	}
}

// connect registers a client with no network connection. Frames sent to it
// stay in its send buffer.
func (e *testEnv) connect(userID uint) *Client {
	c := NewClient(e.hub, nil, auth.Identity{UserID: userID, ExternalAuthID: "ext"})
	e.hub.Register(c)
	return c
}

// frame is a decoded outbound message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func nextFrame(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case raw := <-c.send:
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	default:
		t.Fatal("expected a queued frame")
		return frame{}
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func decodeData(t *testing.T, f frame) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(f.Data, &out))
	return out
}

func rackPayload(rackID string) json.RawMessage {
	raw, _ := json.Marshal(RackRequest{RackID: rackID})
	return raw
}
