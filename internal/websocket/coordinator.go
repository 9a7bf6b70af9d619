package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rack-service/internal/models"
)

const defaultRequestTimeout = 10 * time.Second

// LatestReadingProvider returns the newest reading for a rack, or nil, nil
// when it has not reported yet.
type LatestReadingProvider interface {
	Latest(ctx context.Context, rackID string) (*models.SensorReading, error)
}

type SubscribeResult struct {
	RackID string
	Data   *models.SensorReading
}

// Coordinator runs subscribe, unsubscribe and status requests for sessions.
type Coordinator struct {
	registry *Registry
	gate     *OwnershipGate
	readings LatestReadingProvider
	timeout  time.Duration
}

func NewCoordinator(registry *Registry, gate *OwnershipGate, readings LatestReadingProvider, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Coordinator{
		registry: registry,
		gate:     gate,
		readings: readings,
		timeout:  timeout,
	}
}

func decodeRackRequest(payload json.RawMessage) (RackRequest, error) {
	var req RackRequest
	if len(payload) == 0 || string(payload) == "null" {
		return req, Validation("rackId is required")
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, Validation("Invalid request payload")
	}
	req.RackID = strings.TrimSpace(req.RackID)
	if req.RackID == "" {
		return req, Validation("rackId is required")
	}
	return req, nil
}

// Subscribe verifies ownership, joins the rack room and loads the latest
// reading. On any failure the session is left without the membership.
func (c *Coordinator) Subscribe(ctx context.Context, sessionID string, payload json.RawMessage) (*SubscribeResult, error) {
	req, err := decodeRackRequest(payload)
	if err != nil {
		return nil, err
	}

	session, ok := c.registry.GetSession(sessionID)
	if !ok || session.Identity == nil {
		return nil, Internal(ErrSessionNotFound)
	}
	userID := session.Identity.UserID

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.gate.VerifyOwnership(ctx, req.RackID, userID); err != nil {
		return nil, err
	}

	added, err := c.registry.Join(req.RackID, sessionID)
	if err != nil {
		return nil, Internal(err)
	}

	latest, err := c.readings.Latest(ctx, req.RackID)
	if err != nil {
		if added {
			c.registry.Leave(req.RackID, sessionID)
		}
		slog.Error("Failed to load latest reading", "rackID", req.RackID, "userID", userID, "error", err)
		return nil, Internal(fmt.Errorf("latest reading: %w", err))
	}

	slog.Info("Client subscribed to rack", "clientID", sessionID, "userID", userID, "rackID", req.RackID)
	return &SubscribeResult{RackID: req.RackID, Data: latest}, nil
}

// Unsubscribe leaves the rack room. Ownership is not checked.
func (c *Coordinator) Unsubscribe(ctx context.Context, sessionID string, payload json.RawMessage) (string, error) {
	req, err := decodeRackRequest(payload)
	if err != nil {
		return "", err
	}
	c.registry.Leave(req.RackID, sessionID)

	slog.Info("Client unsubscribed from rack", "clientID", sessionID, "rackID", req.RackID)
	return req.RackID, nil
}

func (c *Coordinator) Status(sessionID string) (*StatusPayload, error) {
	if _, ok := c.registry.GetSession(sessionID); !ok {
		return nil, Internal(ErrSessionNotFound)
	}
	return &StatusPayload{
		Connected:        true,
		ClientID:         sessionID,
		SubscribedRacks:  c.registry.SubscriptionsOf(sessionID),
		TotalConnections: c.registry.Count(),
	}, nil
}
