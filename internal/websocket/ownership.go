package websocket

import (
	"context"
	"log/slog"

	"rack-service/internal/models"
)

// RackDirectory looks up rack ownership. FindByID returns nil, nil when the
// rack does not exist.
type RackDirectory interface {
	FindByID(ctx context.Context, rackID string) (*models.Rack, error)
}

// OwnershipGate decides whether a user may watch a rack's stream.
type OwnershipGate struct {
	racks RackDirectory
}

func NewOwnershipGate(racks RackDirectory) *OwnershipGate {
	return &OwnershipGate{racks: racks}
}

// VerifyOwnership fails with a NotFound error both when the rack is missing
// and when someone else owns it.
func (g *OwnershipGate) VerifyOwnership(ctx context.Context, rackID string, userID uint) error {
	rack, err := g.racks.FindByID(ctx, rackID)
	if err != nil {
		slog.Error("Rack ownership lookup failed", "rackID", rackID, "userID", userID, "error", err)
		return Internal(err)
	}
	if !rack.OwnedBy(userID) {
		slog.Debug("Rack access denied", "rackID", rackID, "userID", userID)
		return NotFound(reasonRackNotFound)
	}
	return nil
}
