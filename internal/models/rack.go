package models

import "time"

// Rack status values reported by the controller.
const (
	RackStatusOnline  = "online"
	RackStatusOffline = "offline"
	RackStatusUnknown = "unknown"
)

// Rack is a plant-rack controller. ID is the stable device key (hardware address).
type Rack struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	Name       string     `json:"name"`
	OwnerID    uint       `gorm:"index;not null" json:"ownerId"`
	Status     string     `gorm:"size:32;default:unknown" json:"status"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// OwnedBy reports whether the rack belongs to the given internal user.
func (r *Rack) OwnedBy(userID uint) bool {
	return r != nil && userID != 0 && r.OwnerID == userID
}
