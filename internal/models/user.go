package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// User is a provisioned account. ExternalAuthID is the subject issued by the identity authority.
type User struct {
	gorm.Model
	ExternalAuthID string `gorm:"uniqueIndex;not null" json:"externalAuthId"`
	Email          string `gorm:"index;not null" json:"email"`
	DisplayName    string `json:"displayName,omitempty"`

	Racks []Rack `gorm:"foreignKey:OwnerID" json:"racks,omitempty"`
}

/** -------------------- DTOs -------------------- */
type UserResponse struct {
	ID             uint      `json:"id"`
	ExternalAuthID string    `json:"externalAuthId"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"displayName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
