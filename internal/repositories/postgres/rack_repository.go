package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rack-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RackRepository struct {
	db *gorm.DB
}

func NewRackRepository(db *gorm.DB) *RackRepository {
	return &RackRepository{db: db}
}

// Upsert creates the rack or updates its name and owner.
func (r *RackRepository) Upsert(ctx context.Context, rack *models.Rack) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "owner_id", "updated_at"}),
	}).Create(rack).Error
	if err != nil {
		return fmt.Errorf("failed to upsert rack: %w", err)
	}
	return nil
}

// FindByID returns nil, nil when the rack does not exist.
func (r *RackRepository) FindByID(ctx context.Context, rackID string) (*models.Rack, error) {
	var rack models.Rack
	err := r.db.WithContext(ctx).Where("id = ?", rackID).First(&rack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find rack: %w", err)
	}
	return &rack, nil
}

// UpdateStatus records the reported status and last-seen time.
func (r *RackRepository) UpdateStatus(ctx context.Context, rackID, status string, seenAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Rack{}).
		Where("id = ?", rackID).
		Updates(map[string]interface{}{"status": status, "last_seen_at": seenAt})
	if result.Error != nil {
		return fmt.Errorf("failed to update rack status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
