package postgres

import (
	"context"
	"errors"
	"fmt"

	"rack-service/internal/models"

	"gorm.io/gorm"
)

type ReadingRepository struct {
	db *gorm.DB
}

func NewReadingRepository(db *gorm.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

func (r *ReadingRepository) Create(ctx context.Context, reading *models.SensorReading) error {
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("failed to store reading: %w", err)
	}
	return nil
}

// Latest returns the most recent reading for a rack, or nil, nil if it has none.
func (r *ReadingRepository) Latest(ctx context.Context, rackID string) (*models.SensorReading, error) {
	var reading models.SensorReading
	err := r.db.WithContext(ctx).
		Where("rack_id = ?", rackID).
		Order("recorded_at DESC").
		First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest reading: %w", err)
	}
	return &reading, nil
}
