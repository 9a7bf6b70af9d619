package services

import (
	"context"
	"fmt"
	"log/slog"

	"rack-service/internal/models"
)

type ReadingStore interface {
	Create(ctx context.Context, reading *models.SensorReading) error
	Latest(ctx context.Context, rackID string) (*models.SensorReading, error)
}

type ReadingCache interface {
	CacheLatestReading(ctx context.Context, reading *models.SensorReading) error
	GetLatestReading(ctx context.Context, rackID string) (*models.SensorReading, error)
}

// ReadingService persists readings and serves the latest one per rack,
// reading through the cache to the store. The cache is optional.
type ReadingService struct {
	store ReadingStore
	cache ReadingCache
}

func NewReadingService(store ReadingStore, cache ReadingCache) *ReadingService {
	return &ReadingService{store: store, cache: cache}
}

func (s *ReadingService) Record(ctx context.Context, reading *models.SensorReading) error {
	if err := s.store.Create(ctx, reading); err != nil {
		return err
	}
	s.warm(ctx, reading)
	return nil
}

// Latest returns nil, nil when the rack has not reported yet.
func (s *ReadingService) Latest(ctx context.Context, rackID string) (*models.SensorReading, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLatestReading(ctx, rackID)
		if err != nil {
			slog.Warn("Latest reading cache lookup failed", "rackID", rackID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	reading, err := s.store.Latest(ctx, rackID)
	if err != nil {
		return nil, fmt.Errorf("latest reading for rack %s: %w", rackID, err)
	}
	if reading != nil {
		s.warm(ctx, reading)
	}
	return reading, nil
}

func (s *ReadingService) warm(ctx context.Context, reading *models.SensorReading) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheLatestReading(ctx, reading); err != nil {
		slog.Warn("Failed to cache latest reading", "rackID", reading.RackID, "error", err)
	}
}
