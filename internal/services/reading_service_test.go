package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rack-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	latest  map[string]*models.SensorReading
	err     error
	lookups int
	creates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{latest: make(map[string]*models.SensorReading)}
}

func (f *fakeStore) Create(ctx context.Context, reading *models.SensorReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.creates++
	f.latest[reading.RackID] = reading
	return nil
}

func (f *fakeStore) Latest(ctx context.Context, rackID string) (*models.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.latest[rackID], nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*models.SensorReading
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.SensorReading)}
}

func (f *fakeCache) CacheLatestReading(ctx context.Context, reading *models.SensorReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[reading.RackID] = reading
	return nil
}

func (f *fakeCache) GetLatestReading(ctx context.Context, rackID string) (*models.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[rackID], nil
}

func reading(rackID string, temp float64) *models.SensorReading {
	return &models.SensorReading{RackID: rackID, Temperature: &temp, RecordedAt: time.Now().UTC()}
}

func TestReadingServiceRecordWarmsCache(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	svc := NewReadingService(store, cache)

	require.NoError(t, svc.Record(context.Background(), reading("R1", 22)))

	assert.Equal(t, 1, store.creates)
	assert.NotNil(t, cache.entries["R1"])
}

func TestReadingServiceLatestPrefersCache(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	cache.entries["R1"] = reading("R1", 19)
	svc := NewReadingService(store, cache)

	got, err := svc.Latest(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, 19.0, *got.Temperature)
	assert.Equal(t, 0, store.lookups)
}

func TestReadingServiceLatestFallsBackToStore(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	store.latest["R1"] = reading("R1", 25)
	cache.getErr = errors.New("redis down")
	svc := NewReadingService(store, cache)

	got, err := svc.Latest(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, *got.Temperature)
	assert.Equal(t, 1, store.lookups)
}

func TestReadingServiceLatestNoneYet(t *testing.T) {
	svc := NewReadingService(newFakeStore(), nil)

	got, err := svc.Latest(context.Background(), "R9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadingServiceLatestStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")
	svc := NewReadingService(store, newFakeCache())

	_, err := svc.Latest(context.Background(), "R1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R1")
}
