package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"rack-service/internal/database"
	"rack-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB connects to TEST_DATABASE_URL and skips when it is not set.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres repository tests")
	}
	db, err := database.NewPostgresConnection(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestUserRepositoryFindByExternalID(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	external := "ext-" + uuid.NewString()
	user := &models.User{ExternalAuthID: external, Email: external + "@example.com"}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByExternalID(ctx, external)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := repo.FindByExternalID(ctx, "ext-"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRackRepositoryOwnershipAndStatus(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	racks := NewRackRepository(db)
	ctx := context.Background()

	owner := &models.User{ExternalAuthID: "ext-" + uuid.NewString(), Email: "owner@example.com"}
	require.NoError(t, users.Create(ctx, owner))

	rackID := uuid.NewString()
	require.NoError(t, racks.Upsert(ctx, &models.Rack{ID: rackID, Name: "Kitchen", OwnerID: owner.ID}))

	rack, err := racks.FindByID(ctx, rackID)
	require.NoError(t, err)
	require.NotNil(t, rack)
	assert.True(t, rack.OwnedBy(owner.ID))

	seen := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, racks.UpdateStatus(ctx, rackID, models.RackStatusOnline, seen))
	rack, err = racks.FindByID(ctx, rackID)
	require.NoError(t, err)
	assert.Equal(t, models.RackStatusOnline, rack.Status)

	assert.ErrorIs(t, racks.UpdateStatus(ctx, uuid.NewString(), models.RackStatusOnline, seen), gorm.ErrRecordNotFound)

	none, err := racks.FindByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReadingRepositoryLatest(t *testing.T) {
	db := openTestDB(t)
	readings := NewReadingRepository(db)
	ctx := context.Background()
	rackID := uuid.NewString()

	latest, err := readings.Latest(ctx, rackID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	older, newer := 20.0, 23.5
	now := time.Now().UTC()
	require.NoError(t, readings.Create(ctx, &models.SensorReading{RackID: rackID, Temperature: &older, RecordedAt: now.Add(-time.Minute)}))
	require.NoError(t, readings.Create(ctx, &models.SensorReading{RackID: rackID, Temperature: &newer, RecordedAt: now}))

	latest, err = readings.Latest(ctx, rackID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 23.5, *latest.Temperature)
}
