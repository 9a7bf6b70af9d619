package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Realtime.RequestTimeout)
	assert.Equal(t, 256, cfg.Realtime.SendBufferSize)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Empty(t, cfg.Identity.Operators)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REALTIME_REQUEST_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://racks.example.com, http://localhost:5173 ,")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("MINIO_ENABLED", "true")
	t.Setenv("MINIO_BUCKET", "raw-events")
	t.Setenv("DIAGNOSTICS_OPERATORS", "auth0|ops,auth0|oncall")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Realtime.RequestTimeout)
	assert.Equal(t, []string{"https://racks.example.com", "http://localhost:5173"}, cfg.Realtime.AllowedOrigins)
	assert.True(t, cfg.Kafka.Enabled)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "raw-events", cfg.Archive.Bucket)
	assert.Equal(t, "localhost:9000", cfg.Archive.Endpoint)
	assert.Equal(t, []string{"auth0|ops", "auth0|oncall"}, cfg.Identity.Operators)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "racks", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=racks port=5432 sslmode=disable", db.DSN())

	db.URL = "postgres://u:p@db:5432/racks"
	assert.Equal(t, "postgres://u:p@db:5432/racks", db.DSN())
}
