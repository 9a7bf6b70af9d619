package storage

import (
	"encoding/json"
	"testing"
	"time"

	"rack-service/internal/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 2, 9, 23, 30, 0, 15, time.FixedZone("CET", 3600))
	ev := ingest.Event{DeviceKey: "aa:bb", Topic: "racks/aa:bb/sensors", ReceivedAt: at}

	assert.Equal(t, "raw/rack-1/2024/02/09/1707517800000000015-sensors.json", ObjectName("rack-1", ev))
}

func TestEncodeEvent(t *testing.T) {
	at := time.Date(2024, 2, 9, 22, 30, 0, 0, time.UTC)

	body, err := encodeEvent("rack-1", ingest.Event{DeviceKey: "aa:bb", Topic: "status", Payload: []byte(`{"status":"online"}`), ReceivedAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rackId":"rack-1","deviceKey":"aa:bb","topic":"status","receivedAt":"2024-02-09T22:30:00Z","payload":{"status":"online"}}`, string(body))

	body, err = encodeEvent("rack-1", ingest.Event{Topic: "alerts", Payload: []byte("not json"), ReceivedAt: at})
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "not json", decoded["payload"])
}
