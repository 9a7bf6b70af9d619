package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rack-service/internal/models"
)

var errNoMetrics = errors.New("reading must include at least one metric")

var readingMetrics = []string{"temperature", "humidity", "waterLevel", "lightIntensity", "ph", "ec"}

var allowedReadingKeys = map[string]struct{}{
	"timestamp":      {},
	"temperature":    {},
	"humidity":       {},
	"waterLevel":     {},
	"lightIntensity": {},
	"ph":             {},
	"ec":             {},
}

// Alert is a device-raised notification.
type Alert struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message"`
}

func decodeObject(raw []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return payload, nil
}

// DecodeReading parses a sensors payload. Missing metrics stay nil; a missing
// timestamp falls back to receivedAt.
func DecodeReading(raw []byte, rackID string, receivedAt time.Time) (*models.SensorReading, error) {
	payload, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	for key := range payload {
		if _, allowed := allowedReadingKeys[key]; !allowed {
			return nil, fmt.Errorf("unknown field: %s", key)
		}
	}

	reading := &models.SensorReading{RackID: rackID, RecordedAt: receivedAt.UTC()}
	targets := map[string]**float64{
		"temperature":    &reading.Temperature,
		"humidity":       &reading.Humidity,
		"waterLevel":     &reading.WaterLevel,
		"lightIntensity": &reading.LightIntensity,
		"ph":             &reading.PH,
		"ec":             &reading.EC,
	}

	found := 0
	for _, key := range readingMetrics {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		parsed, err := parseFloat(value)
		if err != nil {
			return nil, fmt.Errorf("invalid field %s: %w", key, err)
		}
		*targets[key] = &parsed
		found++
	}
	if found == 0 {
		return nil, errNoMetrics
	}

	if value, ok := payload["timestamp"]; ok && value != nil {
		ts, err := parseTimestamp(value)
		if err != nil {
			return nil, fmt.Errorf("invalid field timestamp: %w", err)
		}
		reading.RecordedAt = ts
	}

	return reading, nil
}

// DecodeStatus accepts either {"status":"online"} or a bare JSON string.
func DecodeStatus(raw []byte) (string, error) {
	var status string
	if err := json.Unmarshal(raw, &status); err != nil {
		var payload struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return "", err
		}
		status = payload.Status
	}

	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case models.RackStatusOnline, models.RackStatusOffline, models.RackStatusUnknown:
		return status, nil
	case "":
		return "", fmt.Errorf("status is required")
	default:
		return "", fmt.Errorf("unsupported status: %s", status)
	}
}

func DecodeAlert(raw []byte) (Alert, error) {
	var alert Alert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return Alert{}, err
	}
	alert.Message = strings.TrimSpace(alert.Message)
	if alert.Message == "" {
		return Alert{}, fmt.Errorf("message is required")
	}
	if alert.Kind == "" {
		alert.Kind = "device"
	}
	if alert.Severity == "" {
		alert.Severity = "info"
	}
	return alert, nil
}

func parseFloat(value any) (float64, error) {
	switch typed := value.(type) {
	case json.Number:
		return typed.Float64()
	case string:
		return strconv.ParseFloat(typed, 64)
	case float64:
		return typed, nil
	default:
		return 0, fmt.Errorf("unsupported number type %T", value)
	}
}

// parseTimestamp accepts RFC 3339 strings and unix seconds or milliseconds.
func parseTimestamp(value any) (time.Time, error) {
	switch typed := value.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, typed)
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return time.Time{}, err
		}
		if n <= 0 {
			return time.Time{}, fmt.Errorf("timestamp must be positive")
		}
		if n >= 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}
