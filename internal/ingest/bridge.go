package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rack-service/internal/models"
)

const defaultArchiveTimeout = 5 * time.Second

var (
	ErrUnknownTopic  = errors.New("unknown topic")
	ErrUnknownDevice = errors.New("unknown device")
)

// EventBroadcaster pushes rack events to live sessions.
type EventBroadcaster interface {
	BroadcastSensorData(rackID string, data interface{})
	BroadcastDeviceStatus(rackID string, status interface{})
	BroadcastNotification(rackID string, notification interface{})
	BroadcastAutomationEvent(rackID string, event interface{})
}

// RackStore resolves device keys and records status changes. FindByID
// returns nil, nil for unknown racks.
type RackStore interface {
	FindByID(ctx context.Context, rackID string) (*models.Rack, error)
	UpdateStatus(ctx context.Context, rackID, status string, seenAt time.Time) error
}

type ReadingRecorder interface {
	Record(ctx context.Context, reading *models.SensorReading) error
}

// Archiver keeps a copy of raw device payloads.
type Archiver interface {
	Archive(ctx context.Context, rackID string, ev Event) error
}

// Bridge turns device events into persisted state and live broadcasts.
type Bridge struct {
	racks       RackStore
	readings    ReadingRecorder
	broadcaster EventBroadcaster
	engine      Engine

	archiver       Archiver
	archiveTimeout time.Duration
}

// NewBridge creates a bridge. engine may be nil.
func NewBridge(racks RackStore, readings ReadingRecorder, broadcaster EventBroadcaster, engine Engine) *Bridge {
	return &Bridge{
		racks:       racks,
		readings:    readings,
		broadcaster: broadcaster,
		engine:      engine,

		archiveTimeout: defaultArchiveTimeout,
	}
}

func (b *Bridge) SetArchiver(a Archiver) {
	b.archiver = a
}

// Handle processes one event. Events from unknown devices or on unknown
// topics are rejected with ErrUnknownDevice and ErrUnknownTopic.
func (b *Bridge) Handle(ctx context.Context, ev Event) error {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}

	kind := ev.Kind()
	if kind != TopicSensors && kind != TopicStatus && kind != TopicAlerts {
		slog.Warn("Dropping event on unknown topic", "deviceKey", ev.DeviceKey, "topic", ev.Topic)
		return fmt.Errorf("%w: %s", ErrUnknownTopic, ev.Topic)
	}

	rack, err := b.racks.FindByID(ctx, ev.DeviceKey)
	if err != nil {
		return fmt.Errorf("lookup rack %s: %w", ev.DeviceKey, err)
	}
	if rack == nil {
		slog.Warn("Dropping event from unknown device", "deviceKey", ev.DeviceKey, "topic", ev.Topic)
		return fmt.Errorf("%w: %s", ErrUnknownDevice, ev.DeviceKey)
	}

	// Runs after routing; the archive never delays a broadcast.
	defer b.archive(ctx, rack.ID, ev)

	switch kind {
	case TopicSensors:
		return b.handleReading(ctx, rack, ev)
	case TopicStatus:
		return b.handleStatus(ctx, rack, ev)
	default:
		return b.handleAlert(rack, ev)
	}
}

func (b *Bridge) archive(ctx context.Context, rackID string, ev Event) {
	if b.archiver == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.archiveTimeout)
	defer cancel()

	if err := b.archiver.Archive(ctx, rackID, ev); err != nil {
		slog.Warn("Failed to archive device payload", "rackID", rackID, "topic", ev.Topic, "error", err)
	}
}

func (b *Bridge) handleReading(ctx context.Context, rack *models.Rack, ev Event) error {
	reading, err := DecodeReading(ev.Payload, rack.ID, ev.ReceivedAt)
	if err != nil {
		return fmt.Errorf("decode reading: %w", err)
	}

	if err := b.readings.Record(ctx, reading); err != nil {
		return fmt.Errorf("record reading: %w", err)
	}

	b.broadcaster.BroadcastSensorData(rack.ID, reading)

	if b.engine == nil {
		return nil
	}
	actions, err := b.engine.Evaluate(ctx, rack.ID, reading)
	if err != nil {
		// The reading is already stored and pushed.
		slog.Error("Automation evaluation failed", "rackID", rack.ID, "error", err)
		return nil
	}
	for _, action := range actions {
		slog.Info("Automation action executed", "rackID", rack.ID, "rule", action.Rule, "action", action.Action)
		b.broadcaster.BroadcastAutomationEvent(rack.ID, action)
	}
	return nil
}

func (b *Bridge) handleStatus(ctx context.Context, rack *models.Rack, ev Event) error {
	status, err := DecodeStatus(ev.Payload)
	if err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	if err := b.racks.UpdateStatus(ctx, rack.ID, status, ev.ReceivedAt); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if status != rack.Status {
		slog.Info("Rack status changed", "rackID", rack.ID, "from", rack.Status, "to", status)
	}
	b.broadcaster.BroadcastDeviceStatus(rack.ID, status)
	return nil
}

func (b *Bridge) handleAlert(rack *models.Rack, ev Event) error {
	alert, err := DecodeAlert(ev.Payload)
	if err != nil {
		return fmt.Errorf("decode alert: %w", err)
	}

	b.broadcaster.BroadcastNotification(rack.ID, alert)
	return nil
}
