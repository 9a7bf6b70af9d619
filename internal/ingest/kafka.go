package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// TopicHeader carries the device topic (for example "racks/ab12/sensors")
// on each kafka message.
const TopicHeader = "topic"

// Handler consumes one device event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource reads device events from a kafka consumer group.
type KafkaSource struct {
	reader  messageReader
	handler Handler
	backoff time.Duration
}

func NewKafkaSource(brokers []string, topic, groupID string, handler Handler) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})
	return newKafkaSource(reader, handler)
}

func newKafkaSource(reader messageReader, handler Handler) *KafkaSource {
	return &KafkaSource{reader: reader, handler: handler, backoff: time.Second}
}

// EventFromMessage maps a kafka message to an Event. The key is the device
// key. Without a topic header the last segment of the kafka topic is used.
func EventFromMessage(msg kafka.Message) Event {
	ev := Event{
		DeviceKey:  string(msg.Key),
		Topic:      msg.Topic,
		Payload:    msg.Value,
		ReceivedAt: msg.Time,
	}
	for _, h := range msg.Headers {
		if h.Key == TopicHeader && len(h.Value) > 0 {
			ev.Topic = string(h.Value)
			break
		}
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	return ev
}

// Run consumes until ctx is cancelled. Messages are committed after handling
// whether or not the handler succeeded.
func (s *KafkaSource) Run(ctx context.Context) error {
	slog.Info("Kafka source started")
	defer slog.Info("Kafka source stopped")

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Error("Failed to fetch kafka message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.backoff):
			}
			continue
		}

		ev := EventFromMessage(msg)
		if err := s.handler.Handle(ctx, ev); err != nil {
			slog.Warn("Device event not applied",
				"deviceKey", ev.DeviceKey,
				"topic", ev.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to commit kafka message", "offset", msg.Offset, "error", err)
		}
	}
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
