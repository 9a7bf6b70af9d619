package ingest

import (
	"strings"
	"time"
)

// Topic kinds a device publishes on.
const (
	TopicSensors = "sensors"
	TopicStatus  = "status"
	TopicAlerts  = "alerts"
)

// Event is one device-originated message taken off the transport.
type Event struct {
	DeviceKey  string
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Kind returns the last segment of the topic, so "racks/ab12/sensors",
// "racks.ab12.sensors" and "sensors" all route the same way.
func (e Event) Kind() string {
	topic := strings.TrimSpace(e.Topic)
	if i := strings.LastIndexAny(topic, "/."); i >= 0 {
		topic = topic[i+1:]
	}
	return strings.ToLower(topic)
}
