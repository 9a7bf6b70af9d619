package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventName is the name carried in the event field of every frame.
type EventName string

// Client to server
const (
	EventSubscribeToRack     EventName = "subscribeToRack"
	EventUnsubscribeFromRack EventName = "unsubscribeFromRack"
	EventGetStatus           EventName = "getStatus"
)

// Server to client
const (
	EventConnected       EventName = "connected"
	EventInitialData     EventName = "initialData"
	EventSubscribedAck   EventName = "subscribedAck"
	EventUnsubscribedAck EventName = "unsubscribedAck"
	EventStatusAck       EventName = "statusAck"
	EventError           EventName = "error"

	EventSensorData      EventName = "sensorData"
	EventDeviceStatus    EventName = "deviceStatus"
	EventNotification    EventName = "notification"
	EventAutomationEvent EventName = "automationEvent"
)

func (e EventName) String() string {
	return string(e)
}

// Message is one frame sent to a client.
type Message struct {
	Event EventName   `json:"event"`
	Data  interface{} `json:"data"`
}

// inboundMessage is one frame received from a client. Data is decoded by the
// handler for the event.
type inboundMessage struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RackRequest is the payload of subscribeToRack and unsubscribeFromRack.
type RackRequest struct {
	RackID string `json:"rackId"`
}

type RackPayload struct {
	RackID  string `json:"rackId"`
	Message string `json:"message"`
}

type InitialDataPayload struct {
	RackID string      `json:"rackId"`
	Data   interface{} `json:"data"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type ConnectedPayload struct {
	Message string `json:"message"`
	UserID  uint   `json:"userId"`
}

type StatusPayload struct {
	Connected        bool     `json:"connected"`
	ClientID         string   `json:"clientId"`
	SubscribedRacks  []string `json:"subscribedRacks"`
	TotalConnections int      `json:"totalConnections"`
}

func NewMessage(event EventName, data interface{}) *Message {
	return &Message{Event: event, Data: data}
}

func NewConnectedMessage(userID uint) *Message {
	return NewMessage(EventConnected, ConnectedPayload{
		Message: "Connected to rack updates",
		UserID:  userID,
	})
}

func NewErrorMessage(message, reason string) *Message {
	return NewMessage(EventError, ErrorPayload{Message: message, Error: reason})
}

func NewSubscribedAck(rackID string) *Message {
	return NewMessage(EventSubscribedAck, RackPayload{
		RackID:  rackID,
		Message: fmt.Sprintf("Subscribed to rack %s", rackID),
	})
}

func NewUnsubscribedAck(rackID string) *Message {
	return NewMessage(EventUnsubscribedAck, RackPayload{
		RackID:  rackID,
		Message: fmt.Sprintf("Unsubscribed from rack %s", rackID),
	})
}

// newRackEvent builds a push event tagged with the rack and generation time.
func newRackEvent(event EventName, rackID, field string, payload interface{}, at time.Time) *Message {
	return NewMessage(event, map[string]interface{}{
		"rackId":    rackID,
		field:       payload,
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	})
}
