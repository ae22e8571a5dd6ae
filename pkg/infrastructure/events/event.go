package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

type Event interface {
	ID() string
	Type() string
	StreamID() string
	Message() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// Sink accepts events for delivery. Append never blocks on I/O and never
// reports failure to the caller.
type Sink interface {
	Append(event Event)
}

type BaseEvent struct {
	EventID      string
	EventType    string
	Stream       string
	EventMessage string
	EventData    interface{}
	EventTime    time.Time
	EventVersion int
}

func (e BaseEvent) ID() string {
	return e.EventID
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Message() string {
	return e.EventMessage
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

// NewID returns a fresh event id of the form EVT-<32 hex chars>
func NewID() string {
	return "EVT-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func NewEvent(eventType, streamID, message string, data interface{}) Event {
	return BaseEvent{
		EventID:      NewID(),
		EventType:    eventType,
		Stream:       streamID,
		EventMessage: message,
		EventData:    data,
		EventTime:    time.Now().UTC(),
		EventVersion: 1,
	}
}

// envelope is the wire form shared by every external sink
type envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Stream    string          `json:"stream"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Encode renders an event as a JSON envelope
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e.Data())
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", e.Type(), err)
	}
	return json.Marshal(envelope{
		ID:        e.ID(),
		Type:      e.Type(),
		Stream:    e.StreamID(),
		Message:   e.Message(),
		Timestamp: e.Timestamp(),
		Version:   e.Version(),
		Data:      data,
	})
}

// ToJournal converts events into the journal's storage form
func ToJournal(evts []Event) ([]repositories.JournalEvent, error) {
	out := make([]repositories.JournalEvent, 0, len(evts))
	for _, e := range evts {
		payload, err := json.Marshal(e.Data())
		if err != nil {
			return nil, fmt.Errorf("marshal %s data: %w", e.Type(), err)
		}
		out = append(out, repositories.JournalEvent{
			ID:        e.ID(),
			Type:      e.Type(),
			StreamID:  e.StreamID(),
			Message:   e.Message(),
			Payload:   payload,
			Timestamp: e.Timestamp(),
		})
	}
	return out, nil
}
