package events

import (
	"sort"
	"sync"

	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// AllEventTypes subscribes a handler to every event type
const AllEventTypes = "*"

// InMemoryEventStore is the plant's event log. It keeps a bounded window of
// the newest events; positions and stream versions stay absolute after the
// oldest events are dropped.
type InMemoryEventStore struct {
	mu        sync.RWMutex
	log       *logging.Logger
	retention int

	window   []Event            // newest events, append order
	dropped  int                // events trimmed from the front of window
	streams  map[string][]Event // per-stream view of window
	versions map[string]int     // last version handed out per stream

	handlers map[string][]EventHandler
}

func NewInMemoryEventStore(log *logging.Logger) *InMemoryEventStore {
	if log == nil {
		log = logging.Discard()
	}
	return &InMemoryEventStore{
		log:      log,
		streams:  make(map[string][]Event),
		versions: make(map[string]int),
		handlers: make(map[string][]EventHandler),
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)
var _ Sink = (*InMemoryEventStore)(nil)

// SetRetention bounds how many events are kept. n <= 0 keeps everything.
func (s *InMemoryEventStore) SetRetention(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retention = n
	s.trimLocked()
}

// Append stores the event under its own stream
func (s *InMemoryEventStore) Append(event Event) {
	_ = s.AppendEvent(event.StreamID(), event)
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mu.Lock()
	s.versions[streamID]++
	stored := BaseEvent{
		EventID:      event.ID(),
		EventType:    event.Type(),
		Stream:       streamID,
		EventMessage: event.Message(),
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: s.versions[streamID],
	}
	s.window = append(s.window, stored)
	s.streams[streamID] = append(s.streams[streamID], stored)
	s.trimLocked()
	targets := s.handlersFor(stored.EventType)
	s.mu.Unlock()

	s.dispatch(stored, targets)
	return nil
}

func (s *InMemoryEventStore) trimLocked() {
	if s.retention <= 0 || len(s.window) <= s.retention {
		return
	}
	excess := len(s.window) - s.retention
	for _, e := range s.window[:excess] {
		// the oldest event overall is also the oldest in its stream
		id := e.StreamID()
		if rest := s.streams[id][1:]; len(rest) > 0 {
			s.streams[id] = rest
		} else {
			delete(s.streams, id)
		}
	}
	s.window = append([]Event(nil), s.window[excess:]...)
	s.dropped += excess
}

// ReadEvents returns the retained events of a stream with version >= fromVersion
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamID]
	start := sort.Search(len(stream), func(i int) bool {
		return stream[i].Version() >= fromVersion
	})
	return append([]Event{}, stream[start:]...), nil
}

// ReadAllEvents returns the retained events at or after an absolute position.
// Positions already trimmed read from the oldest retained event.
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := fromPosition - s.dropped
	if start < 0 {
		start = 0
	}
	if start >= len(s.window) {
		return []Event{}, nil
	}
	return append([]Event{}, s.window[start:]...), nil
}

// Position is the absolute position the next appended event will take
func (s *InMemoryEventStore) Position() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped + len(s.window)
}

// ReadByType returns the retained events of one type in append order
func (s *InMemoryEventStore) ReadByType(eventType string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.window {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns up to n of the newest events, newest first
func (s *InMemoryEventStore) Recent(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 0 || n > len(s.window) {
		n = len(s.window)
	}
	out := make([]Event, n)
	for i := range out {
		out[i] = s.window[len(s.window)-1-i]
	}
	return out
}

// Subscribe registers handler for each type; AllEventTypes matches any type
func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range eventTypes {
		s.handlers[t] = append(s.handlers[t], handler)
	}
	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, hs := range s.handlers {
		var kept []EventHandler
		for _, h := range hs {
			if h != handler {
				kept = append(kept, h)
			}
		}
		if len(kept) == 0 {
			delete(s.handlers, t)
		} else {
			s.handlers[t] = kept
		}
	}
	return nil
}

// handlersFor snapshots the handlers interested in eventType. Caller holds mu.
func (s *InMemoryEventStore) handlersFor(eventType string) []EventHandler {
	typed, wild := s.handlers[eventType], s.handlers[AllEventTypes]
	out := make([]EventHandler, 0, len(typed)+len(wild))
	out = append(out, typed...)
	return append(out, wild...)
}

// dispatch runs each handler on its own goroutine. Handler errors are logged.
func (s *InMemoryEventStore) dispatch(e Event, targets []EventHandler) {
	for _, h := range targets {
		if !h.CanHandle(e.Type()) {
			continue
		}
		go func(h EventHandler) {
			if err := h.Handle(e); err != nil {
				s.log.Error("event_handler", err, logging.Fields{"event_type": e.Type(), "event_id": e.ID()})
			}
		}(h)
	}
}
