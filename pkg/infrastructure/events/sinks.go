package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// publishTimeout bounds one delivery attempt of an external sink
const publishTimeout = 5 * time.Second

// Recorder buffers the events of one unit of work. They reach a Sink only
// once the unit of work has committed. Not safe for concurrent use.
type Recorder struct {
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record buffers the event and returns it
func (r *Recorder) Record(e Event) Event {
	r.events = append(r.events, e)
	return e
}

// Events returns the buffered events in record order
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Len() int {
	return len(r.events)
}

// Flush appends every buffered event to the sink and empties the buffer
func (r *Recorder) Flush(sink Sink) {
	for _, e := range r.events {
		sink.Append(e)
	}
	r.events = nil
}

// Discard drops the buffered events
func (r *Recorder) Discard() {
	r.events = nil
}

// MultiSink fans out events to multiple underlying sinks.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Append(e Event) {
	for _, s := range m.sinks {
		s.Append(e)
	}
}

// asyncSink decouples Append from external I/O with a bounded queue drained
// by one worker. A full queue drops the event.
type asyncSink struct {
	name    string
	queue   chan Event
	publish func(ctx context.Context, e Event) error
	log     *logging.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

func newAsyncSink(name string, buffer int, log *logging.Logger, publish func(ctx context.Context, e Event) error) *asyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	a := &asyncSink{
		name:    name,
		queue:   make(chan Event, buffer),
		publish: publish,
		log:     log,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *asyncSink) run() {
	defer a.wg.Done()
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := a.publish(ctx, e)
		cancel()
		if err != nil {
			a.failed.Add(1)
			a.log.Error("event_publish", err, logging.Fields{"sink": a.name, "event_type": e.Type(), "event_id": e.ID()})
		}
	}
}

func (a *asyncSink) Append(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.queue <- e:
	default:
		a.dropped.Add(1)
		a.log.Warn("event_dropped", "event queue full", logging.Fields{"sink": a.name, "event_type": e.Type()})
	}
}

// Dropped is the number of events rejected because the queue was full or closed
func (a *asyncSink) Dropped() int64 { return a.dropped.Load() }

// Failed is the number of events whose delivery returned an error
func (a *asyncSink) Failed() int64 { return a.failed.Load() }

// close stops accepting events and waits for the queue to drain
func (a *asyncSink) close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	a.wg.Wait()
}
