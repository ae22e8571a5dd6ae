package events

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

var (
	pebbleEventPrefix = []byte("evt/")
	pebbleEventUpper  = []byte("evt0")
)

// PebbleSink keeps a local, ordered event log in PebbleDB.
type PebbleSink struct {
	*asyncSink
	db *pebble.DB
}

// OpenPebbleSink opens (or creates) the event log under dir
func OpenPebbleSink(dir string, buffer int, log *logging.Logger) (*PebbleSink, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return NewPebbleSinkWith(db, buffer, log), nil
}

// NewPebbleSinkWith builds a sink over an open database; Close closes it.
func NewPebbleSinkWith(db *pebble.DB, buffer int, log *logging.Logger) *PebbleSink {
	s := &PebbleSink{db: db}
	s.asyncSink = newAsyncSink("pebble", buffer, log, s.publish)
	return s
}

func pebbleEventKey(e Event) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", pebbleEventPrefix, e.Timestamp().UnixNano(), e.ID()))
}

func (s *PebbleSink) publish(_ context.Context, e Event) error {
	b, err := Encode(e)
	if err != nil {
		return err
	}
	return s.db.Set(pebbleEventKey(e), b, pebble.NoSync)
}

// Replay calls fn with every stored envelope in timestamp order
func (s *PebbleSink) Replay(fn func(key string, envelope []byte) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: pebbleEventPrefix, UpperBound: pebbleEventUpper})
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := string(it.Key())
		v := append([]byte(nil), it.Value()...)
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return it.Error()
}

// Close drains queued events and closes the database
func (s *PebbleSink) Close() error {
	s.asyncSink.close()
	return s.db.Close()
}
