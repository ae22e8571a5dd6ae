package persistence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// Key layout. Batches are keyed by a big-endian sequence so iteration order
// is commit order; telemetry and events get their own prefixes for scans.
var (
	batchPrefix     = []byte("batch/")
	batchUpper      = []byte("batch0")
	telemetryPrefix = []byte("telemetry/")
	eventPrefix     = []byte("event/")
)

// PebbleJournal appends committed batches to a local PebbleDB. Each Commit
// is a single synced pebble batch.
type PebbleJournal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

var _ repositories.Journal = (*PebbleJournal)(nil)

// OpenPebbleJournal opens (or creates) the journal under dir
func OpenPebbleJournal(dir string) (*PebbleJournal, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	j, err := NewPebbleJournalWith(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// NewPebbleJournalWith builds a journal over an open database and resumes
// its sequence; Close closes the database.
func NewPebbleJournalWith(db *pebble.DB) (*PebbleJournal, error) {
	j := &PebbleJournal{db: db}
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: batchPrefix, UpperBound: batchUpper})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()
	if it.Last() {
		j.seq = binary.BigEndian.Uint64(it.Key()[len(batchPrefix):])
	}
	return j, it.Error()
}

func batchKey(seq uint64) []byte {
	k := make([]byte, len(batchPrefix)+8)
	copy(k, batchPrefix)
	binary.BigEndian.PutUint64(k[len(batchPrefix):], seq)
	return k
}

func (j *PebbleJournal) Commit(ctx context.Context, batch *repositories.JournalBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	seq := j.seq + 1
	rec := toRecord(seq, batch)
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", seq, err)
	}

	wb := j.db.NewBatch()
	defer wb.Close()
	if err := wb.Set(batchKey(seq), value, nil); err != nil {
		return err
	}
	for i, t := range rec.Telemetry {
		v, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode telemetry: %w", err)
		}
		k := fmt.Sprintf("%s%s/%s/%020d/%03d", telemetryPrefix, t.RunID, t.LineID, seq, i)
		if err := wb.Set([]byte(k), v, nil); err != nil {
			return err
		}
	}
	for _, e := range rec.Events {
		v, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		k := fmt.Sprintf("%s%020d/%s", eventPrefix, seq, e.ID)
		if err := wb.Set([]byte(k), v, nil); err != nil {
			return err
		}
	}
	if err := wb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit batch %d: %w", seq, err)
	}
	j.seq = seq
	return nil
}

// Replay calls fn with every committed batch in commit order
func (j *PebbleJournal) Replay(fn func(batch *repositories.JournalBatch) error) error {
	it, err := j.db.NewIter(&pebble.IterOptions{LowerBound: batchPrefix, UpperBound: batchUpper})
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		var rec batchRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return fmt.Errorf("decode batch: %w", err)
		}
		if err := fn(rec.toBatch()); err != nil {
			return err
		}
	}
	return it.Error()
}

// Telemetry returns the journaled telemetry of one line in a run, oldest first
func (j *PebbleJournal) Telemetry(runID string, lineID entities.LineID) ([]*entities.ProductionRealtime, error) {
	lower := []byte(fmt.Sprintf("%s%s/%s/", telemetryPrefix, runID, lineID))
	upper := append(append([]byte(nil), lower[:len(lower)-1]...), '0')
	it, err := j.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()
	var out []*entities.ProductionRealtime
	for it.First(); it.Valid(); it.Next() {
		var t telemetryRecord
		if err := json.Unmarshal(it.Value(), &t); err != nil {
			return nil, fmt.Errorf("decode telemetry: %w", err)
		}
		out = append(out, t.toEntity())
	}
	return out, it.Error()
}

func (j *PebbleJournal) Close() error { return j.db.Close() }
