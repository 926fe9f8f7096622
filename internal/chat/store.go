package chat

import (
	"iter"
	"sync"

	"github.com/plpchat/client/internal/protocol"
)

// Store is the append-only ordered log of message records. Records are
// immutable and keyed implicitly by arrival order; the store never mutates,
// reorders, or deletes - it accepts unbounded growth for the session
// lifetime.
//
// The store is goroutine-safe: the event-delivery path appends while the
// rendering shell iterates projections concurrently.
type Store struct {
	mu      sync.RWMutex
	records []protocol.Message
}

// NewStore creates an empty message store.
func NewStore() *Store {
	return &Store{}
}

// Append adds one record to the end of the log. No deduplication is
// performed; the relay's echo discipline guarantees each record arrives
// exactly once per connection.
func (s *Store) Append(record protocol.Message) {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
}

// Len returns the number of records in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	n := len(s.records)
	s.mu.RUnlock()
	return n
}

// Project returns a lazy, restartable sequence of the records matching the
// predicate, in arrival order. Each ranging of the sequence observes the log
// as of that moment; already-delivered records never move because the log is
// append-only.
func (s *Store) Project(pred func(protocol.Message) bool) iter.Seq[protocol.Message] {
	return func(yield func(protocol.Message) bool) {
		s.mu.RLock()
		snapshot := s.records
		s.mu.RUnlock()

		for _, record := range snapshot {
			if !pred(record) {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

// All returns a copy of the full log in arrival order.
func (s *Store) All() []protocol.Message {
	s.mu.RLock()
	out := make([]protocol.Message, len(s.records))
	copy(out, s.records)
	s.mu.RUnlock()
	return out
}
