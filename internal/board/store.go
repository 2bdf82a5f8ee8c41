package board

import (
	"sync"

	c "github.com/classpad/boardsync/internal/common"
)

// Scope tags a mutation as durable document state or live-only
// presence state.
type Scope string

// Source tags a mutation as locally authored or received from a peer.
// Only user-sourced mutations go back out on the wire.
type Source string

const (
	ScopeDocument  Scope = "document"
	ScopeEphemeral Scope = "ephemeral"

	SourceUser   Source = "user"
	SourceRemote Source = "remote"
)

// Change describes one store mutation: the exact ids affected, split
// by whether they were created, replaced, or deleted.
type Change struct {
	Added   []string
	Updated []string
	Removed []string
	Scope   Scope
	Source  Source
}

// Listener receives store mutations synchronously, on the mutating
// goroutine, after the store lock is released.
type Listener func(Change)

// Store is the in-memory table of records for one board replica.
// Writes are last-write-wins by id; there is no merging of fields.
type Store struct {
	records   map[string]c.Record
	listeners []Listener

	mu sync.Mutex
}

func NewStore() *Store {
	return &Store{records: make(map[string]c.Record)}
}

// Listen registers a mutation listener. Not safe to call concurrently
// with mutations.
func (s *Store) Listen(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

// Put upserts records by id. The whole record replaces any prior
// value for that id. Listeners are notified once per scope present in
// the batch.
func (s *Store) Put(records []c.Record, source Source) {
	if len(records) == 0 {
		return
	}

	changes := map[Scope]*Change{}

	s.mu.Lock()
	for _, r := range records {
		scope := ScopeDocument
		if r.Ephemeral() {
			scope = ScopeEphemeral
		}
		ch := changes[scope]
		if ch == nil {
			ch = &Change{Scope: scope, Source: source}
			changes[scope] = ch
		}

		if _, ok := s.records[r.ID]; ok {
			ch.Updated = append(ch.Updated, r.ID)
		} else {
			ch.Added = append(ch.Added, r.ID)
		}
		s.records[r.ID] = r.Clone()
	}
	s.mu.Unlock()

	s.notify(changes)
}

// Remove deletes records by id. Unknown ids are a no-op, not an
// error, so a delete can race a concurrent delete harmlessly.
func (s *Store) Remove(ids []string, source Source) {
	if len(ids) == 0 {
		return
	}

	changes := map[Scope]*Change{}

	s.mu.Lock()
	for _, id := range ids {
		r, ok := s.records[id]
		if !ok {
			continue
		}
		scope := ScopeDocument
		if r.Ephemeral() {
			scope = ScopeEphemeral
		}
		ch := changes[scope]
		if ch == nil {
			ch = &Change{Scope: scope, Source: source}
			changes[scope] = ch
		}
		ch.Removed = append(ch.Removed, id)
		delete(s.records, id)
	}
	s.mu.Unlock()

	s.notify(changes)
}

func (s *Store) notify(changes map[Scope]*Change) {
	for _, ch := range changes {
		for _, fn := range s.listeners {
			fn(*ch)
		}
	}
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (c.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return c.Record{}, false
	}
	return r.Clone(), true
}

// Snapshot returns a copy of every record, presence included.
func (s *Store) Snapshot() []c.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]c.Record, 0, len(s.records))
	for _, r := range s.records {
		res = append(res, r.Clone())
	}
	return res
}

// DocumentSnapshot returns a copy of the durable document: every
// record except ephemeral presence. This is what a newly joined peer
// receives as init.
func (s *Store) DocumentSnapshot() []c.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]c.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Ephemeral() {
			continue
		}
		res = append(res, r.Clone())
	}
	return res
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
