// Package session remembers the items added recently on this machine so the
// client can offer to print their labels. A session lives for 24 hours after
// the last addition and is cleared lazily on the next read.
//
// Storage problems never reach the caller: they are logged and the store
// behaves as if there were no session.
package session

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Key names the persisted session record.
const Key = "freezer_add_session"

// TTL is how long a session survives after its last update.
const TTL = 24 * time.Hour

// record is the persisted form. Timestamp is Unix milliseconds.
type record struct {
	ItemIDs   []int64 `json:"itemIds"`
	Timestamp int64   `json:"timestamp"`
}

// backend stores the encoded record. load returns nil data when nothing is
// stored.
type backend interface {
	load() ([]byte, error)
	save(data []byte) error
	remove() error
	close() error
}

// Store tracks recently added item ids.
type Store struct {
	mu  sync.Mutex
	be  backend
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func newStore(be backend, opts []Option) *Store {
	s := &Store{be: be, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemory returns a store that keeps the session in memory only.
func NewMemory(opts ...Option) *Store {
	return newStore(&memory{}, opts)
}

// AddItem records id, creating a new session when none is active. The
// session timestamp is reset either way.
func (s *Store) AddItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.current()
	if rec == nil {
		rec = &record{ItemIDs: []int64{}}
	}
	if !slices.Contains(rec.ItemIDs, id) {
		rec.ItemIDs = append(rec.ItemIDs, id)
	}
	rec.Timestamp = s.now().UnixMilli()

	data, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("failed to encode session", "error", err)
		return
	}
	if err := s.be.save(data); err != nil {
		slog.Warn("failed to save session", "error", err)
	}
}

// Count returns the number of items in the active session.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.current(); rec != nil {
		return len(rec.ItemIDs)
	}
	return 0
}

// ItemIDs returns the ids in the active session, in insertion order.
func (s *Store) ItemIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.current(); rec != nil {
		return slices.Clone(rec.ItemIDs)
	}
	return []int64{}
}

// Clear discards the session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

// Close releases the underlying storage.
func (s *Store) Close() {
	if err := s.be.close(); err != nil {
		slog.Warn("failed to close session store", "error", err)
	}
}

// current loads the active session, deleting it if it has expired.
func (s *Store) current() *record {
	data, err := s.be.load()
	if err != nil {
		slog.Warn("failed to read session", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("discarding unreadable session", "error", err)
		s.clear()
		return nil
	}

	if s.now().UnixMilli()-rec.Timestamp > TTL.Milliseconds() {
		s.clear()
		return nil
	}
	return &rec
}

func (s *Store) clear() {
	if err := s.be.remove(); err != nil {
		slog.Warn("failed to clear session", "error", err)
	}
}

type memory struct {
	data []byte
}

func (m *memory) load() ([]byte, error)  { return m.data, nil }
func (m *memory) save(data []byte) error { m.data = slices.Clone(data); return nil }
func (m *memory) remove() error          { m.data = nil; return nil }
func (m *memory) close() error           { return nil }
