package subscriber

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logx "vacancywatch/pkg/logx"
)

// ErrNotRegistered is returned for operations on a user id that has never
// gone through Register.
var ErrNotRegistered = errors.New("subscriber not registered")

// Store owns the subscriber map and its durable JSON mirror.
//
// All mutations run under one mutex for the whole read-modify-write-persist
// sequence, so a profile edit can never race a notification-handle update
// into a lost write. The in-memory map is the source of truth: a failed disk
// write is reported to the caller but the mutation stands for the rest of
// the process lifetime.
type Store struct {
	path string
	log  logx.Logger

	mu sync.Mutex
	m  map[string]Subscriber
}

func NewStore(path string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{path: path, log: log, m: map[string]Subscriber{}}
}

// Path reports the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the durable store. A missing or malformed file is not fatal:
// the store starts empty and the condition is logged.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("subscriber store not found; starting empty", logx.String("path", s.path))
		} else {
			s.log.Warn("subscriber store unreadable; starting empty", logx.String("path", s.path), logx.Err(err))
		}
		s.m = map[string]Subscriber{}
		return
	}

	var m map[string]Subscriber
	if err := json.Unmarshal(b, &m); err != nil {
		s.log.Warn("subscriber store malformed; starting empty", logx.String("path", s.path), logx.Err(err))
		s.m = map[string]Subscriber{}
		return
	}
	if m == nil {
		m = map[string]Subscriber{}
	}
	s.m = m
	s.log.Info("subscriber store loaded", logx.Int("subscribers", len(m)))
}

// Get is a pure lookup.
func (s *Store) Get(id string) (Subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.m[id]
	return sub, ok
}

// Put inserts or replaces the entry, then rewrites the whole durable store.
// On write failure the in-memory mutation stands and the error is returned.
func (s *Store) Put(id string, sub Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = sub
	return s.persistLocked()
}

// Update applies fn to a copy of the subscriber and writes it back, all under
// the store lock. This is the only mutation path handlers and the engine use.
func (s *Store) Update(id string, fn func(*Subscriber)) (Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.m[id]
	if !ok {
		return Subscriber{}, ErrNotRegistered
	}
	fn(&sub)
	s.m[id] = sub
	return sub, s.persistLocked()
}

// Register creates the subscriber if absent. Repeat registration is a no-op
// status query: the existing record is returned untouched.
func (s *Store) Register(id string, userID, chatID int64) (sub Subscriber, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.m[id]; ok {
		return existing, false, nil
	}

	sub = Subscriber{
		UserID:   userID,
		ChatID:   chatID,
		Username: RandomUsername(),
		Active:   false,
	}
	s.m[id] = sub
	return sub, true, s.persistLocked()
}

// Snapshot returns all entries as (id, record) pairs for fan-out iteration.
func (s *Store) Snapshot() map[string]Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Subscriber, len(s.m))
	for id, sub := range s.m {
		out[id] = sub
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// persistLocked rewrites the whole store file. Callers hold s.mu.
func (s *Store) persistLocked() error {
	b, err := json.MarshalIndent(s.m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriber store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write subscriber store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace subscriber store: %w", err)
	}
	return nil
}
