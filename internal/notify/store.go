// Package notify keeps per-user notifications in memory. Nothing here is
// persisted; a restart starts every user with an empty list.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

const DefaultCapacity = 50

// Store is one user's notification list, newest first. Entries are unique
// by id.
type Store struct {
	mu       sync.RWMutex
	items    []models.Notification
	capacity int
	now      func() time.Time
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, now: time.Now}
}

// Add inserts n at the head and reports whether it was stored. An entry
// with the same id is left untouched. Missing ids and timestamps are
// filled in. The oldest entries are dropped past capacity; de-duplication
// only covers entries still held, so an evicted id can be added again.
func (s *Store) Add(n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	} else if s.indexOf(n.ID) >= 0 {
		return false
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}

	s.items = append(s.items, models.Notification{})
	copy(s.items[1:], s.items)
	s.items[0] = n

	if len(s.items) > s.capacity {
		s.items = s.items[:s.capacity]
	}
	return true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items[i].Read = true
	return true
}

// MarkAllRead returns how many entries changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed++
		}
	}
	return changed
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// List returns a copy, newest first.
func (s *Store) List() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Registry hands out one Store per user, created on first use.
type Registry struct {
	mu       sync.Mutex
	stores   map[uuid.UUID]*Store
	capacity int
}

func NewRegistry(capacity int) *Registry {
	return &Registry{stores: make(map[uuid.UUID]*Store), capacity: capacity}
}

func (r *Registry) For(userID uuid.UUID) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = NewStore(r.capacity)
		r.stores[userID] = s
	}
	return s
}

// Drop forgets a user's notifications, e.g. on logout.
func (r *Registry) Drop(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userID)
}
