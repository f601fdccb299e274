package memory

import (
	"context"
	"sync"

	audit "istr/pkg/platform/audit"
)

// DefaultCapacity bounds the store when no capacity is given.
const DefaultCapacity = 10_000

// InMemoryStore keeps the most recent capacity events in arrival order; the
// oldest event is overwritten first.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	next     int // slot the next event is written to once the ring is full
	capacity int
}

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{capacity: capacity}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events, s.next = nil, 0
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) < s.capacity {
		s.events = append(s.events, event)
		return nil
	}
	s.events[s.next] = event
	s.next = (s.next + 1) % s.capacity
	return nil
}

// Len is the number of events currently retained.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// ordered returns the retained events oldest first. Callers hold the lock.
func (s *InMemoryStore) ordered() []audit.Event {
	out := make([]audit.Event, 0, len(s.events))
	out = append(out, s.events[s.next:]...)
	return append(out, s.events[:s.next]...)
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.ordered() {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns the last limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.ordered()
	return all[max(len(all)-limit, 0):], nil
}
