package session

import (
	"sync"

	"github.com/sekkot/portal/internal/model"
)

type EventType int

const (
	EventSignedIn EventType = iota + 1
	EventSignedOut
	EventTokenRefreshed
	EventUserUpdated
)

func (t EventType) String() string {
	switch t {
	case EventSignedIn:
		return "SIGNED_IN"
	case EventSignedOut:
		return "SIGNED_OUT"
	case EventTokenRefreshed:
		return "TOKEN_REFRESHED"
	case EventUserUpdated:
		return "USER_UPDATED"
	default:
		return "UNKNOWN"
	}
}

// Event is one auth state change. User is nil for EventSignedOut.
type Event struct {
	Type    EventType
	Session *model.Session
	User    *model.User
}

// Subscription is a handle on the auth state stream.
type Subscription struct {
	once  sync.Once
	store *Store
	id    uint64
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.listeners, s.id)
		s.store.mu.Unlock()
	})
}

// Subscribe registers fn for every later event. Events are delivered
// synchronously on the goroutine that caused them.
func (s *Store) Subscribe(fn func(Event)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.listeners[s.nextID] = fn
	return &Subscription{store: s, id: s.nextID}
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
