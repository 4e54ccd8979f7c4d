// Package session keeps per-conversation state for the multi-step
// "log an event" flow: pick a type, enter minutes, pick a rating.
//
// State lives here, never in the core: the store hands the core a
// single complete triple only once the final step arrives, and clears
// the conversation on completion, cancellation, or contract violation.
package session

import (
	"context"
	"sync"
	"time"
)

// State identifies where a conversation is in the logging flow.
type State int

// Conversation states. Idle is the zero value and means "no
// conversation"; it never appears inside the store.
const (
	StateIdle State = iota
	StateAwaitingMinutes
	StateAwaitingRating
)

func (s State) String() string {
	switch s {
	case StateAwaitingMinutes:
		return "awaiting_minutes"
	case StateAwaitingRating:
		return "awaiting_rating"
	default:
		return "idle"
	}
}

// Conversation is the context record accumulated across steps.
type Conversation struct {
	UserID    int64
	TypeCode  string
	Minutes   int
	State     State
	StartedAt time.Time
}

// Store is a thread-safe in-memory conversation store keyed by
// conversation id.
type Store struct {
	mu     sync.Mutex
	active map[string]*Conversation
	now    func() time.Time
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty conversation store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		active: make(map[string]*Conversation),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts (or restarts) a conversation with the chosen type and
// moves it to StateAwaitingMinutes. Beginning over an in-progress
// conversation discards the previous one.
func (s *Store) Begin(ctx context.Context, id string, userID int64, typeCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[id] = &Conversation{
		UserID:    userID,
		TypeCode:  typeCode,
		State:     StateAwaitingMinutes,
		StartedAt: s.now(),
	}
}

// SetMinutes records the minutes step and moves the conversation to
// StateAwaitingRating.
func (s *Store) SetMinutes(ctx context.Context, id string, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.active[id]
	if !ok {
		return ErrNoConversation
	}
	if conv.State != StateAwaitingMinutes {
		return ErrUnexpectedState
	}
	conv.Minutes = minutes
	conv.State = StateAwaitingRating
	return nil
}

// Finish completes the conversation, returning the accumulated context
// and clearing it from the store. The conversation must be in
// StateAwaitingRating with all earlier fields present; a conversation
// that violates that contract is cleared and reported as an error.
func (s *Store) Finish(ctx context.Context, id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.active[id]
	if !ok {
		return Conversation{}, ErrNoConversation
	}
	if conv.State != StateAwaitingRating {
		return Conversation{}, ErrUnexpectedState
	}
	delete(s.active, id)
	if conv.TypeCode == "" || conv.Minutes <= 0 {
		// Contract violation: a later step arrived without the
		// earlier fields. The session is already cleared.
		return Conversation{}, ErrIncomplete
	}
	return *conv, nil
}

// Cancel clears any in-progress conversation. Canceling an unknown id
// is a no-op.
func (s *Store) Cancel(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, id)
}

// Peek returns a copy of the in-progress conversation, if any.
func (s *Store) Peek(ctx context.Context, id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.active[id]
	if !ok {
		return Conversation{}, false
	}
	return *conv, true
}

// Len returns the number of in-progress conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}
