package dialogue

import (
	"sync"
	"time"

	"github.com/amirulm/aidlog/internal/domain/activity"
)

// Mode distinguishes a fresh intake from an edit of a stored record.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Submode refines edit mode: field-menu random access or a guided
// re-walk of the whole sequence.
type Submode int

const (
	SubmodeNone Submode = iota
	SubmodeFieldMenu
	SubmodeGuided
)

// Session is one user's in-progress intake dialogue. It is owned
// exclusively by its conversation; the engine serializes all access.
type Session struct {
	ChatID  int64
	OwnerID int64
	Mode    Mode
	Submode Submode
	Step    Step

	// Draft accumulates field values as steps complete. In edit mode
	// it is seeded from the stored record.
	Draft activity.Record

	// Staged is the fully built record shown for confirmation. Set
	// when the session reaches StepConfirm.
	Staged *activity.Record

	LastActivity time.Time
}

// Store maps chat IDs to active sessions. One session per conversation;
// a second dialogue start is rejected, never silently replaced.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Begin registers a new session. Returns ErrSessionExists if the chat
// already has one.
func (s *Store) Begin(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ChatID]; ok {
		return ErrSessionExists
	}
	s.sessions[sess.ChatID] = sess
	return nil
}

// Get returns the chat's active session, or nil.
func (s *Store) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[chatID]
}

// End removes the chat's session if present.
func (s *Store) End(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// ChatIDs snapshots the chats with active sessions. Session fields are
// not read here; the caller inspects each session under its chat lock.
func (s *Store) ChatIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.sessions))
	for chatID := range s.sessions {
		ids = append(ids, chatID)
	}
	return ids
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
