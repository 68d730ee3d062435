package bot

import (
	"sync"

	"github.com/vkrlab/briefbot/internal/types"
)

// Session is the per-user transient navigation state: the loaded step list,
// the position in it, and a pending free-text capture. It is created on the
// first event and cleared on entry/cancel; it is never persisted.
type Session struct {
	UserID    int64
	Steps     []types.Step
	StepIndex int
	PageURL   string
	Awaiting  types.RequestKind
}

// SessionStore holds sessions keyed by user id. Events for a single user
// arrive serially, so only map access needs guarding.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[int64]*Session{}}
}

// Get returns the user's session, creating it on first use.
func (s *SessionStore) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{UserID: userID}
		s.sessions[userID] = sess
	}
	return sess
}

// Reset drops the user's session entirely.
func (s *SessionStore) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
