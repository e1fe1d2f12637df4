package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsvirk/financeapi/internal/models"
)

// MemorySessionStore is a process-local SessionStore for single instance runs and tests
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*models.Session
}

// NewMemorySessionStore creates an in-memory session store
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return NewMemorySessionStoreWithClock(ttl, time.Now)
}

// NewMemorySessionStoreWithClock creates an in-memory session store reading time from now
func NewMemorySessionStoreWithClock(ttl time.Duration, now func() time.Time) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]*models.Session),
	}
}

// Create creates an empty session and returns its id
func (s *MemorySessionStore) Create(ctx context.Context) (string, error) {
	now := s.now().UTC()
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &models.Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	return id, nil
}

// Get returns a copy of the session
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *session
	if session.PendingIdentity != nil {
		identity := *session.PendingIdentity
		out.PendingIdentity = &identity
	}
	return &out, nil
}

// Set applies a partial update to a live session
func (s *MemorySessionStore) Set(ctx context.Context, id string, update models.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(id)
	if !ok {
		return ErrSessionNotFound
	}
	if update.ClearPending {
		session.PendingCode = ""
		session.PendingIdentity = nil
		session.Attempts = 0
	}
	if update.PendingCode != nil {
		session.PendingCode = *update.PendingCode
	}
	if update.PendingIdentity != nil {
		identity := *update.PendingIdentity
		session.PendingIdentity = &identity
	}
	if update.Attempts != nil {
		session.Attempts = *update.Attempts
	}
	return nil
}

// IncrAttempts counts one verification attempt against the pending code
func (s *MemorySessionStore) IncrAttempts(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(id)
	if !ok {
		return 0, ErrSessionNotFound
	}
	if session.PendingCode == "" {
		return 0, ErrNoPendingCode
	}
	session.Attempts++
	return session.Attempts, nil
}

// Delete deletes a session
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Sweep removes expired sessions and returns how many were removed
func (s *MemorySessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// live returns the session if it exists and has not expired, caller holds mu
func (s *MemorySessionStore) live(id string) (*models.Session, bool) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return session, true
}
