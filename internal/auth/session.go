package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a session lives without an explicit logout.
const DefaultSessionTTL = 24 * time.Hour

// Session binds an opaque id handed to the browser to a GitHub credential.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Login     string    `json:"login"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore creates, resolves and invalidates sessions.
type SessionStore interface {
	Create(token, login string) Session
	Get(id string) (Session, bool)
	Delete(id string)
}

// MemoryStore is an in-process SessionStore. Expired sessions are dropped
// when looked up.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store whose sessions expire after ttl
// (DefaultSessionTTL when ttl <= 0).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(token, login string) Session {
	now := m.now()
	s := Session{
		ID:        uuid.NewString(),
		Token:     token,
		Login:     login,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *MemoryStore) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, false
	}
	return s, true
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
