package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/haasonsaas/tome/pkg/models"
)

// MemoryStore is an in-process session store for tests and ephemeral
// deployments.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*models.Session
	maxMessages int
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory session store. maxMessages <= 0
// selects the default.
func NewMemory(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &MemoryStore{
		sessions:    make(map[string]*models.Session),
		maxMessages: maxMessages,
	}
}

// Get returns a copy of the session for key.
func (s *MemoryStore) Get(ctx context.Context, key string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key).Clone(), nil
}

// AppendMessage appends msg and returns a copy of the updated session.
func (s *MemoryStore) AppendMessage(ctx context.Context, key string, msg models.Message) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(key)
	session.Messages = append(session.Messages, msg)
	if over := len(session.Messages) - s.maxMessages; over > 0 {
		session.Messages = session.Messages[over:]
	}
	session.UpdatedAt = time.Now().UTC()
	s.sessions[key] = session
	return session.Clone(), nil
}

// SetModel records the session's model choice.
func (s *MemoryStore) SetModel(ctx context.Context, key, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(key)
	session.ModelID = modelID
	session.UpdatedAt = time.Now().UTC()
	s.sessions[key] = session
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) getLocked(key string) *models.Session {
	if session, ok := s.sessions[key]; ok {
		return session
	}
	now := time.Now().UTC()
	session := &models.Session{Key: key, CreatedAt: now, UpdatedAt: now}
	s.sessions[key] = session
	return session
}
