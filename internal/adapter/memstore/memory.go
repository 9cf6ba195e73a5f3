// Package memstore holds conversation state in memory only. It backs tests
// and ephemeral runs; production uses the bbolt store.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"ibot/internal/domain"
	"ibot/internal/port"
)

type MemoryStore struct {
	mu    sync.Mutex
	users map[string][]domain.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string][]domain.Conversation),
	}
}

func (s *MemoryStore) Create(username, firstMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     domain.ConversationTitle(firstMessage),
		CreatedAt: time.Now().UTC(),
	}
	// Most recent first.
	s.users[username] = append([]domain.Conversation{convo}, s.users[username]...)

	return convo.ID, nil
}

func (s *MemoryStore) Append(username, convoID string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convos := s.users[username]
	for i := range convos {
		if convos[i].ID == convoID {
			convos[i].History = append(convos[i].History, msgs...)
			return nil
		}
	}
	return port.ErrConversationNotFound
}

func (s *MemoryStore) History(username, convoID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, convo := range s.users[username] {
		if convo.ID == convoID {
			history := make([]domain.Message, len(convo.History))
			copy(history, convo.History)
			return history, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) List(username string) ([]domain.ConversationRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convos := s.users[username]
	refs := make([]domain.ConversationRef, 0, len(convos))
	for _, convo := range convos {
		refs = append(refs, domain.ConversationRef{ID: convo.ID, Title: convo.Title})
	}
	return refs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
