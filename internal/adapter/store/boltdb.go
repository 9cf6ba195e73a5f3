// Package store persists conversation state in a single bbolt file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

var bucketConversations = []byte("conversations")

// BoltStore keeps every user's conversation list as one JSON value keyed by
// username. Each mutation is a read-modify-write inside a single bbolt
// update transaction, which both serializes racing turns for the same user
// and keeps the file crash-consistent.
type BoltStore struct {
	db     *bbolt.DB
	logger log.Logger
}

func NewBoltStore(path string, logger log.Logger) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConversations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create conversations bucket: %w", err)
	}

	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Create(username, firstMessage string) (string, error) {
	convo := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     domain.ConversationTitle(firstMessage),
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		convos := s.load(b, username)
		convos = append([]domain.Conversation{convo}, convos...)
		return s.save(b, username, convos)
	})
	if err != nil {
		return "", err
	}

	return convo.ID, nil
}

func (s *BoltStore) Append(username, convoID string, msgs ...domain.Message) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		convos := s.load(b, username)

		for i := range convos {
			if convos[i].ID == convoID {
				convos[i].History = append(convos[i].History, msgs...)
				return s.save(b, username, convos)
			}
		}
		return port.ErrConversationNotFound
	})
}

func (s *BoltStore) History(username, convoID string) ([]domain.Message, error) {
	var history []domain.Message

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		for _, convo := range s.load(b, username) {
			if convo.ID == convoID {
				history = convo.History
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

func (s *BoltStore) List(username string) ([]domain.ConversationRef, error) {
	var refs []domain.ConversationRef

	err := s.db.View(func(tx *bbolt.Tx) error {
		convos := s.load(tx.Bucket(bucketConversations), username)
		refs = make([]domain.ConversationRef, 0, len(convos))
		for _, convo := range convos {
			refs = append(refs, domain.ConversationRef{ID: convo.ID, Title: convo.Title})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return refs, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// load decodes a user's conversation list. A corrupt record degrades to an
// empty list rather than taking the store down.
func (s *BoltStore) load(b *bbolt.Bucket, username string) []domain.Conversation {
	data := b.Get([]byte(username))
	if data == nil {
		return nil
	}

	var convos []domain.Conversation
	if err := json.Unmarshal(data, &convos); err != nil {
		s.logger.Warn("corrupt conversation record, starting fresh", "username", username, "error", err)
		return nil
	}
	return convos
}

func (s *BoltStore) save(b *bbolt.Bucket, username string, convos []domain.Conversation) error {
	data, err := json.Marshal(convos)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	return b.Put([]byte(username), data)
}
