package port

import (
	"errors"

	"ibot/internal/domain"
)

// ErrConversationNotFound is returned when an operation names a conversation
// id the user does not own.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore owns all conversation state. Implementations must make
// the read-modify-persist cycle atomic so concurrent turns for the same user
// cannot lose updates.
type ConversationStore interface {
	// Create starts a new conversation for the user, deriving its title from
	// the first message, and places it at the head of the user's list.
	Create(username, firstMessage string) (string, error)

	// Append adds messages to an existing conversation and persists.
	// Returns ErrConversationNotFound for an unknown id.
	Append(username, convoID string, msgs ...domain.Message) error

	// History returns the stored transcript, or an empty slice for an
	// unknown id.
	History(username, convoID string) ([]domain.Message, error)

	// List returns conversation metadata, most recently created first.
	List(username string) ([]domain.ConversationRef, error)

	Close() error
}
