package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

const suggestSystemPrompt = `You generate follow-up questions for a documentation assistant. Given the recent conversation, propose exactly 3 short questions the user is likely to ask next. Respond with a JSON array of 3 strings and nothing else.`

// suggestHistoryWindow bounds how much transcript is sent for suggestions.
const suggestHistoryWindow = 6

// Suggester proposes follow-up questions for a conversation. It is a
// best-effort feature: any failure yields an empty list, never an error the
// caller must surface.
type Suggester struct {
	store  port.ConversationStore
	model  port.ChatModel
	logger log.Logger
}

func NewSuggester(store port.ConversationStore, model port.ChatModel, logger log.Logger) *Suggester {
	return &Suggester{
		store:  store,
		model:  model,
		logger: logger,
	}
}

// Suggest returns up to 3 follow-up questions for the conversation. Unknown
// conversations and model failures both produce an empty list.
func (s *Suggester) Suggest(ctx context.Context, username, convoID string) []string {
	history, err := s.store.History(username, convoID)
	if err != nil || len(history) == 0 {
		return nil
	}

	if len(history) > suggestHistoryWindow {
		history = history[len(history)-suggestHistoryWindow:]
	}

	var transcript strings.Builder
	for _, msg := range history {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			continue
		}
		if msg.Content == "" {
			continue
		}
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}
	if transcript.Len() == 0 {
		return nil
	}

	raw, err := s.model.Complete(ctx, suggestSystemPrompt, transcript.String())
	if err != nil {
		s.logger.Warn("suggestion generation failed", "user", username, "convo", convoID, "error", err)
		return nil
	}

	questions, err := parseSuggestions(raw)
	if err != nil {
		s.logger.Warn("unparseable suggestion response", "user", username, "convo", convoID, "error", err)
		return nil
	}
	return questions
}

// parseSuggestions extracts the JSON array from a model response, tolerating
// the markdown code fences some models wrap JSON in.
func parseSuggestions(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var questions []string
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("expected a JSON array of strings: %w", err)
	}

	if len(questions) > 3 {
		questions = questions[:3]
	}
	return questions, nil
}
