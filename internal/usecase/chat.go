package usecase

import (
	"context"
	"errors"
	"fmt"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

// systemPromptTemplate frames every model request. The retrieval context is
// injected per turn; the model is told to prefer it over its own knowledge.
const systemPromptTemplate = `You are iBot, a friendly and professional assistant for the iTethr team. Answer questions using the documentation context below whenever it is relevant. If the context does not cover the question, say so honestly instead of guessing. Keep answers concise and practical.

DOCUMENTATION CONTEXT:
%s`

// contextFallback replaces the documentation context when retrieval finds
// nothing relevant.
const contextFallback = "No relevant documentation was found for this query."

// ContextProvider supplies the retrieval context for a question. An empty
// string means nothing relevant was found.
type ContextProvider interface {
	Context(question string) string
}

// ToolRunner executes model-requested tool calls and declares what is
// callable.
type ToolRunner interface {
	Execute(name, rawArgs string) string
	Specs() []domain.ToolSpec
}

// Bot orchestrates one conversational turn: resolve the conversation,
// retrieve context, stream the model answer, run requested tools, persist
// the transcript.
type Bot struct {
	knowledge ContextProvider
	store     port.ConversationStore
	model     port.ChatModel
	tools     ToolRunner

	maxToolRounds int
	logger        log.Logger
}

func NewBot(knowledge ContextProvider, store port.ConversationStore, model port.ChatModel, tools ToolRunner, maxToolRounds int, logger log.Logger) *Bot {
	if maxToolRounds <= 0 {
		maxToolRounds = 5
	}
	return &Bot{
		knowledge:     knowledge,
		store:         store,
		model:         model,
		tools:         tools,
		maxToolRounds: maxToolRounds,
		logger:        logger,
	}
}

// RespondStream answers message for username, streaming the reply as events.
// An empty convoID starts a new conversation; otherwise the turn continues an
// existing one. The channel carries zero or more chunk events followed by
// exactly one terminal event (end or error) and is then closed. A caller that
// abandons the context stops the turn; nothing from the aborted model reply
// is persisted.
func (b *Bot) RespondStream(ctx context.Context, username, message, convoID string) <-chan domain.Event {
	out := make(chan domain.Event)
	go func() {
		defer close(out)
		b.respond(ctx, out, username, message, convoID)
	}()
	return out
}

func (b *Bot) respond(ctx context.Context, out chan<- domain.Event, username, message, convoID string) {
	if convoID == "" {
		id, err := b.store.Create(username, message)
		if err != nil {
			b.logger.Error("failed to create conversation", "user", username, "error", err)
			b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "Could not start a new conversation."})
			return
		}
		convoID = id
	}

	userMsg := domain.Message{Role: domain.RoleUser, Content: message}
	if err := b.store.Append(username, convoID, userMsg); err != nil {
		if errors.Is(err, port.ErrConversationNotFound) {
			b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "This conversation does not exist.", ConvoID: convoID})
			return
		}
		b.logger.Error("failed to persist user message", "user", username, "convo", convoID, "error", err)
		b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "Could not save your message.", ConvoID: convoID})
		return
	}

	history, err := b.store.History(username, convoID)
	if err != nil {
		b.logger.Error("failed to load history", "user", username, "convo", convoID, "error", err)
		b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "Could not load the conversation.", ConvoID: convoID})
		return
	}

	docContext := b.knowledge.Context(message)
	if docContext == "" {
		docContext = contextFallback
	}

	request := make([]domain.Message, 0, len(history)+1)
	request = append(request, domain.Message{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, docContext),
	})
	request = append(request, history...)

	for round := 0; round < b.maxToolRounds; round++ {
		reply, calls, err := b.streamRound(ctx, out, request, convoID)
		if err != nil {
			b.logger.Error("model stream failed", "user", username, "convo", convoID, "error", err)
			b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "The model is unavailable right now. Please try again.", ConvoID: convoID})
			return
		}
		if ctx.Err() != nil {
			return
		}

		if len(calls) == 0 {
			if reply != "" {
				assistant := domain.Message{Role: domain.RoleAssistant, Content: reply}
				if err := b.store.Append(username, convoID, assistant); err != nil {
					b.logger.Error("failed to persist reply", "user", username, "convo", convoID, "error", err)
					b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "Could not save the reply.", ConvoID: convoID})
					return
				}
			}
			b.emit(ctx, out, domain.Event{Type: domain.EventEnd, ConvoID: convoID})
			return
		}

		turn := b.runTools(username, reply, calls)
		if err := b.store.Append(username, convoID, turn...); err != nil {
			b.logger.Error("failed to persist tool round", "user", username, "convo", convoID, "error", err)
			b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "Could not save the reply.", ConvoID: convoID})
			return
		}
		request = append(request, turn...)
	}

	b.logger.Warn("tool round limit reached", "user", username, "convo", convoID, "limit", b.maxToolRounds)
	b.emit(ctx, out, domain.Event{Type: domain.EventError, Content: "The assistant could not finish this request.", ConvoID: convoID})
}

// streamRound runs one model stream, forwarding text deltas outward as chunk
// events and collecting any tool call requests. It returns the accumulated
// assistant text and the requested calls.
func (b *Bot) streamRound(ctx context.Context, out chan<- domain.Event, request []domain.Message, convoID string) (string, []port.ToolCallRequest, error) {
	var reply string
	var calls []port.ToolCallRequest

	for ev := range b.model.ChatStream(ctx, request, b.tools.Specs()) {
		switch ev := ev.(type) {
		case port.TextDelta:
			reply += ev.Text
			if !b.emit(ctx, out, domain.Event{Type: domain.EventChunk, Content: ev.Text, ConvoID: convoID}) {
				return reply, nil, nil
			}
		case port.ToolCallRequest:
			calls = append(calls, ev)
		case port.StreamError:
			return "", nil, ev.Err
		}
	}

	return reply, calls, nil
}

// runTools executes the requested calls in order and returns the transcript
// extension: the assistant message carrying the calls, then one tool message
// per result.
func (b *Bot) runTools(username, reply string, calls []port.ToolCallRequest) []domain.Message {
	assistant := domain.Message{Role: domain.RoleAssistant, Content: reply}
	for _, call := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, domain.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: domain.FunctionCall{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}

	turn := []domain.Message{assistant}
	for _, call := range calls {
		b.logger.Info("executing tool", "user", username, "tool", call.Name)
		result := b.tools.Execute(call.Name, call.Arguments)
		turn = append(turn, domain.Message{
			Role:       domain.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}
	return turn
}

// emit sends an event unless the caller has gone away. It reports whether the
// event was delivered.
func (b *Bot) emit(ctx context.Context, out chan<- domain.Event, ev domain.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
