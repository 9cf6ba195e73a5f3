package port

import (
	"context"
	"errors"

	"ibot/internal/domain"
)

// ErrModelUnavailable is returned by Complete once all retries are spent.
var ErrModelUnavailable = errors.New("model unavailable")

// ChatModel is a remote language model behind an OpenAI-compatible API.
type ChatModel interface {
	// ChatStream opens a streaming completion for the given transcript and
	// tool declarations. The returned channel carries a finite sequence of
	// events and is closed when the stream ends. A transport or protocol
	// failure surfaces as a single StreamError; it never panics or leaks an
	// error out-of-band.
	ChatStream(ctx context.Context, messages []domain.Message, tools []domain.ToolSpec) <-chan StreamEvent

	// Complete performs a single non-streaming completion, retrying
	// transport failures with exponential backoff. When retries are
	// exhausted the error wraps ErrModelUnavailable.
	Complete(ctx context.Context, system, user string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// StreamEvent is the normalized event stream produced by a ChatModel.
// It is a sealed sum over TextDelta, ToolCallRequest and StreamError so the
// orchestrator can type-switch exhaustively.
type StreamEvent interface {
	streamEvent()
}

// TextDelta is an incremental fragment of assistant text.
type TextDelta struct {
	Text string
}

// ToolCallRequest asks for one tool invocation. Arguments is the complete
// JSON argument string, already reassembled from stream fragments.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments string
}

// StreamError terminates the stream; no further events follow it.
type StreamError struct {
	Err error
}

func (TextDelta) streamEvent()       {}
func (ToolCallRequest) streamEvent() {}
func (StreamError) streamEvent()     {}
