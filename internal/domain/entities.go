package domain

import "time"

// Message roles as used on the wire by OpenAI-compatible chat APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a conversation transcript. The transcript is
// append-only; its order is resubmitted to the model verbatim on every turn.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall records a model-issued request to invoke a named capability.
// Arguments is the raw JSON argument string exactly as the model produced it.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec is the OpenAI-format declaration of a callable capability,
// sent alongside the message list so the model knows what it may invoke.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Conversation is owned by exactly one username. History is append-only.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	History   []Message `json:"history"`
}

// ConversationRef is the listing view of a conversation: metadata only.
type ConversationRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// titleLimit is the number of runes of the first message kept as the title.
const titleLimit = 45

// ConversationTitle derives a conversation title from its first user message.
func ConversationTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > titleLimit {
		runes = runes[:titleLimit]
	}
	return string(runes) + "..."
}

// User is an authenticated team member.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Outward event types streamed to the transport layer, one JSON record per
// line. Errors are delivered in-band so the client can render them inline.
const (
	EventChunk = "chunk"
	EventError = "error"
	EventEnd   = "end"
)

// Event is one outward record of a streaming turn.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	ConvoID string `json:"convo_id,omitempty"`
}

// ScoredChunk is a retrieval result: a document chunk with its cosine
// similarity against the query.
type ScoredChunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
