// Package llm implements the model gateway against OpenAI-compatible chat
// completion endpoints (Groq, OpenAI, local servers).
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

const doneMarker = "[DONE]"

// Config mirrors the llm section of the application config.
type Config struct {
	Model          string
	BaseURL        string
	APIKeyEnv      string
	TimeoutSeconds int
	MaxRetries     int
}

// Client streams chat completions and normalizes the wire protocol into
// port.StreamEvent values.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	client     *http.Client
	maxRetries int
	retryBase  time.Duration
	logger     log.Logger
}

// New creates a gateway client. The API key is read from the environment
// variable named in cfg; a missing key refuses startup.
func New(cfg Config, logger log.Logger) (*Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryBase:  time.Second,
		logger:     logger,
	}, nil
}

func (c *Client) ModelName() string {
	return c.model
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []domain.Message  `json:"messages"`
	Tools       []domain.ToolSpec `json:"tools,omitempty"`
	Stream      bool              `json:"stream"`
	Temperature float64           `json:"temperature,omitempty"`
}

// streamChunk is one line of the streaming wire format.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type completionResponse struct {
	Choices []struct {
		Message domain.Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// pendingCall accumulates tool-call fragments streamed across lines.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// ChatStream opens a streaming completion. The returned channel is closed
// when the stream ends; a transport or protocol failure produces exactly one
// StreamError as the final event.
func (c *Client) ChatStream(ctx context.Context, messages []domain.Message, tools []domain.ToolSpec) <-chan port.StreamEvent {
	out := make(chan port.StreamEvent)

	go func() {
		defer close(out)
		c.stream(ctx, out, messages, tools)
	}()

	return out
}

// emit delivers an event unless the consumer is gone.
func emit(ctx context.Context, out chan<- port.StreamEvent, ev port.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) stream(ctx context.Context, out chan<- port.StreamEvent, messages []domain.Message, tools []domain.ToolSpec) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   true,
	})
	if err != nil {
		emit(ctx, out, port.StreamError{Err: fmt.Errorf("failed to marshal request: %w", err)})
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		emit(ctx, out, port.StreamError{Err: fmt.Errorf("failed to create request: %w", err)})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("chat request failed", "error", err)
		emit(ctx, out, port.StreamError{Err: fmt.Errorf("request failed: %w", err)})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("chat request rejected", "status", resp.StatusCode, "body", string(preview))
		emit(ctx, out, port.StreamError{Err: fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(preview))})
		return
	}

	pending := make(map[int]*pendingCall)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "data: ")
		if line == doneMarker {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// Malformed lines never abort the stream.
			c.logger.Warn("skipping malformed stream line", "line", line)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			if !emit(ctx, out, port.TextDelta{Text: delta.Content}) {
				return
			}
		}
		for _, tc := range delta.ToolCalls {
			call, ok := pending[tc.Index]
			if !ok {
				call = &pendingCall{}
				pending[tc.Index] = call
			}
			if tc.ID != "" {
				call.id = tc.ID
			}
			if tc.Function.Name != "" {
				call.name = tc.Function.Name
			}
			call.args.WriteString(tc.Function.Arguments)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("chat stream interrupted", "error", err)
		emit(ctx, out, port.StreamError{Err: fmt.Errorf("stream read failed: %w", err)})
		return
	}

	// Tool calls arrive fragmented; emit them complete, in index order,
	// once the stream has finished.
	indexes := make([]int, 0, len(pending))
	for i := range pending {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		call := pending[i]
		if !emit(ctx, out, port.ToolCallRequest{
			ID:        call.id,
			Name:      call.name,
			Arguments: call.args.String(),
		}) {
			return
		}
	}
}

// Complete performs a non-streaming completion with retry and doubling
// backoff. Once attempts are exhausted the error wraps
// port.ErrModelUnavailable.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: user},
	}

	delay := c.retryBase
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying completion", "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		content, err := c.complete(ctx, messages)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: %v", port.ErrModelUnavailable, lastErr)
}

func (c *Client) complete(ctx context.Context, messages []domain.Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}

	var completion completionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return completion.Choices[0].Message.Content, nil
}
