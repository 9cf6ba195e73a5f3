// Package server exposes the assistant over HTTP. The surface is thin: it
// validates input, delegates to the use cases, and shapes responses.
package server

import (
	"context"
	"net/http"
	"time"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
	"ibot/internal/team"
)

// Responder streams one conversational turn.
type Responder interface {
	RespondStream(ctx context.Context, username, message, convoID string) <-chan domain.Event
}

// SuggestionSource proposes follow-up questions for a conversation.
type SuggestionSource interface {
	Suggest(ctx context.Context, username, convoID string) []string
}

// Server routes HTTP traffic to the assistant.
type Server struct {
	bot       Responder
	suggester SuggestionSource
	store     port.ConversationStore
	roster    *team.Table
	staticDir string
	logger    log.Logger
}

func New(bot Responder, suggester SuggestionSource, store port.ConversationStore, roster *team.Table, staticDir string, logger log.Logger) *Server {
	return &Server{
		bot:       bot,
		suggester: suggester,
		store:     store,
		roster:    roster,
		staticDir: staticDir,
		logger:    logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth", s.handleAuth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/conversations/{username}", s.handleConversations)
	mux.HandleFunc("GET /api/conversation/{username}/{id}", s.handleConversation)
	mux.HandleFunc("GET /api/suggestions/{username}/{id}", s.handleSuggestions)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then drains with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
