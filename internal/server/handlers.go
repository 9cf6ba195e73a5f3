package server

import (
	"encoding/json"
	"net/http"

	"ibot/internal/domain"
)

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type chatRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	ConvoID  string `json:"convo_id"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := s.roster.Authenticate(req.Username, req.Password)
	if !ok {
		s.logger.Warn("failed login attempt", "user", req.Username)
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleChat streams the turn as newline-delimited JSON, one event per line,
// flushed as soon as each event is encoded. The connection's context cancels
// the turn when the client disconnects.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "username and message are required")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for ev := range s.bot.RespondStream(r.Context(), req.Username, req.Message, req.ConvoID) {
		if err := enc.Encode(ev); err != nil {
			s.logger.Warn("client write failed mid-stream", "user", req.Username, "error", err)
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	refs, err := s.store.List(username)
	if err != nil {
		s.logger.Error("failed to list conversations", "user", username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load conversations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": refs})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	convoID := r.PathValue("id")

	history, err := s.store.History(username, convoID)
	if err != nil {
		s.logger.Error("failed to load history", "user", username, "convo", convoID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load the conversation")
		return
	}

	// Tool plumbing stays internal; clients render user and assistant turns.
	visible := make([]domain.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			continue
		}
		if msg.Content == "" {
			continue
		}
		visible = append(visible, domain.Message{Role: msg.Role, Content: msg.Content})
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": visible})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	convoID := r.PathValue("id")

	suggestions := s.suggester.Suggest(r.Context(), username, convoID)
	if suggestions == nil {
		suggestions = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
