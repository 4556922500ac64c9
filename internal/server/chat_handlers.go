package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/omriShneor/calpal/internal/assistant"
	"github.com/omriShneor/calpal/internal/conversation"
)

const maxMessageBytes = 16 << 10

// handleChatMessage runs one chat message through the assistant
// POST /api/chat/message
// Body: { "user_id": "...", "message": "..." }
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.logger.Debug("chat message received",
		"request_id", RequestIDFromContext(r.Context()),
		"user_id", req.UserID,
	)

	// Failures are carried in the reply itself, so the status is always 200
	resp := s.chat.HandleMessage(r.Context(), req)
	respondJSON(w, http.StatusOK, resp)
}

// handleChatHistory returns the stored turns of a conversation, oldest first
// GET /api/chat/history?user_id=...
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	history, err := s.chat.History(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to load chat history", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []conversation.Turn{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"history": history,
	})
}
