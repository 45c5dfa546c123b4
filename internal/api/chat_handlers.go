package api

import (
	"encoding/json"
	"net/http"

	"github.com/diploy/competency-gateway/internal/chat"
	"github.com/diploy/competency-gateway/internal/mapping"
	"github.com/diploy/competency-gateway/internal/models"
)

// Chat handlers

type chatSnapshot struct {
	Messages []models.ChatMessage `json:"messages"`
	Closed   bool                 `json:"closed"`
	Result   *mapping.ChatResult  `json:"result,omitempty"`
}

func snapshotChat(conv *chat.Session) chatSnapshot {
	return chatSnapshot{
		Messages: conv.Messages(),
		Closed:   conv.Closed(),
		Result:   conv.Result(),
	}
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	conv := s.registry.Chat(SessionFromContext(r.Context()))
	respondJSON(w, http.StatusOK, snapshotChat(conv))
}

func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request) {
	conv := s.registry.Chat(SessionFromContext(r.Context()))

	if err := conv.Start(r.Context()); err != nil {
		respondFlowError(w, err, "failed to start the interview")
		return
	}

	respondJSON(w, http.StatusOK, snapshotChat(conv))
}

type chatMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	conv := s.registry.Chat(SessionFromContext(r.Context()))

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "text is required")
		return
	}

	if err := conv.Send(r.Context(), req.Text); err != nil {
		respondFlowError(w, err, "failed to send the message")
		return
	}

	respondJSON(w, http.StatusOK, snapshotChat(conv))
}

func (s *Server) handleReplayChat(w http.ResponseWriter, r *http.Request) {
	conv := s.registry.Chat(SessionFromContext(r.Context()))

	if err := conv.Replay(r.Context()); err != nil {
		respondFlowError(w, err, "failed to load the chat history")
		return
	}

	respondJSON(w, http.StatusOK, snapshotChat(conv))
}
