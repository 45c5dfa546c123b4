package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/diploy/competency-gateway/internal/assessment"
	"github.com/diploy/competency-gateway/internal/chat"
	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/profileflow"
	"github.com/diploy/competency-gateway/internal/session"
	"github.com/diploy/competency-gateway/pkg/client"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondFlowError maps the domain error taxonomy to HTTP responses.
// Authentication failures always become a login redirect hint; validation
// failures carry the field; everything else is a generic upstream failure
// with a retry affordance.
func respondFlowError(w http.ResponseWriter, err error, fallback string) {
	var validation *profileflow.ValidationError
	switch {
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, client.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "login_required", "session expired, please log in again")
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, "validation_error", validation.Error())
	case errors.Is(err, profileflow.ErrSaveInFlight), errors.Is(err, assessment.ErrBusy), errors.Is(err, chat.ErrReplyPending):
		respondError(w, http.StatusConflict, "operation_pending", "a previous request is still being processed, please retry")
	case errors.Is(err, chat.ErrConversationClosed):
		respondError(w, http.StatusConflict, "conversation_closed", "the interview has already finished")
	case errors.Is(err, assessment.ErrNotReady):
		respondError(w, http.StatusConflict, "not_ready", "questions are not loaded yet")
	case errors.Is(err, assessment.ErrUpstreamUnavailable):
		respondError(w, http.StatusBadGateway, "upstream_unavailable", "the assessment service is unavailable, please try again")
	default:
		respondError(w, http.StatusBadGateway, "upstream_error", fallback)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Auth handlers

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" || req.FullName == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email, password and full_name are required")
		return
	}

	if err := s.backend.Register(r.Context(), req); err != nil {
		slog.Warn("registration failed", "error", err)
		respondError(w, http.StatusBadGateway, "registration_failed", "registration could not be completed, please try again")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "account created",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	sessionID, identity, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthenticated) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		slog.Error("login failed", "error", err)
		respondError(w, http.StatusBadGateway, "upstream_error", "login is temporarily unavailable")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"identity":   identity,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())

	s.registry.Drop(sessionID)
	if err := s.sessions.Logout(r.Context(), sessionID); err != nil {
		slog.Warn("failed to clear session state", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())

	identity, err := s.sessions.Identity(r.Context(), sessionID)
	if err != nil {
		respondFlowError(w, err, "failed to load session identity")
		return
	}

	respondJSON(w, http.StatusOK, identity)
}
