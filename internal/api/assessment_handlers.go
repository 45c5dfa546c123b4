package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Assessment handlers. The area URL param is the backend's area_fungsi
// name; the level rides in the start payload and is echoed back by the
// question set.

type startAssessmentRequest struct {
	Level int `json:"level"`
}

func (s *Server) handleStartAssessment(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")
	if area == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "area is required")
		return
	}

	var req startAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Level < 1 {
		respondError(w, http.StatusBadRequest, "validation_error", "level must be positive")
		return
	}

	ctrl := s.registry.Assessment(SessionFromContext(r.Context()), area, req.Level)
	if err := ctrl.Load(r.Context()); err != nil {
		respondFlowError(w, err, "failed to load questions")
		return
	}

	respondJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")
	level, err := strconv.Atoi(r.URL.Query().Get("level"))
	if err != nil || level < 1 {
		respondError(w, http.StatusBadRequest, "validation_error", "level query parameter is required")
		return
	}

	ctrl := s.registry.Assessment(SessionFromContext(r.Context()), area, level)
	respondJSON(w, http.StatusOK, ctrl.Snapshot())
}

type selectAnswerRequest struct {
	Ordinal int    `json:"nomor_soal"`
	Choice  string `json:"jawaban"`
	Level   int    `json:"level"`
}

func (s *Server) handleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")

	var req selectAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctrl := s.registry.Assessment(SessionFromContext(r.Context()), area, req.Level)
	ctrl.SelectAnswer(req.Ordinal, req.Choice)

	respondJSON(w, http.StatusOK, ctrl.Snapshot())
}

type navigateRequest struct {
	Index int `json:"index"`
	Level int `json:"level"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")

	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctrl := s.registry.Assessment(SessionFromContext(r.Context()), area, req.Level)
	ctrl.Navigate(req.Index)

	respondJSON(w, http.StatusOK, ctrl.Snapshot())
}

type submitAssessmentRequest struct {
	Level int `json:"level"`
}

func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")

	var req submitAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctrl := s.registry.Assessment(SessionFromContext(r.Context()), area, req.Level)
	ack, err := ctrl.Submit(r.Context())
	if err != nil {
		respondFlowError(w, err, "failed to submit answers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ack":      ack,
		"snapshot": ctrl.Snapshot(),
	})
}
