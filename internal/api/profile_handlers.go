package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/profileflow"
	"github.com/diploy/competency-gateway/pkg/client"
)

// Profile flow handlers

func (s *Server) handleGetProfileFlow(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	if err := flow.Load(r.Context()); err != nil {
		respondFlowError(w, err, "failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, flow.Snapshot())
}

func (s *Server) handleSaveIdentity(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	var form profileflow.IdentityForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	flow.UpdateIdentity(form)
	if err := flow.SaveIdentity(r.Context()); err != nil {
		respondFlowError(w, err, "failed to save profile")
		return
	}

	respondJSON(w, http.StatusOK, flow.Snapshot())
}

type advanceRequest struct {
	From string `json:"from"`
}

func (s *Server) handleAdvanceSection(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := flow.Advance(r.Context(), profileflow.Section(req.From)); err != nil {
		respondFlowError(w, err, "failed to advance section")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"active": string(flow.ActiveSection()),
	})
}

func (s *Server) handleAddEducation(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	var edu models.Education
	if err := json.NewDecoder(r.Body).Decode(&edu); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	saved, err := flow.AddEducation(r.Context(), edu)
	if err != nil {
		respondFlowError(w, err, "failed to save education")
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteEducation(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	id, err := entryID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid entry id")
		return
	}

	if err := flow.DeleteEducation(r.Context(), id); err != nil {
		respondFlowError(w, err, "failed to delete education")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "education deleted"})
}

func (s *Server) handleAddCertification(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart body")
		return
	}

	year, _ := strconv.Atoi(r.FormValue("year"))
	cert := client.CertificationUpload{
		Name:        r.FormValue("name"),
		Organizer:   r.FormValue("organizer"),
		Year:        year,
		Description: r.FormValue("description"),
		Expertise:   r.FormValue("bidang_keahlian"),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		cert.File = file
		cert.FileName = header.Filename
	}

	saved, err := flow.AddCertification(r.Context(), cert)
	if err != nil {
		respondFlowError(w, err, "failed to save certification")
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteCertification(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	id, err := entryID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid entry id")
		return
	}

	if err := flow.DeleteCertification(r.Context(), id); err != nil {
		respondFlowError(w, err, "failed to delete certification")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "certification deleted"})
}

func (s *Server) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	var exp models.Experience
	if err := json.NewDecoder(r.Body).Decode(&exp); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	saved, err := flow.AddExperience(r.Context(), exp)
	if err != nil {
		respondFlowError(w, err, "failed to save experience")
		return
	}

	if saved == nil {
		respondJSON(w, http.StatusOK, map[string]string{"message": "experience recorded"})
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteExperience(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	flow := s.registry.Profile(sessionID)

	id, err := entryID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid entry id")
		return
	}

	if err := flow.DeleteExperience(r.Context(), id); err != nil {
		respondFlowError(w, err, "failed to delete experience")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "experience deleted"})
}

// Avatar handlers

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "avatar file is required")
		return
	}
	defer file.Close()

	token, err := s.sessions.Token(r.Context(), sessionID)
	if err != nil {
		respondFlowError(w, err, "failed to upload avatar")
		return
	}

	url, err := s.backend.UploadAvatar(r.Context(), token, header.Filename, file)
	if err != nil {
		respondFlowError(w, err, "failed to upload avatar")
		return
	}

	// Refresh the cached identity so the navbar avatar updates everywhere.
	if identity, err := s.sessions.Identity(r.Context(), sessionID); err == nil {
		identity.AvatarURL = url
		if err := s.sessions.SetIdentity(r.Context(), sessionID, identity); err != nil {
			slog.Warn("failed to refresh cached identity", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())

	token, err := s.sessions.Token(r.Context(), sessionID)
	if err != nil {
		respondFlowError(w, err, "failed to delete avatar")
		return
	}

	if err := s.backend.DeleteAvatar(r.Context(), token); err != nil {
		respondFlowError(w, err, "failed to delete avatar")
		return
	}

	if identity, err := s.sessions.Identity(r.Context(), sessionID); err == nil {
		identity.AvatarURL = ""
		if err := s.sessions.SetIdentity(r.Context(), sessionID, identity); err != nil {
			slog.Warn("failed to refresh cached identity", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "avatar removed"})
}

func entryID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}
