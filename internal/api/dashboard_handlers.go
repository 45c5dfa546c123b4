package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/diploy/competency-gateway/internal/mapping"
	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/statestore"
)

// handleDashboard reconciles the user's competency mapping. The dedicated
// mapping endpoint is preferred; when it fails or comes back empty the
// interview transcript is the fallback, and when both are unusable the
// response carries the pending placeholder rather than an error.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())

	token, err := s.sessions.Token(r.Context(), sessionID)
	if err != nil {
		respondFlowError(w, err, "failed to load the dashboard")
		return
	}

	var result models.CompetencyMapping

	records, err := s.backend.FetchMapping(r.Context(), token)
	if err == nil && len(records) > 0 {
		result = s.reconciler.Reconcile(mapping.EndpointSource{Records: records})
	} else {
		if err != nil {
			slog.Warn("mapping endpoint unavailable, falling back to chat history", "error", err)
		}
		history, histErr := s.backend.ChatHistory(r.Context(), token)
		if histErr != nil {
			slog.Warn("chat history unavailable", "error", histErr)
			result = s.reconciler.Reconcile(nil)
		} else {
			result = s.reconciler.Reconcile(mapping.ChatSource{
				History:   history,
				Attempted: s.attemptedAreas(r, sessionID),
			})
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// attemptedAreas collects the per-area assessment markers from the
// session store.
func (s *Server) attemptedAreas(r *http.Request, sessionID string) map[models.AreaKey]bool {
	attempted := make(map[models.AreaKey]bool)

	keys, err := s.store.Keys(r.Context(), sessionID)
	if err != nil {
		slog.Warn("failed to list session keys", "error", err)
		return attempted
	}
	for _, key := range keys {
		if area, ok := strings.CutPrefix(key, statestore.KeyAssessPrefix); ok {
			attempted[models.AreaKey(area)] = true
		}
	}
	return attempted
}
