package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/diploy/competency-gateway/internal/session"
)

// SessionCookie carries the gateway session ID between requests. The
// X-Session-ID header takes precedence for non-browser clients.
const SessionCookie = "gw_session"

// SessionMiddleware resolves the gateway session and rejects requests
// whose backend token is missing or expired. Failures always produce a
// 401 with the login_required code so the client redirects to login
// instead of surfacing an inline error.
type SessionMiddleware struct {
	sessions *session.Manager
}

// NewSessionMiddleware creates new session middleware
func NewSessionMiddleware(sessions *session.Manager) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Require authenticates the request and puts the session ID in context.
func (m *SessionMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := extractSessionID(r)
		if sessionID == "" {
			respondError(w, http.StatusUnauthorized, "login_required", "no active session")
			return
		}

		if _, err := m.sessions.Token(r.Context(), sessionID); err != nil {
			slog.Debug("session rejected", "session_id", maskID(sessionID), "error", err)
			respondError(w, http.StatusUnauthorized, "login_required", "session expired, please log in again")
			return
		}

		ctx := ContextWithSession(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractSessionID reads the session ID from the X-Session-ID header, a
// bearer-style Authorization header, or the session cookie.
func extractSessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// maskID returns the first 8 chars of a session ID for safe logging
func maskID(id string) string {
	if len(id) < 8 {
		return "***"
	}
	return id[:8] + "..."
}
