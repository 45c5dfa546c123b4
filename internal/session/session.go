// Package session owns the gateway session lifecycle: one session per
// logged-in browser, holding the backend bearer token and the cached
// minimal identity. Set at login, read by every authenticated call,
// cleared at logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/statestore"
	"github.com/diploy/competency-gateway/pkg/client"
)

// ErrUnauthenticated signals a missing or expired session. The API layer
// must translate it into a redirect to login, never an inline error.
var ErrUnauthenticated = errors.New("unauthenticated")

// Backend is the subset of the SDK the session manager needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*client.Token, error)
	GetProfile(ctx context.Context, token string) (*models.Profile, error)
}

// Manager manages gateway sessions on top of the state store.
type Manager struct {
	store   statestore.Store
	backend Backend
}

// NewManager creates a session manager.
func NewManager(store statestore.Store, backend Backend) *Manager {
	return &Manager{store: store, backend: backend}
}

// Login exchanges credentials for a backend token and opens a gateway
// session around it. The cached identity is best effort: a profile fetch
// failure does not fail the login.
func (m *Manager) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	token, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	sessionID := uuid.NewString()

	if err := m.store.Set(ctx, sessionID, statestore.KeyToken, token.AccessToken); err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}

	if exp, ok := tokenExpiry(token.AccessToken); ok {
		if err := m.store.Set(ctx, sessionID, statestore.KeyExpiresAt, exp.Format(time.RFC3339)); err != nil {
			return "", nil, fmt.Errorf("failed to store token expiry: %w", err)
		}
	}

	identity := &models.Identity{Email: email}
	if profile, err := m.backend.GetProfile(ctx, token.AccessToken); err != nil {
		slog.Warn("failed to fetch profile for identity cache", "error", err)
	} else {
		identity.FullName = profile.FullName
		identity.AvatarURL = profile.AvatarURL
		if profile.Email != "" {
			identity.Email = profile.Email
		}
	}

	if err := m.SetIdentity(ctx, sessionID, identity); err != nil {
		return "", nil, err
	}

	return sessionID, identity, nil
}

// Logout clears every key of the session.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	return m.store.Clear(ctx, sessionID)
}

// Token returns the bearer token for a session, or ErrUnauthenticated when
// the session is unknown, tokenless, or past its expiry.
func (m *Manager) Token(ctx context.Context, sessionID string) (string, error) {
	token, err := m.store.Get(ctx, sessionID, statestore.KeyToken)
	if err != nil {
		if errors.Is(err, statestore.ErrKeyNotFound) || errors.Is(err, statestore.ErrSessionNotFound) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	if expired, _ := m.expired(ctx, sessionID); expired {
		return "", ErrUnauthenticated
	}

	return token, nil
}

// Identity returns the cached minimal identity for a session.
func (m *Manager) Identity(ctx context.Context, sessionID string) (*models.Identity, error) {
	raw, err := m.store.Get(ctx, sessionID, statestore.KeyIdentity)
	if err != nil {
		if errors.Is(err, statestore.ErrKeyNotFound) || errors.Is(err, statestore.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return &identity, nil
}

// SetIdentity stores the cached identity for a session.
func (m *Manager) SetIdentity(ctx context.Context, sessionID string, identity *models.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := m.store.Set(ctx, sessionID, statestore.KeyIdentity, string(raw)); err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}
	return nil
}

// Expired reports whether a session's token is past its recorded expiry.
// Sessions without a recorded expiry never expire here; the backend remains
// the authority and will reject their token with 401.
func (m *Manager) Expired(ctx context.Context, sessionID string) bool {
	expired, _ := m.expired(ctx, sessionID)
	return expired
}

func (m *Manager) expired(ctx context.Context, sessionID string) (bool, error) {
	raw, err := m.store.Get(ctx, sessionID, statestore.KeyExpiresAt)
	if err != nil {
		return false, err
	}
	exp, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false, err
	}
	return time.Now().After(exp), nil
}

// tokenExpiry extracts the exp claim without verifying the signature. The
// backend is the token issuer of record; the gateway only needs the expiry
// to classify a stale session before wasting a round trip.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
