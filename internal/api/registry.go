package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/diploy/competency-gateway/internal/assessment"
	"github.com/diploy/competency-gateway/internal/chat"
	"github.com/diploy/competency-gateway/internal/profileflow"
	"github.com/diploy/competency-gateway/internal/session"
	"github.com/diploy/competency-gateway/internal/statestore"
	"github.com/diploy/competency-gateway/pkg/client"
)

// Registry holds the per-session flow state machines. Flows are created
// lazily on first use and dropped on logout or session expiry.
type Registry struct {
	backend  *client.Client
	sessions *session.Manager
	store    statestore.Store

	mu    sync.Mutex
	flows map[string]*sessionFlows
}

type sessionFlows struct {
	profile     *profileflow.Flow
	chat        *chat.Session
	assessments map[string]*assessment.Controller
}

// NewRegistry creates an empty flow registry.
func NewRegistry(backend *client.Client, sessions *session.Manager, store statestore.Store) *Registry {
	return &Registry{
		backend:  backend,
		sessions: sessions,
		store:    store,
		flows:    make(map[string]*sessionFlows),
	}
}

func (r *Registry) tokenFunc(sessionID string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return r.sessions.Token(ctx, sessionID)
	}
}

// flowsLocked returns the session's flow bundle, creating it on demand.
// Callers must hold r.mu.
func (r *Registry) flowsLocked(sessionID string) *sessionFlows {
	f, ok := r.flows[sessionID]
	if !ok {
		f = &sessionFlows{assessments: make(map[string]*assessment.Controller)}
		r.flows[sessionID] = f
	}
	return f
}

// Profile returns the session's profile flow, creating it on first use.
func (r *Registry) Profile(sessionID string) *profileflow.Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.flowsLocked(sessionID)
	if f.profile == nil {
		f.profile = profileflow.NewFlow(r.backend, r.tokenFunc(sessionID), r.store, sessionID)
	}
	return f.profile
}

// Chat returns the session's interview conversation, creating it on first
// use.
func (r *Registry) Chat(sessionID string) *chat.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.flowsLocked(sessionID)
	if f.chat == nil {
		f.chat = chat.NewSession(r.backend, r.tokenFunc(sessionID))
	}
	return f.chat
}

// Assessment returns the controller for one (area, level) pair, creating
// it on first use. Reloading the same pair reuses the controller so an
// in-flight submit cannot be raced by a second one.
func (r *Registry) Assessment(sessionID, area string, level int) *assessment.Controller {
	key := fmt.Sprintf("%s|%d", area, level)

	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.flowsLocked(sessionID)
	ctrl, ok := f.assessments[key]
	if !ok {
		ctrl = assessment.NewController(r.backend, r.tokenFunc(sessionID), r.store, sessionID, area, level)
		f.assessments[key] = ctrl
	}
	return ctrl
}

// Drop discards all flow state for a session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.flows, sessionID)
	r.mu.Unlock()
}
