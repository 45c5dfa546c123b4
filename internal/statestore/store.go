// Package statestore is the single system of record for session-scoped flow
// state: the bearer token, cached identity, identity lock flags and the
// per-area assessment markers. Views never touch these keys directly; they
// go through the Store interface, and concurrently open views converge by
// subscribing to change events.
package statestore

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys within a session scope.
const (
	KeyToken         = "token"
	KeyExpiresAt     = "token_expires_at"
	KeyIdentity      = "user"
	KeyProfileLocked = "profile_locked"
	KeyActiveTab     = "profile_active_tab"

	// Legacy local mapping cache. Superseded by live backend queries; the
	// key is still read-tolerated so an old value never conflicts.
	KeyLegacyMapping = "mapping"

	// KeyAssessPrefix marks an area as attempted, e.g.
	// "assessment_status_DSC" = "assessed".
	KeyAssessPrefix = "assessment_status_"
)

// Common errors
var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Event is a change notification for one key of one session. Events mirror
// the browser storage-event model: every Set and Delete produces one, and a
// Clear produces a single event with an empty key.
type Event struct {
	SessionID string `json:"session_id"`
	Key       string `json:"key"`
	Value     string `json:"value,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// Store is the session-scoped key/value repository. Writes are
// last-write-wins; updates are infrequent and user-driven, so no locking is
// offered beyond per-call atomicity.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error

	// Clear removes every key of a session (logout).
	Clear(ctx context.Context, sessionID string) error

	Keys(ctx context.Context, sessionID string) ([]string, error)
	Sessions(ctx context.Context) ([]string, error)

	// Watch subscribes to change events. The returned cancel func must be
	// called to release the subscription. Slow subscribers drop events
	// rather than block writers.
	Watch() (<-chan Event, func())

	Ping(ctx context.Context) error
	Close() error
}

// notifier fans change events out to subscribers. Shared by all Store
// implementations.
type notifier struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan Event)}
}

func (n *notifier) subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan Event, 64)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

func (n *notifier) publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// subscriber is not keeping up, drop
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
