// Package cleanup sweeps gateway sessions whose backend token has
// expired, so stale state does not pile up in the session store.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/diploy/competency-gateway/internal/session"
	"github.com/diploy/competency-gateway/internal/statestore"
)

// Dropper releases in-memory flow state for a purged session.
type Dropper interface {
	Drop(sessionID string)
}

// Cleaner handles periodic cleanup of expired sessions
type Cleaner struct {
	store    statestore.Store
	sessions *session.Manager
	dropper  Dropper
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(store statestore.Store, sessions *session.Manager, dropper Dropper, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		store:    store,
		sessions: sessions,
		dropper:  dropper,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup finds and clears sessions whose token has expired
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	sessionIDs, err := c.store.Sessions(ctx)
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		return
	}

	purged := 0
	for _, id := range sessionIDs {
		if !c.sessions.Expired(ctx, id) {
			continue
		}

		if err := c.store.Clear(ctx, id); err != nil {
			slog.Error("failed to clear expired session", "error", err, "session_id", id)
			continue
		}
		if c.dropper != nil {
			c.dropper.Drop(id)
		}
		purged++
	}

	if purged > 0 {
		slog.Info("expired sessions purged", "count", purged)
	} else {
		slog.Debug("no expired sessions found")
	}
}
