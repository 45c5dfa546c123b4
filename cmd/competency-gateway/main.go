package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diploy/competency-gateway/internal/api"
	"github.com/diploy/competency-gateway/internal/cleanup"
	"github.com/diploy/competency-gateway/internal/config"
	"github.com/diploy/competency-gateway/internal/mapping"
	"github.com/diploy/competency-gateway/internal/session"
	"github.com/diploy/competency-gateway/internal/statestore"
	"github.com/diploy/competency-gateway/pkg/client"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting competency-gateway",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"backend", cfg.Backend.BaseURL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize the session state store
	store, err := newStore(initCtx, cfg)
	if err != nil {
		slog.Error("failed to create state store", "error", err)
		os.Exit(1)
	}

	// Load the competency area catalog
	catalog := mapping.NewCatalog()
	if cfg.Areas.Dir != "" {
		if err := catalog.LoadFromDir(cfg.Areas.Dir); err != nil {
			slog.Warn("failed to load area catalog from dir", "dir", cfg.Areas.Dir, "error", err)
		}
	}

	// Initialize the backend SDK and the session manager
	backend := client.NewClient(cfg.Backend.BaseURL, client.WithTimeout(cfg.Backend.Timeout))
	sessions := session.NewManager(store, backend)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, backend, sessions, store, catalog)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the expired-session sweeper
	cleaner := cleanup.NewCleaner(store, sessions, server.Registry(), cfg.Cleanup.Interval)
	cleaner.Start(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := store.Close(); err != nil {
		slog.Error("state store close error", "error", err)
	}

	slog.Info("competency-gateway stopped")
}

// newStore builds the configured state store driver, running migrations
// first for the postgres driver.
func newStore(ctx context.Context, cfg *config.Config) (statestore.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreRedis:
		return statestore.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	case config.StorePostgres:
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := statestore.Migrate(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return statestore.NewPostgresStore(ctx, statestore.PostgresConfig{DSN: cfg.Database.DSN})
	default:
		return statestore.NewMemoryStore(), nil
	}
}
