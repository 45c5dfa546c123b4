package statestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a single session_state table. It is the
// durable driver for deployments that already run PostgreSQL and do not want
// a Redis dependency.
type PostgresStore struct {
	pool   *pgxpool.Pool
	notify *notifier
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, notify: newNotifier()}, nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM session_state WHERE session_id = $1 AND key = $2`,
		sessionID, key,
	).Scan(&value)

	if err == pgx.ErrNoRows {
		var count int
		if cerr := s.pool.QueryRow(ctx,
			`SELECT count(*) FROM session_state WHERE session_id = $1`, sessionID,
		).Scan(&count); cerr == nil && count == 0 {
			return "", ErrSessionNotFound
		}
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}

	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_state (session_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, sessionID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write session key: %w", err)
	}

	s.notify.publish(Event{SessionID: sessionID, Key: key, Value: value})
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM session_state WHERE session_id = $1 AND key = $2`,
		sessionID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session key: %w", err)
	}

	s.notify.publish(Event{SessionID: sessionID, Key: key, Deleted: true})
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM session_state WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.notify.publish(Event{SessionID: sessionID, Deleted: true})
	return nil
}

func (s *PostgresStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM session_state WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list session keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT session_id FROM session_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Watch() (<-chan Event, func()) {
	return s.notify.subscribe()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.notify.closeAll()
	s.pool.Close()
	return nil
}
