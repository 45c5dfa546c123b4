package statestore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gw:session:"

// RedisStore implements Store on a Redis hash per session. State survives
// gateway restarts, which keeps flow state (identity locks, assessment
// markers) consistent with what the user last saw.
type RedisStore struct {
	client *redis.Client
	notify *notifier
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, notify: newNotifier()}, nil
}

func sessionHashKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	value, err := s.client.HGet(ctx, sessionHashKey(sessionID), key).Result()
	if err == redis.Nil {
		exists, eerr := s.client.Exists(ctx, sessionHashKey(sessionID)).Result()
		if eerr == nil && exists == 0 {
			return "", ErrSessionNotFound
		}
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	if err := s.client.HSet(ctx, sessionHashKey(sessionID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to write session key: %w", err)
	}
	s.notify.publish(Event{SessionID: sessionID, Key: key, Value: value})
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	if err := s.client.HDel(ctx, sessionHashKey(sessionID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete session key: %w", err)
	}
	s.notify.publish(Event{SessionID: sessionID, Key: key, Deleted: true})
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionHashKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.notify.publish(Event{SessionID: sessionID, Deleted: true})
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, sessionHashKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session keys: %w", err)
	}
	return keys, nil
}

// Sessions scans for all session hashes. Used by the cleanup worker only,
// so the SCAN cost is acceptable.
func (s *RedisStore) Sessions(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)

	pattern := redisKeyPrefix + "*"
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan sessions: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, redisKeyPrefix))
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return ids, nil
}

func (s *RedisStore) Watch() (<-chan Event, func()) {
	return s.notify.subscribe()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	s.notify.closeAll()
	if err := s.client.Close(); err != nil {
		slog.Warn("failed to close redis client", "error", err)
		return err
	}
	return nil
}
