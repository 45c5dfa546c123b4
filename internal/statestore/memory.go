package statestore

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process map. It is the default
// driver and the one used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
	notify   *notifier
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[string]string),
		notify:   newNotifier(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kv, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	value, ok := kv[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	kv, ok := s.sessions[sessionID]
	if !ok {
		kv = make(map[string]string)
		s.sessions[sessionID] = kv
	}
	kv[key] = value
	s.mu.Unlock()

	s.notify.publish(Event{SessionID: sessionID, Key: key, Value: value})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID, key string) error {
	s.mu.Lock()
	if kv, ok := s.sessions[sessionID]; ok {
		delete(kv, key)
	}
	s.mu.Unlock()

	s.notify.publish(Event{SessionID: sessionID, Key: key, Deleted: true})
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.notify.publish(Event{SessionID: sessionID, Deleted: true})
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kv, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) Watch() (<-chan Event, func()) {
	return s.notify.subscribe()
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.notify.closeAll()
	return nil
}
