package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and redis-less deployments.
// Update holds the lock across the read-modify-write, so conflicts cannot
// occur.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, key string, fn func(current string, found bool) (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, found := s.data[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	s.data[key] = next
	return nil
}
