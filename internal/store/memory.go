package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory map with TTL-based
// expiration. Expired entries are removed on access. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
}

// memoryEntry stores a value with its expiration timestamp. A zero
// expiresAt means the entry never expires.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
	}
}

// Get retrieves the value for key if present and not expired.
// Returns ("", false, nil) on miss; expired entries are removed on access.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.data, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores a value without expiration.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = memoryEntry{value: value}
	return nil
}

// SetWithTTL stores a value that expires after ttl elapses.
func (s *MemoryStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Expire resets the remaining TTL of an existing, unexpired key.
// Returns false when the key is absent or already expired.
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.data, key)
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	s.data[key] = entry
	return true, nil
}

// TTL reports the remaining time to live for key. ok is false for absent,
// expired, or non-expiring keys.
func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if ctx.Err() != nil {
		return 0, false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok || entry.expiresAt.IsZero() {
		return 0, false, nil
	}
	remaining := time.Until(entry.expiresAt)
	if remaining <= 0 {
		delete(s.data, key)
		return 0, false, nil
	}
	return remaining, true, nil
}

// Ping implements Store.Ping. The in-memory store is always reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error {
	return nil
}
