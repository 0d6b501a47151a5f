package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// RedisConfig holds connection settings for the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// RedisStore implements Store on a Redis server.
type RedisStore struct {
	client valkey.Client
}

// NewRedisStore connects to Redis and verifies reachability with a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("store: redis address required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{cfg.Addr},
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		DisableCache:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("store: redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get implements Store.Get. Returns ("", false, nil) on miss.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if errors.Is(err, valkey.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: redis get: %w", err)
	}
	value, err := resp.ToString()
	if err != nil {
		return "", false, fmt.Errorf("store: redis get value: %w", err)
	}
	return value, true, nil
}

// Set implements Store.Set.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	cmd := s.client.B().Set().Key(key).Value(value).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// SetWithTTL implements Store.SetWithTTL.
func (s *RedisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(value).Px(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("store: redis set px: %w", err)
	}
	return nil
}

// Expire implements Store.Expire. Returns false when the key does not exist.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	cmd := s.client.B().Pexpire().Key(key).Milliseconds(ttl.Milliseconds()).Build()
	set, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("store: redis pexpire: %w", err)
	}
	return set == 1, nil
}

// TTL implements Store.TTL. PTTL returns -2 for a missing key and -1 for a
// key without expiration; both map to ok=false.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ms, err := s.client.Do(ctx, s.client.B().Pttl().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, false, fmt.Errorf("store: redis pttl: %w", err)
	}
	if ms < 0 {
		return 0, false, nil
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

// Ping checks if Redis is reachable. Used for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("store: redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client connections. Call during shutdown.
func (s *RedisStore) Close() error {
	s.client.Close()
	return nil
}
