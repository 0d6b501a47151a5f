package store

import (
	"context"
	"time"

	"github.com/kjstillabower/forecast-cache-service/internal/observability"
)

// InstrumentedStore wraps a Store and records per-operation latency and
// failure metrics.
type InstrumentedStore struct {
	inner Store
}

// NewInstrumented wraps s with metric recording.
func NewInstrumented(s Store) *InstrumentedStore {
	return &InstrumentedStore{inner: s}
}

func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		observability.StoreErrorsTotal.WithLabelValues(op).Inc()
	}
	observability.StoreOperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, ok, err := s.inner.Get(ctx, key)
	observe("get", start, err)
	return value, ok, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, value)
	observe("set", start, err)
	return err
}

func (s *InstrumentedStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := s.inner.SetWithTTL(ctx, key, value, ttl)
	observe("set_with_ttl", start, err)
	return err
}

func (s *InstrumentedStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := s.inner.Expire(ctx, key, ttl)
	observe("expire", start, err)
	return ok, err
}

func (s *InstrumentedStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	start := time.Now()
	remaining, ok, err := s.inner.TTL(ctx, key)
	observe("ttl", start, err)
	return remaining, ok, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	observe("ping", start, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
