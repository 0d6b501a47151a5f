package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/forecast-cache-service/internal/store"
)

const testPayload = `[{"number":1,"name":"Tonight"}]`

func newTestCache(t *testing.T, st store.Store, sliding, max time.Duration) *ForecastCache {
	t.Helper()
	c, err := New(st, Config{SlidingTTL: sliding, MaxTTL: max}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// TestNew_Validation verifies that invalid TTL configurations are rejected.
func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		sliding time.Duration
		max     time.Duration
	}{
		{name: "zero sliding", sliding: 0, max: time.Minute},
		{name: "zero max", sliding: time.Second, max: 0},
		{name: "negative sliding", sliding: -time.Second, max: time.Minute},
		{name: "sliding exceeds max", sliding: time.Minute, max: time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(store.NewMemoryStore(), Config{SlidingTTL: tt.sliding, MaxTTL: tt.max}, nil)
			if err == nil {
				t.Errorf("New(sliding=%v, max=%v) error = nil, want error", tt.sliding, tt.max)
			}
		})
	}
}

// TestLookup_EmptyStore verifies that an empty store yields a miss, not an error.
func TestLookup_EmptyStore(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, store.NewMemoryStore(), 5*time.Second, 30*time.Second)

	payload, hit, err := c.Lookup(ctx, 39.74, -104.99)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit {
		t.Error("Lookup() hit = true, want false for empty store")
	}
	if payload != "" {
		t.Errorf("Lookup() payload = %q, want empty", payload)
	}
}

// TestStoreLookup_Hit verifies the write-then-read round trip and that both
// keys are written consistently.
func TestStoreLookup_Hit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := newTestCache(t, st, 5*time.Second, 30*time.Second)

	if err := c.Store(ctx, 39.74, -104.99, testPayload); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	valueKey, creationKey := DeriveKeys(39.74, -104.99)
	raw, ok, err := st.Get(ctx, creationKey)
	if err != nil || !ok {
		t.Fatalf("creation key not written: ok=%v err=%v", ok, err)
	}
	if _, err := time.Parse(time.RFC3339Nano, raw); err != nil {
		t.Errorf("creation timestamp %q not parseable: %v", raw, err)
	}
	if remaining, ok, _ := st.TTL(ctx, valueKey); !ok || remaining > 5*time.Second {
		t.Errorf("value key TTL = %v, %v, want within sliding window", remaining, ok)
	}

	payload, hit, err := c.Lookup(ctx, 39.74, -104.99)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !hit {
		t.Fatal("Lookup() hit = false, want true")
	}
	if payload != testPayload {
		t.Errorf("Lookup() payload = %q, want %q", payload, testPayload)
	}
}

// TestLookup_SlidingRenewal verifies that a hit resets the value key's
// remaining TTL to the full sliding duration and leaves the creation
// timestamp untouched.
func TestLookup_SlidingRenewal(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := newTestCache(t, st, time.Minute, time.Hour)

	if err := c.Store(ctx, 39.74, -104.99, testPayload); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	valueKey, creationKey := DeriveKeys(39.74, -104.99)
	createdBefore, _, _ := st.Get(ctx, creationKey)

	// Shrink the residency window, then confirm a hit restores it.
	if _, err := st.Expire(ctx, valueKey, time.Second); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if _, hit, err := c.Lookup(ctx, 39.74, -104.99); err != nil || !hit {
		t.Fatalf("Lookup() = hit=%v err=%v, want hit", hit, err)
	}

	remaining, ok, err := st.TTL(ctx, valueKey)
	if err != nil || !ok {
		t.Fatalf("TTL() = %v, %v, %v", remaining, ok, err)
	}
	if remaining <= time.Second {
		t.Errorf("TTL() = %v, want reset toward full sliding window", remaining)
	}

	createdAfter, _, _ := st.Get(ctx, creationKey)
	if createdBefore != createdAfter {
		t.Errorf("creation timestamp changed on hit: %q -> %q", createdBefore, createdAfter)
	}
}

// TestLookup_MaxAgeExceeded verifies that once absolute age passes the
// ceiling the entry is treated as a miss even while still resident.
func TestLookup_MaxAgeExceeded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := newTestCache(t, st, time.Minute, 2*time.Minute)

	if err := c.Store(ctx, 39.74, -104.99, testPayload); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// Entry still resident, but created longer ago than the ceiling allows.
	c.now = func() time.Time { return time.Now().Add(3 * time.Minute) }

	_, hit, err := c.Lookup(ctx, 39.74, -104.99)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit {
		t.Error("Lookup() hit = true, want false for entry past max age")
	}
}

// TestLookup_MalformedTimestamp verifies that an unparseable creation
// timestamp is recovered as a miss, never an error.
func TestLookup_MalformedTimestamp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := newTestCache(t, st, time.Minute, time.Hour)

	valueKey, creationKey := DeriveKeys(39.74, -104.99)
	if err := st.SetWithTTL(ctx, valueKey, testPayload, time.Minute); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	if err := st.Set(ctx, creationKey, "not-a-timestamp"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	_, hit, err := c.Lookup(ctx, 39.74, -104.99)
	if err != nil {
		t.Fatalf("Lookup() error = %v, want nil for malformed timestamp", err)
	}
	if hit {
		t.Error("Lookup() hit = true, want false for malformed timestamp")
	}
}

// TestLookup_MissingTimestamp verifies that a value without its companion
// creation key (a torn write) is treated as a miss.
func TestLookup_MissingTimestamp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := newTestCache(t, st, time.Minute, time.Hour)

	valueKey, _ := DeriveKeys(39.74, -104.99)
	if err := st.SetWithTTL(ctx, valueKey, testPayload, time.Minute); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}

	_, hit, err := c.Lookup(ctx, 39.74, -104.99)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit {
		t.Error("Lookup() hit = true, want false for value without creation time")
	}
}

// TestStore_EmptyPayload verifies that empty payloads are never written.
func TestStore_EmptyPayload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := newTestCache(t, st, time.Minute, time.Hour)

	if err := c.Store(ctx, 39.74, -104.99, ""); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	valueKey, creationKey := DeriveKeys(39.74, -104.99)
	if _, ok, _ := st.Get(ctx, valueKey); ok {
		t.Error("value key written for empty payload")
	}
	if _, ok, _ := st.Get(ctx, creationKey); ok {
		t.Error("creation key written for empty payload")
	}
}

// failingStore returns a fixed error from every operation.
type failingStore struct {
	err error
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, f.err
}
func (f *failingStore) Set(ctx context.Context, key, value string) error { return f.err }
func (f *failingStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.err
}
func (f *failingStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, f.err
}
func (f *failingStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	return 0, false, f.err
}
func (f *failingStore) Ping(ctx context.Context) error { return f.err }
func (f *failingStore) Close() error                   { return nil }

// TestLookup_StoreError verifies that store failures propagate as errors
// rather than being swallowed as misses.
func TestLookup_StoreError(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("connection refused")
	c := newTestCache(t, &failingStore{err: storeErr}, time.Minute, time.Hour)

	_, _, err := c.Lookup(ctx, 39.74, -104.99)
	if !errors.Is(err, storeErr) {
		t.Errorf("Lookup() error = %v, want wrapped %v", err, storeErr)
	}

	if err := c.Store(ctx, 39.74, -104.99, testPayload); !errors.Is(err, storeErr) {
		t.Errorf("Store() error = %v, want wrapped %v", err, storeErr)
	}
}
