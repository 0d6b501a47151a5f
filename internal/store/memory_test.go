package store

import (
	"context"
	"testing"
	"time"
)

// TestMemoryStore_GetSet verifies that Set stores values and Get retrieves
// them correctly.
func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

// TestMemoryStore_Get_Miss verifies that Get returns ok=false when the key
// does not exist.
func TestMemoryStore_Get_Miss(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestMemoryStore_SetWithTTL_Expired verifies that entries expire after the
// TTL elapses and are removed on access.
func TestMemoryStore_SetWithTTL_Expired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SetWithTTL(ctx, "k", "v", 1*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired entry")
	}
}

// TestMemoryStore_TTL verifies remaining-TTL reporting for expiring,
// non-expiring, and missing keys.
func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SetWithTTL(ctx, "expiring", "v", time.Minute); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	remaining, ok, err := s.TTL(ctx, "expiring")
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if !ok {
		t.Fatal("TTL() ok = false, want true")
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("TTL() = %v, want in (0, 1m]", remaining)
	}

	if err := s.Set(ctx, "forever", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	_, ok, err = s.TTL(ctx, "forever")
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ok {
		t.Error("TTL() ok = true, want false for non-expiring key")
	}

	_, ok, err = s.TTL(ctx, "missing")
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ok {
		t.Error("TTL() ok = true, want false for missing key")
	}
}

// TestMemoryStore_Expire verifies that Expire resets the remaining TTL for
// existing keys and reports false for missing ones.
func TestMemoryStore_Expire(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SetWithTTL(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}

	set, err := s.Expire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if !set {
		t.Fatal("Expire() = false, want true for existing key")
	}

	remaining, ok, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if !ok {
		t.Fatal("TTL() ok = false after Expire")
	}
	if remaining <= 10*time.Millisecond {
		t.Errorf("TTL() = %v, want reset toward 1m", remaining)
	}

	set, err = s.Expire(ctx, "missing", time.Minute)
	if err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if set {
		t.Error("Expire() = true, want false for missing key")
	}
}
