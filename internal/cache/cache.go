package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/forecast-cache-service/internal/observability"
	"github.com/kjstillabower/forecast-cache-service/internal/store"
)

// creationTimeFormat is the round-trippable timestamp format stored under
// the creation-time key.
const creationTimeFormat = time.RFC3339Nano

// Config holds the two freshness durations. SlidingTTL controls memory
// residency (it resets on every hit); MaxTTL is the authoritative ceiling on
// data age from creation, independent of read activity.
type Config struct {
	SlidingTTL time.Duration
	MaxTTL     time.Duration
}

// ForecastCache evaluates and maintains the dual-TTL freshness policy over a
// key-value store. The stored forecast payload is opaque to this layer.
type ForecastCache struct {
	store      store.Store
	slidingTTL time.Duration
	maxTTL     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a ForecastCache. Both TTLs must be positive and the sliding
// window must not exceed the absolute ceiling.
func New(st store.Store, cfg Config, logger *zap.Logger) (*ForecastCache, error) {
	if cfg.SlidingTTL <= 0 {
		return nil, fmt.Errorf("cache: sliding TTL must be positive, got %v", cfg.SlidingTTL)
	}
	if cfg.MaxTTL <= 0 {
		return nil, fmt.Errorf("cache: max TTL must be positive, got %v", cfg.MaxTTL)
	}
	if cfg.SlidingTTL > cfg.MaxTTL {
		return nil, fmt.Errorf("cache: sliding TTL %v exceeds max TTL %v", cfg.SlidingTTL, cfg.MaxTTL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastCache{
		store:      st,
		slidingTTL: cfg.SlidingTTL,
		maxTTL:     cfg.MaxTTL,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Lookup reads the entry for the coordinate pair and applies the freshness
// decision table. Returns (payload, true, nil) on a hit; a miss, a stale
// entry, or a malformed creation timestamp all return ("", false, nil).
// Errors mean the store itself failed.
//
// On a hit the value key's expiration is reset to the sliding TTL. The
// creation-time key is never touched, so absolute age keeps accruing from
// the original write even under continuous re-access.
func (c *ForecastCache) Lookup(ctx context.Context, lat, lon float64) (string, bool, error) {
	valueKey, creationKey := DeriveKeys(lat, lon)

	payload, ok, err := c.store.Get(ctx, valueKey)
	if err != nil {
		return "", false, fmt.Errorf("cache: read value: %w", err)
	}
	if !ok {
		observability.CacheOutcomesTotal.WithLabelValues("miss").Inc()
		return "", false, nil
	}

	rawCreated, ok, err := c.store.Get(ctx, creationKey)
	if err != nil {
		return "", false, fmt.Errorf("cache: read creation time: %w", err)
	}
	if !ok {
		// Value present without a creation timestamp: a torn write or a
		// partially expired entry. Untrusted, so treated as a miss.
		observability.CacheOutcomesTotal.WithLabelValues("miss").Inc()
		c.logger.Warn("cached value has no creation timestamp, treating as miss",
			zap.String("key", valueKey))
		return "", false, nil
	}

	createdAt, parseErr := time.Parse(creationTimeFormat, rawCreated)
	if parseErr != nil {
		observability.CacheOutcomesTotal.WithLabelValues("malformed_timestamp").Inc()
		c.logger.Warn("malformed creation timestamp, treating as miss",
			zap.String("key", creationKey),
			zap.String("raw", rawCreated),
			zap.Error(parseErr))
		return "", false, nil
	}

	age := c.now().Sub(createdAt)
	if age > c.maxTTL {
		observability.CacheOutcomesTotal.WithLabelValues("stale").Inc()
		c.logger.Debug("cached entry exceeded max age, treating as miss",
			zap.String("key", valueKey),
			zap.Duration("age", age),
			zap.Duration("max_ttl", c.maxTTL))
		return "", false, nil
	}

	// Diagnostic only: the remaining residency window plays no part in the
	// freshness decision.
	if remaining, ok, ttlErr := c.store.TTL(ctx, valueKey); ttlErr != nil {
		c.logger.Debug("remaining TTL read failed", zap.String("key", valueKey), zap.Error(ttlErr))
	} else if ok {
		c.logger.Debug("cache hit",
			zap.String("key", valueKey),
			zap.Duration("age", age),
			zap.Duration("remaining_ttl", remaining))
	}

	if _, err := c.store.Expire(ctx, valueKey, c.slidingTTL); err != nil {
		return "", false, fmt.Errorf("cache: refresh sliding TTL: %w", err)
	}

	observability.CacheOutcomesTotal.WithLabelValues("hit").Inc()
	return payload, true, nil
}

// Store writes a freshly fetched payload for the coordinate pair: the value
// key expires after the sliding TTL, the creation-time key records now in
// UTC. The two writes carry no transactional guarantee; Lookup tolerates a
// reader landing between them. Empty payloads are never written.
func (c *ForecastCache) Store(ctx context.Context, lat, lon float64, payload string) error {
	if payload == "" {
		return nil
	}
	valueKey, creationKey := DeriveKeys(lat, lon)

	if err := c.store.SetWithTTL(ctx, valueKey, payload, c.slidingTTL); err != nil {
		return fmt.Errorf("cache: write value: %w", err)
	}
	// The creation key outlives the sliding window but not the age ceiling;
	// once the ceiling passes the entry is stale regardless, and Lookup
	// treats a value without a timestamp as a miss.
	createdAt := c.now().UTC().Format(creationTimeFormat)
	if err := c.store.SetWithTTL(ctx, creationKey, createdAt, c.maxTTL); err != nil {
		return fmt.Errorf("cache: write creation time: %w", err)
	}
	return nil
}
