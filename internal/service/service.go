package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/forecast-cache-service/internal/cache"
	"github.com/kjstillabower/forecast-cache-service/internal/client"
	"github.com/kjstillabower/forecast-cache-service/internal/models"
	"github.com/kjstillabower/forecast-cache-service/internal/observability"
)

// ForecastService orchestrates forecast retrieval using the cache-aside
// pattern: freshness evaluation first, upstream fetch and cache write on a
// miss, result assembly last.
type ForecastService struct {
	fetcher client.ForecastFetcher
	cache   *cache.ForecastCache
}

// NewForecastService creates a ForecastService with the provided collaborators.
func NewForecastService(fetcher client.ForecastFetcher, cache *cache.ForecastCache) *ForecastService {
	return &ForecastService{
		fetcher: fetcher,
		cache:   cache,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetForecast returns the forecast for the coordinate pair. A fresh cached
// entry is served as-is; otherwise the upstream API is consulted and the
// cache repopulated. A nil result with nil error means no data could be
// obtained for this request (upstream failure is not an error here and is
// never cached). Store failures are returned as errors.
func (s *ForecastService) GetForecast(ctx context.Context, lat, lon float64) (*models.ForecastResult, error) {
	start := time.Now()
	logger := loggerFromContext(ctx)
	observability.ForecastRequestsTotal.Inc()

	payload, hit, err := s.cache.Lookup(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("lookup forecast for (%v, %v): %w", lat, lon, err)
	}

	if !hit {
		if logger != nil {
			logger.Debug("cache miss, fetching upstream", zap.Float64("lat", lat), zap.Float64("lon", lon))
		}
		fetched, fetchErr := s.fetcher.FetchForecast(ctx, lat, lon)
		if fetchErr != nil {
			// Absent is a legitimate terminal outcome: nothing is cached and
			// the next request tries upstream again.
			if logger != nil {
				logger.Info("upstream fetch failed, no forecast for this request",
					zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(fetchErr))
			}
			return nil, nil
		}
		if err := s.cache.Store(ctx, lat, lon, fetched); err != nil {
			return nil, fmt.Errorf("store forecast for (%v, %v): %w", lat, lon, err)
		}
		payload = fetched
	}

	result := s.assemble(payload, start, logger)
	if result != nil && logger != nil {
		logger.Debug("forecast served",
			zap.Float64("lat", lat), zap.Float64("lon", lon),
			zap.Bool("cached", hit), zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}

// assemble deserializes the chosen payload into the public forecast shape and
// attaches the elapsed-time measurement for the whole cache-or-fetch
// operation. A missing or unreadable payload assembles to an absent result.
func (s *ForecastService) assemble(payload string, start time.Time, logger *zap.Logger) *models.ForecastResult {
	if payload == "" {
		return nil
	}
	var periods []models.ForecastPeriod
	if err := json.Unmarshal([]byte(payload), &periods); err != nil {
		if logger != nil {
			logger.Warn("unreadable forecast payload", zap.Error(err))
		}
		return nil
	}
	return &models.ForecastResult{
		Periods:   periods,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
}
