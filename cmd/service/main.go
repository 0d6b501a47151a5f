package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/forecast-cache-service/internal/cache"
	"github.com/kjstillabower/forecast-cache-service/internal/client"
	"github.com/kjstillabower/forecast-cache-service/internal/config"
	httphandler "github.com/kjstillabower/forecast-cache-service/internal/http"
	"github.com/kjstillabower/forecast-cache-service/internal/observability"
	"github.com/kjstillabower/forecast-cache-service/internal/service"
	"github.com/kjstillabower/forecast-cache-service/internal/store"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var kvStore store.Store
	switch cfg.StoreBackend {
	case "redis":
		rs, err := store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Fatal("redis store", zap.Error(err))
		}
		kvStore = rs
		logger.Info("store backend: redis", zap.String("addr", cfg.RedisAddr))
	default:
		kvStore = store.NewMemoryStore()
		logger.Info("store backend: in_memory")
	}

	kvStore = store.NewInstrumented(kvStore)

	fetcher, err := client.NewNWSClient(cfg.UpstreamURL, cfg.UpstreamUserAgent, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("upstream client", zap.Error(err))
	}

	forecastCache, err := cache.New(kvStore, cache.Config{
		SlidingTTL: cfg.SlidingTTL,
		MaxTTL:     cfg.MaxTTL,
	}, logger)
	if err != nil {
		logger.Fatal("forecast cache", zap.Error(err))
	}
	logger.Info("freshness policy",
		zap.Duration("sliding_ttl", cfg.SlidingTTL),
		zap.Duration("max_ttl", cfg.MaxTTL))

	forecastService := service.NewForecastService(fetcher, forecastCache)
	handler := httphandler.NewHandler(forecastService, kvStore, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	forecastRouter := router.PathPrefix("/forecast").Subrouter()
	forecastRouter.Use(httphandler.RateLimitMiddleware(limiter))
	forecastRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	forecastRouter.HandleFunc("", handler.GetForecast).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := kvStore.Close(); err != nil {
		logger.Error("store close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
