package http

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/forecast-cache-service/internal/service"
	"github.com/kjstillabower/forecast-cache-service/internal/store"
	"github.com/kjstillabower/forecast-cache-service/internal/validation"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	forecastService *service.ForecastService
	store           store.Store
	logger          *zap.Logger
	startTime       time.Time
}

// NewHandler returns a new Handler. The store is consulted only for health
// checks.
func NewHandler(forecastService *service.ForecastService, st store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		forecastService: forecastService,
		store:           st,
		logger:          logger,
		startTime:       time.Now(),
	}
}

// GetForecast handles GET /forecast?lat={lat}&lon={lon}.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lat, err := validation.ParseCoordinate(r.URL.Query().Get("lat"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "lat: "+err.Error())
		return
	}
	lon, err := validation.ParseCoordinate(r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "lon: "+err.Error())
		return
	}

	result, err := h.forecastService.GetForecast(r.Context(), lat, lon)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if result == nil {
		writeError(w, r, http.StatusNotFound, "NO_FORECAST", "No forecast data available for these coordinates")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHealth handles GET /health. Unhealthy when the store is unreachable.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := map[string]string{"store": "healthy"}

	if err := h.store.Ping(r.Context()); err != nil {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		checks["store"] = "unhealthy"
		h.logger.Warn("health check: store unreachable", zap.Error(err))
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":        status,
		"service":       "forecast-cache-service",
		"checks":        checks,
		"uptimeSeconds": int64(time.Since(h.startTime).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeStoreError writes a 503 Service Unavailable response for store
// failures. Logs the underlying error if a logger is in the request context.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Unable to reach the forecast cache")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Error("store error", zap.Error(err))
	}
}
