package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/kjstillabower/forecast-cache-service/internal/models"
	"github.com/kjstillabower/forecast-cache-service/internal/observability"
)

// ForecastFetcher resolves a coordinate pair to a serialized forecast blob
// via the two-step upstream lookup. Implementations never retry; a failed
// call surfaces as an error for that request only.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) (string, error)
}

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMissingFields       = errors.New("missing upstream fields")
)

// NWSClient talks to the National Weather Service API: a points lookup to
// resolve the grid reference, then a gridpoints forecast lookup.
type NWSClient struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewNWSClient creates an NWSClient. userAgent is required; the upstream API
// rejects anonymous clients.
func NewNWSClient(baseURL, userAgent string, timeout time.Duration) (*NWSClient, error) {
	if baseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	if userAgent == "" {
		return nil, errors.New("client: user agent is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NWSClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// pointsResponse carries the grid reference fields of the points lookup.
type pointsResponse struct {
	Properties struct {
		GridID string `json:"gridId"`
		GridX  *int   `json:"gridX"`
		GridY  *int   `json:"gridY"`
	} `json:"properties"`
}

// forecastResponse carries the periods array of the gridpoints forecast
// lookup. Periods stay raw JSON; this layer never inspects them.
type forecastResponse struct {
	Properties struct {
		Periods json.RawMessage `json:"periods"`
	} `json:"properties"`
}

// FetchForecast performs both upstream calls in sequence and returns the
// forecast periods re-serialized as an opaque blob. Each call is bounded by
// the configured timeout. Any failure (network, status, parse, missing
// fields) is returned as an error; nothing is ever retried.
func (c *NWSClient) FetchForecast(ctx context.Context, lat, lon float64) (string, error) {
	grid, err := c.resolveGrid(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("resolve grid: %w", err)
	}
	payload, err := c.fetchGridForecast(ctx, grid)
	if err != nil {
		return "", fmt.Errorf("fetch grid forecast: %w", err)
	}
	return payload, nil
}

// resolveGrid maps (lat, lon) to the upstream grid reference.
func (c *NWSClient) resolveGrid(ctx context.Context, lat, lon float64) (models.GridReference, error) {
	url := fmt.Sprintf("%s/points/%s,%s", c.baseURL, formatCoord(lat), formatCoord(lon))

	body, err := c.get(ctx, "points", url)
	if err != nil {
		return models.GridReference{}, err
	}

	var resp pointsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.GridReference{}, fmt.Errorf("%w: parse points response: %v", ErrUpstreamUnavailable, err)
	}
	if resp.Properties.GridID == "" || resp.Properties.GridX == nil || resp.Properties.GridY == nil {
		return models.GridReference{}, fmt.Errorf("%w: points response lacks grid reference", ErrMissingFields)
	}
	return models.GridReference{
		GridID: resp.Properties.GridID,
		GridX:  *resp.Properties.GridX,
		GridY:  *resp.Properties.GridY,
	}, nil
}

// fetchGridForecast retrieves the forecast for a grid reference and extracts
// the periods substructure as the serialized blob.
func (c *NWSClient) fetchGridForecast(ctx context.Context, grid models.GridReference) (string, error) {
	url := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast", c.baseURL, grid.GridID, grid.GridX, grid.GridY)

	body, err := c.get(ctx, "forecast", url)
	if err != nil {
		return "", err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: parse forecast response: %v", ErrUpstreamUnavailable, err)
	}
	periods := resp.Properties.Periods
	if len(periods) == 0 || string(periods) == "null" {
		return "", fmt.Errorf("%w: forecast response lacks periods", ErrMissingFields)
	}
	return string(periods), nil
}

// get performs one bounded upstream call and records its metrics.
func (c *NWSClient) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.UpstreamCallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: request timeout: %v", ErrUpstreamUnavailable, err)
		}
		return nil, fmt.Errorf("%w: http request failed: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.UpstreamCallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUpstreamUnavailable, resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// formatCoord renders a coordinate with the shortest representation that
// round-trips exactly, matching the cache key derivation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
