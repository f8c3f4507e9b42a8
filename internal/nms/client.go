package nms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the upstream backend settings.
type Config struct {
	URL                  string        `mapstructure:"url"`
	Token                string        `mapstructure:"token"`
	Timeout              time.Duration `mapstructure:"timeout"`
	PageSize             int           `mapstructure:"page_size"`
	FallbackPageSize     int           `mapstructure:"fallback_page_size"`
	MaxConcurrentQueries int           `mapstructure:"max_concurrent_queries"`
	RateLimitRPS         float64       `mapstructure:"rate_limit_rps"`
}

// Client wraps the backend's REST API (LibreNMS API v0 dialect).
// All methods are read-only.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	token            string
	pageSize         int
	fallbackPageSize int
	maxConcurrent    int
	limiter          *rate.Limiter
	logger           *zap.Logger
}

// NewClient creates a backend client. Zero config values fall back to
// conservative defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.FallbackPageSize <= 0 || cfg.FallbackPageSize >= cfg.PageSize {
		cfg.FallbackPageSize = cfg.PageSize / 5
	}
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = 8
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	return &Client{
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		baseURL:          strings.TrimRight(cfg.URL, "/"),
		token:            cfg.Token,
		pageSize:         cfg.PageSize,
		fallbackPageSize: cfg.FallbackPageSize,
		maxConcurrent:    cfg.MaxConcurrentQueries,
		limiter:          rate.NewLimiter(limit, 1),
		logger:           logger,
	}
}

// Fetch retrieves one collection with the configured page size. On a
// transport failure it retries exactly once with the fallback page size
// (smaller pages are gentler on an overloaded backend); there are no
// further retries, and none at all once the request deadline has passed.
func (c *Client) Fetch(ctx context.Context, collection Collection, params url.Values) ([]RawRecord, error) {
	records, err := c.fetchPage(ctx, collection, params, c.pageSize)
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, classifyTransportError(ctx.Err())
	}
	if !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrTimeout) {
		return nil, err
	}
	c.logger.Warn("fetch failed, retrying with fallback page size",
		zap.String("collection", string(collection)),
		zap.Int("fallback_page_size", c.fallbackPageSize),
		zap.Error(err),
	)
	return c.fetchPage(ctx, collection, params, c.fallbackPageSize)
}

// Devices lists device inventory records.
func (c *Client) Devices(ctx context.Context, params url.Values) ([]RawRecord, error) {
	return c.Fetch(ctx, CollectionDevices, params)
}

// PortsForDevice lists port records for a single device. The backend
// throttles wide port queries, so ports are always fetched one device
// at a time; see PortsForDevices for the multi-device fan-out.
func (c *Client) PortsForDevice(ctx context.Context, deviceID int) ([]RawRecord, error) {
	params := url.Values{"device_id": []string{strconv.Itoa(deviceID)}}
	return c.Fetch(ctx, CollectionPorts, params)
}

// Bills lists contract/billing records.
func (c *Client) Bills(ctx context.Context, params url.Values) ([]RawRecord, error) {
	return c.Fetch(ctx, CollectionBills, params)
}

// Sensors lists environmental sensor records.
func (c *Client) Sensors(ctx context.Context, params url.Values) ([]RawRecord, error) {
	return c.Fetch(ctx, CollectionSensors, params)
}

// Alerts lists active alert records.
func (c *Client) Alerts(ctx context.Context, params url.Values) ([]RawRecord, error) {
	return c.Fetch(ctx, CollectionAlerts, params)
}

// Ping checks backend reachability for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v0", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// fetchPage performs one GET against /api/v0/<collection> and normalizes
// the payload shape.
func (c *Client) fetchPage(ctx context.Context, collection Collection, params url.Values, pageSize int) ([]RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransportError(err)
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("limit", strconv.Itoa(pageSize))

	u := fmt.Sprintf("%s/api/v0/%s?%s", c.baseURL, collection, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrUnavailable, collection, resp.StatusCode)
	case resp.StatusCode >= 400:
		// Auth/config problems are wiring errors, not fallback triggers.
		return nil, fmt.Errorf("nms API GET %s returned %d: %s", collection, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode %s envelope: %v", ErrMalformed, collection, err)
	}

	payload, ok := envelope[string(collection)]
	if !ok {
		return nil, fmt.Errorf("%w: envelope missing %q key", ErrMalformed, collection)
	}

	return normalizeCollection(payload), nil
}
