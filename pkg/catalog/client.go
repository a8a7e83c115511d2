// Package catalog provides the HTTP client for the upstream artworks
// catalog with rate limiting, caching, retries and page decoding.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-select/pkg/cache"
	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public Art Institute of Chicago API.
	DefaultBaseURL = "https://api.artic.edu"

	// ArtworksPath is the paginated list endpoint.
	ArtworksPath = "/api/v1/artworks"

	// maxErrorBody bounds how much of an error body ends up in messages.
	maxErrorBody = 512
)

// DefaultFields are the record attributes requested from the catalog.
var DefaultFields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}

// Client is the catalog HTTP client. It implements pagination.PageFetcher.
type Client struct {
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	baseURL     *url.URL
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and rate limit state
	Redis *redis.Client

	// BaseURL of the catalog API, without the /api/v1 path
	BaseURL string

	// User-Agent header, also sent as AIC-User-Agent
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Fields limits the attributes returned per record (empty = all)
	Fields []string

	// Timeout for a single HTTP exchange
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// ServeStaleOnError answers from a stale cache entry when the upstream
	// fails or the rate limit blocks
	ServeStaleOnError bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:             redis,
		BaseURL:           DefaultBaseURL,
		UserAgent:         userAgent,
		Fields:            DefaultFields,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		ServeStaleOnError: true,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:       cfg.Redis,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		cache:       cache.NewManager(cfg.Redis),
		baseURL:     baseURL,
		config:      cfg,
		logger:      logger,
	}, nil
}

// retryConfig scales the per-class defaults by the configured backoff and
// attempt count.
func (c *Client) retryConfig(class ErrorClass) RetryConfig {
	rc := RetryConfigForErrorClass(class)
	if c.config.MaxRetries > 0 {
		rc.MaxAttempts = c.config.MaxRetries
	}
	if c.config.InitialBackoff > 0 {
		scale := float64(c.config.InitialBackoff) / float64(time.Second)
		rc.InitialBackoff = time.Duration(float64(rc.InitialBackoff) * scale)
		rc.MaxBackoff = time.Duration(float64(rc.MaxBackoff) * scale)
	}
	return rc
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheKey := cache.CacheKey{
		Host:        req.URL.Host,
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	cachedEntry, err := c.cache.Get(ctx, cacheKey)
	if err != nil && err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	if cachedEntry != nil && !cachedEntry.IsExpired() {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Dur("ttl", cachedEntry.TTL()).
			Msg("Serving fresh cache entry")
		catalogRequestsTotal.WithLabelValues(endpoint, "cache").Inc()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 2: Check Rate Limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		catalogRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		if resp := c.serveStale(cachedEntry, endpoint); resp != nil {
			return resp, nil
		}
		return nil, ErrRateLimited
	}

	// Step 3: Conditional request for a stale entry
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("AIC-User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 4: Execute HTTP Request with Retry Logic
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Executing catalog request")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, c.retryConfig, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = ErrorClassNetwork
			catalogErrorsTotal.WithLabelValues(string(errClass)).Inc()
			catalogRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass = classifyStatus(resp.StatusCode)
			catalogErrorsTotal.WithLabelValues(string(errClass)).Inc()
			catalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Catalog request error")

			if shouldRetry(errClass) {
				resp.Body.Close()
				return &CatalogError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
			}

			// client errors are handed back to the caller
			return nil
		}

		catalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	}, func(error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		c.logger.Error().Err(retryErr).Str("endpoint", endpoint).Msg("Catalog request failed")
		if stale := c.serveStale(cachedEntry, endpoint); stale != nil {
			return stale, nil
		}
		return nil, retryErr
	}

	// Step 5: 304 Not Modified refreshes the stale entry
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		if err := c.cache.Revalidated(ctx, cacheKey, cachedEntry, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 6: Update Cache on success
	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// serveStale answers from a stale entry when allowed, nil otherwise.
func (c *Client) serveStale(entry *cache.CacheEntry, endpoint string) *http.Response {
	if entry == nil || !c.config.ServeStaleOnError {
		return nil
	}
	c.logger.Warn().
		Str("endpoint", endpoint).
		Dur("age", entry.Age()).
		Msg("Serving stale cache entry")
	catalogRequestsTotal.WithLabelValues(endpoint, "stale").Inc()
	return cache.EntryToResponse(entry)
}

// PageURL builds the list URL for a page.
func (c *Client) PageURL(page, limit int) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + ArtworksPath

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if len(c.config.Fields) > 0 {
		q.Set("fields", strings.Join(c.config.Fields, ","))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// FetchPage fetches and decodes one page of artworks.
func (c *Client) FetchPage(ctx context.Context, page, limit int) (*pagination.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", pagination.ErrInvalidPage, page)
	}
	if limit < 1 {
		return nil, fmt.Errorf("invalid page size: %d", limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(page, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &CatalogError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    strings.TrimSpace(resp.Status + " " + string(body)),
		}
	}

	p, err := decodePage(resp.Body, page, limit)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}

	c.logger.Debug().
		Int("page", p.Index).
		Int("records", len(p.Records)).
		Int("total_pages", p.TotalPages).
		Msg("Page decoded")

	return p, nil
}

// Ping checks the Redis connection backing the cache and rate limiter.
func (c *Client) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close releases idle HTTP connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the rate limit tracker (for testing).
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
