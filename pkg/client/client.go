// Package client provides the Twitter API client: one entry point that
// dispatches a named resource to its REST or streaming endpoint, and the
// iterators that turn either kind of response into a sequence of JSON items.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/twitter-api-client/pkg/cache"
	"github.com/Sternrassler/twitter-api-client/pkg/endpoints"
	"github.com/Sternrassler/twitter-api-client/pkg/logging"
	"github.com/Sternrassler/twitter-api-client/pkg/ratelimit"
	"github.com/Sternrassler/twitter-api-client/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default timeouts.
const (
	DefaultRESTTimeout   = 5 * time.Second
	DefaultStreamTimeout = 90 * time.Second
)

// maxErrorBody bounds how much of a refused stream's body is kept.
const maxErrorBody = 4 << 10

// Prometheus metrics for Twitter client operations.
var (
	twitterRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_requests_total",
		Help: "Total Twitter API requests by resource, family and status",
	}, []string{"resource", "family", "status"})

	twitterRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitter_request_duration_seconds",
		Help:    "Twitter API request duration in seconds by resource (streams: until headers)",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	twitterErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_errors_total",
		Help: "Total Twitter API errors by class",
	}, []string{"class"})

	twitterStreamLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_stream_lines_total",
		Help: "Total streaming lines read by kind (message, keep_alive, malformed)",
	}, []string{"kind"})
)

// Client is the Twitter API client. It holds credentials (inside its
// transport) but no per-call state; every call returns its own Response.
type Client struct {
	transport transport.Transport
	tracker   *ratelimit.Tracker
	cache     *cache.Manager
	config    Config
	logger    zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// OAuth 1.0a credentials. Required unless Transport is set.
	Credentials transport.Credentials

	// Transport replaces the default signing HTTP transport.
	Transport transport.Transport

	// HTTPClient supplies the RoundTripper of the default transport.
	// Its Timeout is ignored; RESTTimeout and StreamTimeout apply instead.
	HTTPClient *http.Client

	// User-Agent header sent with every request (optional).
	UserAgent string

	// URL parts. Overridable for proxies and tests.
	Scheme  string
	Domain  string
	Version string

	// Timeouts. The stream timeout bounds idle time between reads and
	// should exceed the 30s keep-alive interval of the streaming API.
	RESTTimeout   time.Duration
	StreamTimeout time.Duration

	// Redis enables the shared quota store and, with CacheTTL > 0, the
	// REST response cache.
	Redis *redis.Client

	// CacheTTL is how long successful REST GET responses are cached.
	// Zero disables caching.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration with the standard Twitter URL parts
// and timeouts.
func DefaultConfig(creds transport.Credentials) Config {
	return Config{
		Credentials:   creds,
		Scheme:        endpoints.Protocol,
		Domain:        endpoints.Domain,
		Version:       endpoints.Version,
		RESTTimeout:   DefaultRESTTimeout,
		StreamTimeout: DefaultStreamTimeout,
	}
}

// New creates a new Twitter client.
func New(cfg Config) (*Client, error) {
	if cfg.Scheme == "" || cfg.Domain == "" || cfg.Version == "" {
		return nil, fmt.Errorf("scheme, domain and version are required")
	}
	if cfg.RESTTimeout <= 0 {
		return nil, fmt.Errorf("rest timeout must be positive (got %s)", cfg.RESTTimeout)
	}
	if cfg.StreamTimeout <= 0 {
		return nil, fmt.Errorf("stream timeout must be positive (got %s)", cfg.StreamTimeout)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must not be negative (got %s)", cfg.CacheTTL)
	}
	if cfg.CacheTTL > 0 && cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required when caching is enabled")
	}

	logger := logging.NewLogger(logging.ComponentClient)

	tr := cfg.Transport
	if tr == nil {
		httpTransport, err := transport.NewHTTPTransport(cfg.Credentials, cfg.HTTPClient, cfg.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("create transport: %w", err)
		}
		tr = httpTransport
	}

	var store ratelimit.Store
	if cfg.Redis != nil {
		store = ratelimit.NewRedisStore(cfg.Redis)
	}

	var cacheManager *cache.Manager
	if cfg.CacheTTL > 0 {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		transport: tr,
		tracker:   ratelimit.NewTracker(store, logging.NewLogger(logging.ComponentRateLimit)),
		cache:     cacheManager,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Request calls resource with params. REST resources return a
// *RestResponse whatever the HTTP status, with the body fully read.
// Streaming resources return an open *StreamResponse that the caller must
// close; a refused stream returns a *StatusError instead.
//
// An unregistered resource fails with an *UnknownEndpointError before any
// network activity.
func (c *Client) Request(ctx context.Context, resource string, params url.Values) (Response, error) {
	endpoint, err := c.lookup(resource)
	if err != nil {
		return nil, err
	}
	if endpoint.IsStreaming() {
		stream, err := c.stream(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	rest, err := c.rest(ctx, endpoint, params, c.cache != nil)
	if err != nil {
		return nil, err
	}
	return rest, nil
}

// RequestREST is Request restricted to REST resources.
func (c *Client) RequestREST(ctx context.Context, resource string, params url.Values) (*RestResponse, error) {
	endpoint, err := c.restEndpoint(resource)
	if err != nil {
		return nil, err
	}
	return c.rest(ctx, endpoint, params, c.cache != nil)
}

// FetchPage performs one uncached REST call. Paging through a timeline must
// always observe fresh data, so the response cache is skipped.
func (c *Client) FetchPage(ctx context.Context, resource string, params url.Values) (*RestResponse, error) {
	endpoint, err := c.restEndpoint(resource)
	if err != nil {
		return nil, err
	}
	return c.rest(ctx, endpoint, params, false)
}

// RestQuota returns the quota reported by this client's most recent REST
// call, served from cache or not. All fields are nil before the first call or
// when the API sent no quota headers.
func (c *Client) RestQuota() ratelimit.Quota {
	return c.tracker.Last()
}

// ResourceQuota returns the quota last reported for one REST resource.
func (c *Client) ResourceQuota(ctx context.Context, resource string) (ratelimit.Quota, error) {
	return c.tracker.ForResource(ctx, resource)
}

// PurgeCache drops every cached response of resource.
func (c *Client) PurgeCache(ctx context.Context, resource string) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	return c.cache.Purge(ctx, resource)
}

// Close releases idle connections held by the transport.
func (c *Client) Close() error {
	if closer, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

func (c *Client) lookup(resource string) (endpoints.Endpoint, error) {
	endpoint, ok := endpoints.Lookup(resource)
	if !ok {
		c.logger.Warn().Str("resource", resource).Msg("Unknown endpoint")
		twitterErrorsTotal.WithLabelValues("unknown_endpoint").Inc()
		return endpoints.Endpoint{}, &UnknownEndpointError{Resource: resource}
	}
	return endpoint, nil
}

func (c *Client) restEndpoint(resource string) (endpoints.Endpoint, error) {
	endpoint, err := c.lookup(resource)
	if err != nil {
		return endpoints.Endpoint{}, err
	}
	if !endpoint.IsREST() {
		return endpoints.Endpoint{}, fmt.Errorf("%s: %w", resource, ErrNotREST)
	}
	return endpoint, nil
}

func (c *Client) url(endpoint endpoints.Endpoint) string {
	return endpoint.URL(c.config.Scheme, c.config.Domain, c.config.Version)
}

func (c *Client) rest(ctx context.Context, endpoint endpoints.Endpoint, params url.Values, useCache bool) (*RestResponse, error) {
	resource := endpoint.Resource
	useCache = useCache && cache.Cacheable(endpoint.Method, http.StatusOK)
	cacheKey := cache.CacheKey{Resource: resource, Params: params}

	if useCache {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("resource", resource).Msg("Cache hit")
			twitterRequestsTotal.WithLabelValues(resource, string(endpoints.FamilyREST), "cached").Inc()
			c.updateQuota(ctx, resource, entry.Headers)
			return &RestResponse{
				Resource:   resource,
				StatusCode: entry.StatusCode,
				Header:     entry.Headers,
				Body:       entry.Data,
				FromCache:  true,
			}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("resource", resource).Msg("Cache get error")
		}
	}

	rawURL := c.url(endpoint)
	c.logger.Debug().
		Str("resource", resource).
		Str("method", endpoint.Method).
		Str("family", string(endpoint.Family)).
		Str("url", rawURL).
		Msg("Executing REST request")

	start := time.Now()
	defer func() {
		twitterRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.transport.Perform(ctx, endpoint.Method, rawURL, params, c.config.RESTTimeout)
	if err != nil {
		c.recordNetworkError(endpoint, err)
		return nil, fmt.Errorf("%s %s: %w", endpoint.Method, resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordNetworkError(endpoint, err)
		return nil, fmt.Errorf("read %s response: %w", resource, err)
	}

	c.recordStatus(endpoint, resp.StatusCode)

	c.updateQuota(ctx, resource, resp.Header)

	rr := &RestResponse{
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if useCache && cache.Cacheable(endpoint.Method, resp.StatusCode) {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, body, c.config.CacheTTL)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Str("resource", resource).Msg("Failed to cache response")
		}
	}

	return rr, nil
}

func (c *Client) updateQuota(ctx context.Context, resource string, headers http.Header) {
	if _, err := c.tracker.UpdateFromHeaders(ctx, resource, headers); err != nil {
		c.logger.Warn().Err(err).Str("resource", resource).Msg("Failed to update quota from headers")
	}
}

func (c *Client) stream(ctx context.Context, endpoint endpoints.Endpoint, params url.Values) (*StreamResponse, error) {
	resource := endpoint.Resource
	method := http.MethodGet
	if len(params) > 0 {
		method = http.MethodPost
	}

	rawURL := c.url(endpoint)
	c.logger.Debug().
		Str("resource", resource).
		Str("method", method).
		Str("family", string(endpoint.Family)).
		Str("url", rawURL).
		Msg("Opening stream")

	start := time.Now()
	resp, err := c.transport.Perform(ctx, method, rawURL, params, c.config.StreamTimeout)
	twitterRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		c.recordNetworkError(endpoint, err)
		return nil, fmt.Errorf("%s %s: %w", method, resource, err)
	}

	c.recordStatus(endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &StatusError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Body:       body,
		}
	}

	return &StreamResponse{
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		body:       resp.Body,
	}, nil
}

func (c *Client) recordNetworkError(endpoint endpoints.Endpoint, err error) {
	c.logger.Error().Err(err).Str("resource", endpoint.Resource).Msg("Request failed")
	twitterErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	twitterRequestsTotal.WithLabelValues(endpoint.Resource, string(endpoint.Family), "network_error").Inc()
}

func (c *Client) recordStatus(endpoint endpoints.Endpoint, statusCode int) {
	twitterRequestsTotal.WithLabelValues(endpoint.Resource, string(endpoint.Family), strconv.Itoa(statusCode)).Inc()

	class := classifyStatus(statusCode)
	if class == "" {
		return
	}
	twitterErrorsTotal.WithLabelValues(string(class)).Inc()
	c.logger.Warn().
		Str("resource", endpoint.Resource).
		Int("status", statusCode).
		Str("error_class", string(class)).
		Msg("Twitter request error")
}
