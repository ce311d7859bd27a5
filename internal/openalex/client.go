// Package openalex provides a low-level client for the OpenAlex REST API.
//
// The client exposes the four primitives the entity cache is built on:
// counting entities matching a filter, cursor-paginated listing, point
// retrieval by ID, and batched OR-filter retrieval by ID set. Responses are
// returned as raw domain.Records; shaping them into tables is the caller's
// concern.
package openalex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/observability"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultPerPage is the page size used for bulk listing; 200 is the
	// maximum the OpenAlex API allows.
	DefaultPerPage = 200

	// CursorStart is the cursor value that opens a pagination sequence.
	CursorStart = "*"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL (or a self-hosted instance).
	BaseURL string

	// Email is the contact email for the polite pool. Providing an email
	// grants access to higher rate limits.
	Email string

	// APIKey is an optional OpenAlex premium API key.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the retry budget for each call.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// BreakerFailures is the consecutive-failure threshold for the circuit
	// breaker; zero disables it.
	BreakerFailures uint32
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 10
	}
	if c.BurstSize == 0 {
		c.BurstSize = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Meta is the pagination metadata block of an OpenAlex list response.
type Meta struct {
	Count      int    `json:"count"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor"`
}

// listResponse is the envelope of an OpenAlex list endpoint.
type listResponse struct {
	Meta    Meta            `json:"meta"`
	Results []domain.Record `json:"results"`
}

// Client is a low-level OpenAlex API client.
type Client struct {
	config     Config
	httpClient *HTTPClient
	metrics    *observability.Metrics
}

// New creates a new OpenAlex client with the given configuration. metrics
// may be nil to disable request counting.
func New(cfg Config, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()

	userAgent := "openalex-cache/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	return &Client{
		config:  cfg,
		metrics: metrics,
		httpClient: NewHTTPClient(HTTPClientConfig{
			Timeout:         cfg.Timeout,
			RateLimit:       cfg.RateLimit,
			BurstSize:       cfg.BurstSize,
			MaxRetries:      cfg.MaxRetries,
			RetryDelay:      cfg.RetryDelay,
			UserAgent:       userAgent,
			BreakerFailures: cfg.BreakerFailures,
			BreakerCooldown: 30 * time.Second,
		}),
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Count returns the number of entities of the given category matching the
// filter expression. It issues a single per_page=1 request and reads the
// count from the response metadata.
func (c *Client) Count(ctx context.Context, category domain.Category, filter string) (int, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	query.Set("per_page", "1")

	resp, err := c.list(ctx, category, query)
	if err != nil {
		return 0, err
	}
	return resp.Meta.Count, nil
}

// Page fetches one page of entities of the given category matching the
// filter expression. Pagination is cursor-based: pass CursorStart for the
// first page and the returned cursor for each subsequent page. An empty
// returned cursor means the sequence is exhausted.
func (c *Client) Page(ctx context.Context, category domain.Category, filter string, perPage int, cursor string) ([]domain.Record, string, error) {
	if perPage <= 0 || perPage > DefaultPerPage {
		perPage = DefaultPerPage
	}
	if cursor == "" {
		cursor = CursorStart
	}

	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("cursor", cursor)

	resp, err := c.list(ctx, category, query)
	if err != nil {
		return nil, "", err
	}
	return resp.Results, resp.Meta.NextCursor, nil
}

// GetByID retrieves a single entity. The category is derived from the ID
// prefix. Returns a domain.NotFoundError when the API responds 404.
func (c *Client) GetByID(ctx context.Context, id string) (domain.Record, error) {
	category, err := domain.CategoryFromID(id)
	if err != nil {
		return nil, err
	}

	reqURL, err := c.buildURL(category.APIPath()+"/"+domain.ShortID(id), url.Values{})
	if err != nil {
		return nil, err
	}

	body, status, err := c.get(ctx, category.APIPath(), reqURL)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.NewNotFoundError(category.String(), id)
	}
	if status != http.StatusOK {
		c.countFailure(category.APIPath())
		return nil, domain.NewExternalAPIError("OpenAlex", status, string(body), nil)
	}

	var record domain.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return record, nil
}

// FilterByIDSet fetches all entities of the given category whose filterField
// matches one of values, as a single OR-joined filter request. The API
// silently drops values it does not know, so the result may be shorter than
// values. Callers are responsible for keeping len(values) within the API's
// query-length constraints.
func (c *Client) FilterByIDSet(ctx context.Context, category domain.Category, filterField string, values []string, perPage int) ([]domain.Record, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if perPage <= 0 || perPage > DefaultPerPage {
		perPage = DefaultPerPage
	}

	filter := filterField + ":" + strings.Join(values, "|")

	query := url.Values{}
	query.Set("filter", filter)
	query.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.list(ctx, category, query)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// list performs a GET against a category list endpoint and decodes the
// response envelope.
func (c *Client) list(ctx context.Context, category domain.Category, query url.Values) (*listResponse, error) {
	if !category.Valid() {
		return nil, domain.NewConfigurationError(fmt.Sprintf("category %d cannot be resolved to an API path", category))
	}

	reqURL, err := c.buildURL(category.APIPath(), query)
	if err != nil {
		return nil, err
	}

	body, status, err := c.get(ctx, category.APIPath(), reqURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.countFailure(category.APIPath())
		return nil, domain.NewExternalAPIError("OpenAlex", status, string(body), nil)
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

// get executes a GET request against the named endpoint and returns the
// response body and status code. The body is limited to 50MB; OpenAlex pages
// of 200 nested works can run to several megabytes.
func (c *Client) get(ctx context.Context, endpoint, reqURL string) ([]byte, int, error) {
	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint).Inc()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countFailure(endpoint)
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// countFailure counts a failed request against the named endpoint.
func (c *Client) countFailure(endpoint string) {
	if c.metrics != nil {
		c.metrics.APIRequestsFailed.WithLabelValues(endpoint).Inc()
	}
}

// buildURL assembles a request URL, appending the polite-pool and API key
// parameters from the client configuration.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	// JoinPath keeps any path prefix of a self-hosted base URL.
	base = base.JoinPath(path)

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}
	base.RawQuery = query.Encode()
	return base.String(), nil
}
