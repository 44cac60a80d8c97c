package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/momentworks/consultbook/pkg/logging"
)

// APIError is a non-2xx response from the content API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cms: api error: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("cms: api error: %d", e.Status)
}

// IsNotFound reports whether err is a 404 from the content API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Config controls how the content client behaves.
type Config struct {
	ServiceDomain string
	APIKey        string
	// BaseURL overrides https://<domain>.microcms.io/api/v1.
	BaseURL    string
	SlugField  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client reads blogs and categories from microCMS.
type Client struct {
	baseURL    string
	apiKey     string
	slugField  string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a content API client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("cms: API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		domain := strings.TrimSpace(cfg.ServiceDomain)
		if domain == "" {
			return nil, errors.New("cms: service domain is required")
		}
		baseURL = "https://" + domain + ".microcms.io/api/v1"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		slugField:  strings.TrimSpace(cfg.SlugField),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Fetch performs a GET against endpoint and returns the raw JSON body.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cms: build request: %w", err)
	}
	req.Header.Set("X-MICROCMS-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cms: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Message
		}
		c.logger.Warn("cms request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, apiErr
	}
	return data, nil
}

// fetcher is satisfied by Client and CachedClient.
type fetcher interface {
	Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error)
}

func getJSON[T any](ctx context.Context, f fetcher, endpoint string, q Query) (*T, error) {
	data, err := f.Fetch(ctx, endpoint, q.Values())
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cms: decode %s: %w", endpoint, err)
	}
	return &out, nil
}

// Reader exposes the typed content operations over any fetcher.
type Reader struct {
	f         fetcher
	slugField string
}

// NewReader wraps f. slugField enables slug lookups through a filter.
func NewReader(f fetcher, slugField string) *Reader {
	return &Reader{f: f, slugField: slugField}
}

// Reader returns typed operations that go straight to the API.
func (c *Client) Reader() *Reader {
	return NewReader(c, c.slugField)
}

func (r *Reader) GetBlogs(ctx context.Context, q Query) (*ListResponse[Blog], error) {
	return getJSON[ListResponse[Blog]](ctx, r.f, "/blogs", q)
}

func (r *Reader) GetBlogByID(ctx context.Context, id string, q Query) (*Blog, error) {
	return getJSON[Blog](ctx, r.f, "/blogs/"+url.PathEscape(id), q)
}

func (r *Reader) GetCategories(ctx context.Context, q Query) (*ListResponse[Category], error) {
	return getJSON[ListResponse[Category]](ctx, r.f, "/categories", q)
}

func (r *Reader) GetCategoryByID(ctx context.Context, id string, q Query) (*Category, error) {
	return getJSON[Category](ctx, r.f, "/categories/"+url.PathEscape(id), q)
}

// GetRecentBlogs returns the newest published posts.
func (r *Reader) GetRecentBlogs(ctx context.Context, limit int) ([]Blog, error) {
	if limit <= 0 {
		limit = 3
	}
	resp, err := r.GetBlogs(ctx, Query{Limit: limit, Orders: "-publishedAt"})
	if err != nil {
		return nil, err
	}
	return resp.Contents, nil
}

// GetBlogBySlug resolves a slug to a post, or nil when none matches.
// Without a slug field the slug is the content id.
func (r *Reader) GetBlogBySlug(ctx context.Context, slug string) (*Blog, error) {
	if r.slugField != "" {
		resp, err := r.GetBlogs(ctx, Query{Limit: 1, Filters: r.slugField + "[equals]" + slug})
		if err != nil {
			return nil, err
		}
		if len(resp.Contents) == 0 {
			return nil, nil
		}
		return &resp.Contents[0], nil
	}
	blog, err := r.GetBlogByID(ctx, slug, Query{})
	if IsNotFound(err) {
		return nil, nil
	}
	return blog, err
}

// GetBlogsByCategory lists posts tagged with categoryID. Any filter in q is
// replaced.
func (r *Reader) GetBlogsByCategory(ctx context.Context, categoryID string, q Query) (*ListResponse[Blog], error) {
	q.Filters = "categories[contains]" + categoryID
	return r.GetBlogs(ctx, q)
}
