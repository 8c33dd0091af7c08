package tmdb

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
)

// DefaultTimeout bounds every TMDB request unless overridden.
const DefaultTimeout = 30 * time.Second

// appendedResources are fetched with every title detail request.
const appendedResources = "credits,keywords"

// maxErrorBody caps how much of a failed response body is kept for the error.
const maxErrorBody = 512

// Result represents a single TMDB multi search match.
type Result struct {
	ID           int64  `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// API defines the TMDB operations the catalog layer uses.
type API interface {
	SearchMulti(ctx context.Context, query string) (*Response, error)
	GetDetails(ctx context.Context, mediaType string, id int64) ([]byte, error)
}

// Client provides access to the TMDB API.
type Client struct {
	token      string
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a TMDB client authenticated with a read access token.
func New(token, baseURL, language string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("tmdb read access token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMulti searches movies, series, and people in one call. Adult results
// are excluded and only the first page is requested.
func (c *Client) SearchMulti(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("page", "1")

	body, err := c.get(ctx, "search", "/search/multi", params)
	if err != nil {
		return nil, err
	}
	var payload Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &TransportError{Operation: "search", Path: "/search/multi", Err: fmt.Errorf("decode response: %w", err)}
	}
	return &payload, nil
}

// GetDetails fetches the full movie or tv payload with credits and keywords
// appended and returns the body verbatim.
func (c *Client) GetDetails(ctx context.Context, mediaType string, id int64) ([]byte, error) {
	if mediaType != "movie" && mediaType != "tv" {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
	if id <= 0 {
		return nil, errors.New("id must be positive")
	}
	path := fmt.Sprintf("/%s/%d", mediaType, id)
	params := url.Values{}
	params.Set("append_to_response", appendedResources)

	body, err := c.get(ctx, "details", path, params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &TransportError{Operation: "details", Path: path, Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}

// Authenticate checks that the token is accepted.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.get(ctx, "authenticate", "/authentication", nil)
	return err
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values) ([]byte, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	if c.language != "" && path != "/authentication" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, &TransportError{Operation: operation, Path: path, Latency: latency, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var cause error
		if text := strings.TrimSpace(string(snippet)); text != "" {
			cause = errors.New(text)
		}
		return nil, &TransportError{Operation: operation, Path: path, StatusCode: resp.StatusCode, Latency: latency, Err: cause}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Operation: operation, Path: path, StatusCode: resp.StatusCode, Latency: time.Since(requestStart), Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
