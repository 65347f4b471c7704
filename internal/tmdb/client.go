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

	"golang.org/x/time/rate"
)

// FindResult is a single TV match from the cross-namespace find endpoint.
type FindResult struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
}

type findResponse struct {
	TVResults []FindResult `json:"tv_results"`
}

// ShowDetails is the TV details payload used for enrichment. Raw preserves
// the full response body so the row store can keep the untouched document.
type ShowDetails struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	LastAirDate      string  `json:"last_air_date"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Status           string  `json:"status"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`

	Raw json.RawMessage `json:"-"`
}

// Provider defines the metadata operations the sync engine depends on.
type Provider interface {
	FindByIMDbID(ctx context.Context, imdbID string) ([]FindResult, error)
	GetTVDetails(ctx context.Context, showID int64) (*ShowDetails, error)
}

// AuthError reports a rejected credential. It is systemic: one rejection
// means every subsequent call would fail the same way, so callers abort the
// run instead of recording per-show failures.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("tmdb rejected credentials (status %d); set tmdb.api_key in the config or the TMDB_API_KEY environment variable", e.Status)
}

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Provider = (*Client)(nil)

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

// WithLimiter installs a shared request limiter. Workers block in Wait until
// budget is available.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// NewLimiter builds a limiter that admits requests tokens per rolling window.
func NewLimiter(requests int, window time.Duration) *rate.Limiter {
	if requests <= 0 || window <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(requests)/window.Seconds()), requests)
}

// New creates a TMDB client. Timeout bounds each request; it never blocks
// indefinitely.
func New(apiKey, baseURL, language string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FindByIMDbID looks up TV candidates for an IMDb series id. An id unknown to
// the provider yields an empty slice, not an error.
func (c *Client) FindByIMDbID(ctx context.Context, imdbID string) ([]FindResult, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")

	body, err := c.get(ctx, "/find/"+url.PathEscape(imdbID), params)
	if err != nil {
		return nil, fmt.Errorf("tmdb find %s: %w", imdbID, err)
	}

	var payload findResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode tmdb find response: %w", err)
	}
	return payload.TVResults, nil
}

// GetTVDetails fetches TV show details by TMDB id.
func (c *Client) GetTVDetails(ctx context.Context, showID int64) (*ShowDetails, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	body, err := c.get(ctx, fmt.Sprintf("/tv/%d", showID), url.Values{})
	if err != nil {
		return nil, fmt.Errorf("tmdb tv details %d: %w", showID, err)
	}

	var payload ShowDetails
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode tv details: %w", err)
	}
	payload.Raw = json.RawMessage(body)
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tmdb returned %d (latency=%v)", resp.StatusCode, latency)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
