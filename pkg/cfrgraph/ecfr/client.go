package ecfr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
)

// DefaultBaseURL is the public eCFR host.
const DefaultBaseURL = "https://www.ecfr.gov"

// Source supplies raw upstream payloads, one method per endpoint.
// date is YYYY-MM-DD.
type Source interface {
	Agencies(ctx context.Context) (AgenciesResponse, error)
	Titles(ctx context.Context) (TitlesResponse, error)
	FullDocument(ctx context.Context, title, date string) (string, error)
	Structure(ctx context.Context, title, date string) (StructureNode, error)
	Corrections(ctx context.Context, title string) (CorrectionsResponse, error)
}

// Paths of each endpoint relative to the base URL.
func AgenciesPath() string { return "/api/admin/v1/agencies.json" }
func TitlesPath() string   { return "/api/versioner/v1/titles.json" }
func FullDocumentPath(title, date string) string {
	return fmt.Sprintf("/api/versioner/v1/full/%s/title-%s.xml", date, title)
}
func StructurePath(title, date string) string {
	return fmt.Sprintf("/api/versioner/v1/structure/%s/title-%s.json", date, title)
}
func CorrectionsPath(title string) string {
	return fmt.Sprintf("/api/admin/v1/corrections/title/%s.json", title)
}

// Client fetches payloads over HTTP. Requests share a token-bucket
// limiter and successful bodies are memoized by URL for the client's
// lifetime.
type Client struct {
	BaseURL   string
	UserAgent string

	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger

	cache *lru.Cache[string, []byte]
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// NewClient builds a Client. Zero RequestsPerSecond disables limiting;
// zero CacheSize disables memoization.
func NewClient(opts ClientOptions) (*Client, error) {
	c := &Client{
		BaseURL:    strings.TrimRight(opts.BaseURL, "/"),
		UserAgent:  opts.UserAgent,
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HTTPClient == nil && opts.Timeout > 0 {
		c.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []byte](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("ecfr cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

func (c *Client) Agencies(ctx context.Context) (AgenciesResponse, error) {
	var out AgenciesResponse
	err := c.getJSON(ctx, AgenciesPath(), &out)
	return out, err
}

func (c *Client) Titles(ctx context.Context) (TitlesResponse, error) {
	var out TitlesResponse
	err := c.getJSON(ctx, TitlesPath(), &out)
	return out, err
}

func (c *Client) FullDocument(ctx context.Context, title, date string) (string, error) {
	body, err := c.Fetch(ctx, FullDocumentPath(title, date))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) Structure(ctx context.Context, title, date string) (StructureNode, error) {
	var out StructureNode
	err := c.getJSON(ctx, StructurePath(title, date), &out)
	return out, err
}

func (c *Client) Corrections(ctx context.Context, title string) (CorrectionsResponse, error) {
	var out CorrectionsResponse
	err := c.getJSON(ctx, CorrectionsPath(title), &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.Fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", internalerr.ErrMalformed, path, err)
	}
	return nil
}

// Fetch returns the raw body at path, consulting the memo cache first.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := c.BaseURL + path
	if c.cache != nil {
		if body, ok := c.cache.Get(url); ok {
			return body, nil
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", internalerr.ErrFetch, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", internalerr.ErrFetch, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", internalerr.ErrFetch, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", internalerr.ErrFetch, path, resp.StatusCode)
	}
	c.logger().Debug("ecfr fetch", "path", path, "bytes", len(body), "elapsed", time.Since(start))

	if c.cache != nil {
		c.cache.Add(url, body)
	}
	return body, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
