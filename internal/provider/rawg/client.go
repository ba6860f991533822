// Package rawg provides a metadata client for the RAWG video game database.
package rawg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/gameaugment/internal/catalog"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/tidwall/gjson"
)

const (
	// ProviderName identifies RAWG in logs, events and errors.
	ProviderName = "rawg"

	defaultBaseURL = "https://api.rawg.io/api"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a RAWG API client. It is not throttled; callers are expected to
// pace Fetch calls.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the RAWG API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a new RAWG API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Fetch searches RAWG for name and builds a bundle from the first result,
// then loads that game's screenshots. No match returns an empty bundle and
// a nil error.
func (c *Client) Fetch(ctx context.Context, name string) (catalog.Bundle, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("search", name)
	params.Set("page_size", "1")

	body, err := c.get(ctx, "search", fmt.Sprintf("%s/games?%s", c.baseURL, params.Encode()))
	if err != nil {
		return catalog.Bundle{}, err
	}
	if !gjson.ValidBytes(body) {
		return catalog.Bundle{}, apperrors.NewProviderError(ProviderName, "search", fmt.Errorf("response is not valid JSON"))
	}

	first := gjson.GetBytes(body, "results.0")
	if !first.IsObject() {
		return catalog.Bundle{}, nil
	}

	bundle := parseGame(first)

	if id := first.Get("id").Int(); id > 0 {
		shots, err := c.screenshots(ctx, id)
		if err != nil {
			return catalog.Bundle{}, err
		}
		bundle.Screenshots = shots
	}

	return bundle, nil
}

func (c *Client) screenshots(ctx context.Context, id int64) ([]string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)

	endpoint := fmt.Sprintf("%s/games/%d/screenshots?%s", c.baseURL, id, params.Encode())
	body, err := c.get(ctx, "screenshots", endpoint)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewProviderError(ProviderName, "screenshots", fmt.Errorf("response is not valid JSON"))
	}
	return stringList(gjson.GetBytes(body, "results.#.image")), nil
}

// parseGame maps one RAWG game object onto a bundle.
func parseGame(game gjson.Result) catalog.Bundle {
	b := catalog.Bundle{
		Image:      game.Get("background_image").String(),
		Released:   game.Get("released").String(),
		Publishers: stringList(game.Get("publishers.#.name")),
		Platforms:  stringList(game.Get("platforms.#.platform.name")),
		Rating:     game.Get("esrb_rating.name").String(),
		Tags:       stringList(game.Get("tags.#.name")),
	}

	if len(b.Released) >= 4 {
		b.Year = b.Released[:4]
	}

	if score := game.Get("metacritic"); score.Type == gjson.Number {
		b.Score = catalog.IntPtr(int(score.Int()))
	}

	return b
}

func stringList(res gjson.Result) []string {
	var out []string
	for _, item := range res.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewProviderError(ProviderName, op, redactURL(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError(ProviderName, op, redactURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewProviderError(ProviderName, op,
			apperrors.NewRateLimitErrorWithRetry("RAWG rate limit exceeded", retryAfter(resp.Header.Get("Retry-After"))))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.NewProviderStatusError(ProviderName, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError(ProviderName, op, fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

// redactURL drops the query string, which carries the API key, from the URL
// recorded in transport errors.
func redactURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	redacted := *uerr
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		redacted.URL = u.String()
	} else {
		redacted.URL = "<redacted>"
	}
	return &redacted
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
