// Package igdb provides a metadata client for IGDB, authenticated with a
// Twitch application token.
package igdb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	igdbapi "github.com/Henry-Sarabia/igdb/v2"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// ProviderName identifies IGDB in logs, events and errors.
	ProviderName = "igdb"

	twitchTokenURL = "https://id.twitch.tv/oauth2/token"
	defaultTimeout = 10 * time.Second

	coverSize      = "t_cover_big"
	screenshotSize = "t_screenshot_big"
)

// TokenSource yields the bearer token sent to IGDB.
type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// Client is an IGDB client. The underlying API client is created lazily on
// the first Fetch so a bad secret surfaces as a provider error for that
// record rather than at startup.
type Client struct {
	clientID   string
	tokens     TokenSource
	httpClient *http.Client
	api        *igdbapi.Client
	token      string
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient sets the HTTP client used for IGDB and token requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource replaces the Twitch client-credentials flow.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

// NewClient creates an IGDB client for the given Twitch application.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:   clientID,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tokens == nil {
		cc := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     twitchTokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.tokens = oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx))
	}

	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Fetch searches IGDB for name and assembles a bundle from the first result
// and its related resources.
func (c *Client) Fetch(ctx context.Context, name string) (catalog.Bundle, error) {
	api, err := c.client()
	if err != nil {
		return catalog.Bundle{}, err
	}
	if err := ctx.Err(); err != nil {
		return catalog.Bundle{}, apperrors.NewProviderError(ProviderName, "search", err)
	}

	games, err := api.Games.Search(name,
		igdbapi.SetFields("id", "name", "cover", "screenshots", "platforms", "genres", "themes",
			"involved_companies", "first_release_date", "aggregated_rating"),
		igdbapi.SetLimit(1),
	)
	if errors.Is(err, igdbapi.ErrNoResults) || (err == nil && len(games) == 0) {
		return catalog.Bundle{}, nil
	}
	if err != nil {
		return catalog.Bundle{}, providerError("search", err)
	}

	return c.assemble(ctx, api, games[0])
}

func (c *Client) client() (*igdbapi.Client, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, apperrors.NewProviderError(ProviderName, "authenticate", err)
	}
	if c.api == nil || tok.AccessToken != c.token {
		c.api = igdbapi.NewClient(c.clientID, tok.AccessToken, c.httpClient)
		c.token = tok.AccessToken
	}
	return c.api, nil
}

// assemble resolves the ID references on game into bundle fields.
func (c *Client) assemble(ctx context.Context, api *igdbapi.Client, game *igdbapi.Game) (catalog.Bundle, error) {
	b := catalog.Bundle{}

	if game.FirstReleaseDate != 0 {
		released := time.Unix(int64(game.FirstReleaseDate), 0).UTC()
		b.Released = released.Format("2006-01-02")
		b.Year = released.Format("2006")
	}
	if game.AggregatedRating > 0 {
		b.Score = catalog.IntPtr(int(math.Round(game.AggregatedRating)))
	}

	steps := []struct {
		op  string
		run func() error
	}{
		{"cover", func() error {
			if game.Cover == 0 {
				return nil
			}
			cover, err := api.Covers.Get(game.Cover, igdbapi.SetFields("url"))
			if err != nil {
				return err
			}
			b.Image = ImageURL(cover.URL, coverSize)
			return nil
		}},
		{"screenshots", func() error {
			if len(game.Screenshots) == 0 {
				return nil
			}
			shots, err := api.Screenshots.List(game.Screenshots, igdbapi.SetFields("url"))
			if err != nil {
				return err
			}
			for _, s := range shots {
				if u := ImageURL(s.URL, screenshotSize); u != "" {
					b.Screenshots = append(b.Screenshots, u)
				}
			}
			return nil
		}},
		{"platforms", func() error {
			if len(game.Platforms) == 0 {
				return nil
			}
			platforms, err := api.Platforms.List(game.Platforms, igdbapi.SetFields("name"))
			if err != nil {
				return err
			}
			for _, p := range platforms {
				b.Platforms = appendName(b.Platforms, p.Name)
			}
			return nil
		}},
		{"genres", func() error {
			if len(game.Genres) == 0 {
				return nil
			}
			genres, err := api.Genres.List(game.Genres, igdbapi.SetFields("name"))
			if err != nil {
				return err
			}
			for _, g := range genres {
				b.Tags = appendName(b.Tags, g.Name)
			}
			return nil
		}},
		{"themes", func() error {
			if len(game.Themes) == 0 {
				return nil
			}
			themes, err := api.Themes.List(game.Themes, igdbapi.SetFields("name"))
			if err != nil {
				return err
			}
			for _, th := range themes {
				b.Tags = appendName(b.Tags, th.Name)
			}
			return nil
		}},
		{"publishers", func() error {
			if len(game.InvolvedCompanies) == 0 {
				return nil
			}
			involved, err := api.InvolvedCompanies.List(game.InvolvedCompanies, igdbapi.SetFields("company", "publisher"))
			if err != nil {
				return err
			}
			ids := PublisherIDs(involved)
			if len(ids) == 0 {
				return nil
			}
			companies, err := api.Companies.List(ids, igdbapi.SetFields("name"))
			if err != nil {
				return err
			}
			for _, co := range companies {
				b.Publishers = appendName(b.Publishers, co.Name)
			}
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return catalog.Bundle{}, apperrors.NewProviderError(ProviderName, step.op, err)
		}
		if err := step.run(); err != nil && !errors.Is(err, igdbapi.ErrNoResults) {
			return catalog.Bundle{}, providerError(step.op, err)
		}
	}

	return b, nil
}

// providerError wraps err for op, turning IGDB's 429 into a rate limit error.
func providerError(op string, err error) error {
	if errors.Is(err, igdbapi.ErrManyRequests) {
		err = apperrors.NewRateLimitError(err.Error())
	}
	return apperrors.NewProviderError(ProviderName, op, err)
}

// PublisherIDs returns the company IDs flagged as publishers, in order and
// without duplicates.
func PublisherIDs(involved []*igdbapi.InvolvedCompany) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, ic := range involved {
		if ic == nil || !ic.Publisher || ic.Company == 0 || seen[ic.Company] {
			continue
		}
		seen[ic.Company] = true
		ids = append(ids, ic.Company)
	}
	return ids
}

// ImageURL turns an IGDB image URL into an absolute https URL at the given
// size. IGDB returns protocol-relative thumbnail URLs.
func ImageURL(raw, size string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if size != "" {
		u = strings.Replace(u, "/t_thumb/", "/"+size+"/", 1)
	}
	return u
}

func appendName(list []string, name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return list
	}
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}

// String describes the client for debug logging.
func (c *Client) String() string {
	return fmt.Sprintf("igdb(client_id=%s)", c.clientID)
}
