// Package twitter posts and searches tweets through the X API v2.
package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

// ServiceName identifies Twitter in logs and errors.
const ServiceName = "twitter"

// MaxTweetLength is the character limit for a standard tweet.
const MaxTweetLength = 280

const (
	defaultBaseURL   = "https://api.twitter.com/2"
	minSearchResults = 10
	maxSearchResults = 100
)

// Config configures the Twitter client.
type Config struct {
	// BearerToken is an OAuth 2.0 access token.
	BearerToken string

	// BaseURL defaults to https://api.twitter.com/2.
	BaseURL string

	// HTTPClient is the base client the OAuth2 transport wraps.
	HTTPClient *http.Client
}

// Tweet is a posted or found tweet.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Client talks to the X API v2.
type Client struct {
	exec      *protect.Executor
	transport transport.Transport
}

// New creates a Twitter client. The bearer token is attached by an oauth2
// transport rather than per request.
func New(cfg Config, exec *protect.Executor) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.BearerToken,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = 30 * time.Second

	t, err := transport.NewHTTPTransport(&transport.HTTPConfig{
		BaseURL: cfg.BaseURL,
		Client:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("twitter: %w", err)
	}
	return &Client{exec: exec, transport: t}, nil
}

// PostTweet publishes text. Texts over MaxTweetLength characters are rejected
// without calling the API.
func (c *Client) PostTweet(ctx context.Context, text string) (*Tweet, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "postTweet", func(ctx context.Context) (*Tweet, error) {
		if strings.TrimSpace(text) == "" {
			return nil, transport.InvalidRequest("tweet text is empty")
		}
		if n := utf8.RuneCountInString(text); n > MaxTweetLength {
			return nil, transport.InvalidRequest("tweet is %d characters, limit is %d", n, MaxTweetLength)
		}

		req, err := transport.NewJSONRequest(http.MethodPost, "/tweets", map[string]string{"text": text})
		if err != nil {
			return nil, err
		}
		resp, err := c.transport.Execute(ctx, req)
		if err != nil {
			return nil, parseError(err)
		}

		var out struct {
			Data Tweet `json:"data"`
		}
		if err := transport.DecodeJSON(resp, &out); err != nil {
			return nil, err
		}
		if out.Data.ID == "" {
			return nil, fmt.Errorf("tweet id missing from response")
		}
		return &out.Data, nil
	})
}

// SearchRecent returns tweets from the last seven days matching query.
// maxResults is clamped to the API range of 10-100.
func (c *Client) SearchRecent(ctx context.Context, query string, maxResults int) ([]Tweet, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "searchRecent", func(ctx context.Context) ([]Tweet, error) {
		if strings.TrimSpace(query) == "" {
			return nil, transport.InvalidRequest("search query is empty")
		}
		maxResults = min(max(maxResults, minSearchResults), maxSearchResults)

		params := url.Values{}
		params.Set("query", query)
		params.Set("max_results", strconv.Itoa(maxResults))
		params.Set("tweet.fields", "author_id,created_at")

		resp, err := c.transport.Execute(ctx, &transport.Request{
			Method:  http.MethodGet,
			URL:     "/tweets/search/recent?" + params.Encode(),
			Headers: map[string]string{"Accept": "application/json"},
		})
		if err != nil {
			return nil, parseError(err)
		}

		var out struct {
			Data []Tweet `json:"data"`
		}
		if err := transport.DecodeJSON(resp, &out); err != nil {
			return nil, err
		}
		return out.Data, nil
	})
}
