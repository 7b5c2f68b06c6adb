// Package reddit reads public subreddit listings through Reddit's JSON API.
package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

// ServiceName identifies Reddit in logs and errors.
const ServiceName = "reddit"

const (
	defaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "cafeflow/1.0"
	defaultLimit     = 10
	maxLimit         = 100
)

var subredditPattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

var validTimeRanges = map[string]bool{
	"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true,
}

// Config configures the Reddit client.
type Config struct {
	// BaseURL defaults to https://www.reddit.com.
	BaseURL string

	// UserAgent is required by Reddit's API rules. Default: cafeflow/1.0
	UserAgent string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client fetches posts and comments. Reddit's public listings need no credentials.
type Client struct {
	exec      *protect.Executor
	transport transport.Transport
}

// New creates a Reddit client.
func New(cfg Config, exec *protect.Executor) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	t, err := transport.NewHTTPTransport(&transport.HTTPConfig{
		BaseURL:   cfg.BaseURL,
		Client:    cfg.HTTPClient,
		UserAgent: cfg.UserAgent,
		Headers:   map[string]string{"Accept": "application/json"},
		// Unauthenticated clients are limited to roughly one request per second.
		RequestsPerSecond: 1,
		Burst:             2,
	})
	if err != nil {
		return nil, fmt.Errorf("reddit: %w", err)
	}
	return &Client{exec: exec, transport: t}, nil
}

// FetchPosts returns posts from a subreddit listing in listing order.
func (c *Client) FetchPosts(ctx context.Context, q Query) ([]Post, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "fetchPosts", func(ctx context.Context) ([]Post, error) {
		path, err := listingPath(q)
		if err != nil {
			return nil, err
		}

		resp, err := c.transport.Execute(ctx, &transport.Request{Method: http.MethodGet, URL: path})
		if err != nil {
			return nil, err
		}
		return parsePosts(resp.Body)
	})
}

// FetchComments returns the top-level comments of a post, best first.
func (c *Client) FetchComments(ctx context.Context, subreddit, postID string, limit int) ([]Comment, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "fetchComments", func(ctx context.Context) ([]Comment, error) {
		if !subredditPattern.MatchString(subreddit) {
			return nil, transport.InvalidRequest("invalid subreddit %q", subreddit)
		}
		if postID == "" {
			return nil, transport.InvalidRequest("post id is required")
		}
		limit, err := normalizeLimit(limit)
		if err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("sort", "top")
		params.Set("raw_json", "1")
		path := fmt.Sprintf("/r/%s/comments/%s.json?%s", subreddit, url.PathEscape(postID), params.Encode())

		resp, err := c.transport.Execute(ctx, &transport.Request{Method: http.MethodGet, URL: path})
		if err != nil {
			return nil, err
		}
		return parseComments(resp.Body, limit)
	})
}

func listingPath(q Query) (string, error) {
	if !subredditPattern.MatchString(q.Subreddit) {
		return "", transport.InvalidRequest("invalid subreddit %q", q.Subreddit)
	}

	sort := q.Sort
	if sort == "" {
		sort = SortHot
	}
	switch sort {
	case SortHot, SortNew, SortTop, SortRising:
	default:
		return "", transport.InvalidRequest("unsupported sort %q (hot, new, top, rising)", q.Sort)
	}

	limit, err := normalizeLimit(q.Limit)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")
	if q.TimeRange != "" {
		if sort != SortTop {
			return "", transport.InvalidRequest("time range applies to top listings only")
		}
		if !validTimeRanges[q.TimeRange] {
			return "", transport.InvalidRequest("unsupported time range %q", q.TimeRange)
		}
		params.Set("t", q.TimeRange)
	}

	return fmt.Sprintf("/r/%s/%s.json?%s", q.Subreddit, sort, params.Encode()), nil
}

func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return defaultLimit, nil
	}
	if limit < 1 || limit > maxLimit {
		return 0, transport.InvalidRequest("limit must be between 1 and %d, got %d", maxLimit, limit)
	}
	return limit, nil
}

func parsePosts(body []byte) ([]Post, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("listing is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if root.Get("kind").String() != "Listing" {
		return nil, fmt.Errorf("unexpected listing kind %q", root.Get("kind").String())
	}

	children := root.Get("data.children.#.data").Array()
	posts := make([]Post, 0, len(children))
	for _, d := range children {
		posts = append(posts, Post{
			ID:          d.Get("id").String(),
			Title:       d.Get("title").String(),
			Author:      d.Get("author").String(),
			Subreddit:   d.Get("subreddit").String(),
			Score:       d.Get("score").Int(),
			NumComments: d.Get("num_comments").Int(),
			URL:         d.Get("url").String(),
			Permalink:   d.Get("permalink").String(),
			SelfText:    d.Get("selftext").String(),
			Over18:      d.Get("over_18").Bool(),
			Stickied:    d.Get("stickied").Bool(),
			CreatedAt:   unixTime(d.Get("created_utc")),
		})
	}
	return posts, nil
}

// parseComments reads the second listing of a comments response; the first
// listing holds the post itself.
func parseComments(body []byte, limit int) ([]Comment, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("comments response is not valid JSON")
	}
	listing := gjson.GetBytes(body, "1.data.children")
	if !listing.Exists() {
		return nil, fmt.Errorf("comments listing missing from response")
	}

	var comments []Comment
	listing.ForEach(func(_, child gjson.Result) bool {
		if child.Get("kind").String() != "t1" {
			return true
		}
		d := child.Get("data")
		comments = append(comments, Comment{
			ID:        d.Get("id").String(),
			Author:    d.Get("author").String(),
			Body:      d.Get("body").String(),
			Score:     d.Get("score").Int(),
			CreatedAt: unixTime(d.Get("created_utc")),
		})
		return len(comments) < limit
	})
	return comments, nil
}

func unixTime(v gjson.Result) time.Time {
	if !v.Exists() {
		return time.Time{}
	}
	return time.Unix(int64(v.Float()), 0).UTC()
}
