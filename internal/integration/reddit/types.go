package reddit

import "time"

// Sort orders for subreddit listings.
const (
	SortHot    = "hot"
	SortNew    = "new"
	SortTop    = "top"
	SortRising = "rising"
)

// Query selects posts from a subreddit listing.
type Query struct {
	// Subreddit is the name without the r/ prefix.
	Subreddit string

	// Sort is one of hot, new, top, rising. Default: hot
	Sort string

	// Limit is the number of posts to fetch (1-100). Default: 10
	Limit int

	// TimeRange restricts top listings: hour, day, week, month, year, all.
	TimeRange string
}

// Post is a subreddit submission.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Subreddit   string    `json:"subreddit"`
	Score       int64     `json:"score"`
	NumComments int64     `json:"num_comments"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"`
	SelfText    string    `json:"selftext,omitempty"`
	Over18      bool      `json:"over_18"`
	Stickied    bool      `json:"stickied"`
	CreatedAt   time.Time `json:"created_at"`
}

// Comment is a top-level reply to a post.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
