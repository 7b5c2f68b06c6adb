package worker

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gazolla/cafeflow/internal/integration/reddit"
	"github.com/gazolla/cafeflow/internal/integration/twitter"
)

const redditWebURL = "https://www.reddit.com"

// maxPostText bounds the text sent to the LLM per post.
const maxPostText = 4000

// DigestItem is one post with its optional summary.
type DigestItem struct {
	Post    reddit.Post `json:"post"`
	Summary string      `json:"summary,omitempty"`
}

// FormatDigest renders the digest as plain text suitable for chat and email.
func FormatDigest(subreddit string, items []DigestItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "r/%s digest\n", subreddit)

	for i, item := range items {
		p := item.Post
		fmt.Fprintf(&b, "\n%d. %s (%d points, %d comments)\n", i+1, p.Title, p.Score, p.NumComments)
		if item.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", item.Summary)
		}
		fmt.Fprintf(&b, "   %s\n", postURL(p))
	}
	return b.String()
}

// FormatMarkdown renders the digest as a markdown document.
func FormatMarkdown(subreddit string, items []DigestItem, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# r/%s digest - %s\n", subreddit, at.UTC().Format("2006-01-02"))

	for _, item := range items {
		p := item.Post
		fmt.Fprintf(&b, "\n## [%s](%s)\n\n", p.Title, postURL(p))
		fmt.Fprintf(&b, "%d points, %d comments, by u/%s\n", p.Score, p.NumComments, p.Author)
		if item.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", item.Summary)
		}
	}
	return b.String()
}

// DigestFileName names the Drive document for a digest.
func DigestFileName(subreddit string, at time.Time) string {
	return fmt.Sprintf("reddit-%s-%s.md", strings.ToLower(subreddit), at.UTC().Format("2006-01-02"))
}

// TweetText announces the top post, truncating the title to fit one tweet.
func TweetText(subreddit string, top reddit.Post) string {
	link := postURL(top)
	prefix := fmt.Sprintf("Top on r/%s: ", subreddit)
	room := twitter.MaxTweetLength - utf8.RuneCountInString(prefix) - 1 - utf8.RuneCountInString(link)
	return prefix + truncateRunes(top.Title, room) + " " + link
}

func postURL(p reddit.Post) string {
	if p.Permalink != "" {
		return redditWebURL + p.Permalink
	}
	return p.URL
}

func postText(p reddit.Post) string {
	text := p.Title
	if p.SelfText != "" {
		text += "\n\n" + p.SelfText
	}
	return truncateRunes(text, maxPostText)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
