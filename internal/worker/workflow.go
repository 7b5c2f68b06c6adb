// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/gazolla/cafeflow/internal/integration/gdrive"
	"github.com/gazolla/cafeflow/internal/integration/reddit"
	"github.com/gazolla/cafeflow/internal/integration/telegram"
	"github.com/gazolla/cafeflow/internal/integration/twitter"
)

// RedditDigestWorkflowName is the registered workflow type.
const RedditDigestWorkflowName = "RedditDigest"

// Delivery channels.
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelDrive    = "drive"
	ChannelTwitter  = "twitter"
)

// DigestRequest configures one digest run.
type DigestRequest struct {
	Subreddit string `json:"subreddit"`
	Sort      string `json:"sort,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	TimeRange string `json:"time_range,omitempty"`

	// MaxWords bounds each summary. Default: 60
	MaxWords int `json:"max_words,omitempty"`

	// Telegram delivers to TelegramChatID, or the default chat when empty.
	Telegram       bool   `json:"telegram,omitempty"`
	TelegramChatID string `json:"telegram_chat_id,omitempty"`

	// EmailTo delivers by email when non-empty.
	EmailTo []string `json:"email_to,omitempty"`

	// Drive archives the digest as a markdown file.
	Drive         bool   `json:"drive,omitempty"`
	DriveFolderID string `json:"drive_folder_id,omitempty"`

	// Tweet announces the top post.
	Tweet bool `json:"tweet,omitempty"`
}

// Validate checks the request before any activity runs.
func (r DigestRequest) Validate() error {
	if strings.TrimSpace(r.Subreddit) == "" {
		return errors.New("subreddit is required")
	}
	if len(r.Channels()) == 0 {
		return errors.New("at least one delivery channel is required")
	}
	return nil
}

// Channels returns the requested delivery channels.
func (r DigestRequest) Channels() []string {
	var channels []string
	if r.Telegram {
		channels = append(channels, ChannelTelegram)
	}
	if len(r.EmailTo) > 0 {
		channels = append(channels, ChannelEmail)
	}
	if r.Drive {
		channels = append(channels, ChannelDrive)
	}
	if r.Tweet {
		channels = append(channels, ChannelTwitter)
	}
	return channels
}

// Delivery records the outcome of one channel.
type Delivery struct {
	Channel   string `json:"channel"`
	OK        bool   `json:"ok"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DigestResult is the workflow result.
type DigestResult struct {
	Subreddit  string       `json:"subreddit"`
	Items      []DigestItem `json:"items"`
	Summarized bool         `json:"summarized"`
	Deliveries []Delivery   `json:"deliveries"`
}

// Delivered returns the number of channels that succeeded.
func (r *DigestResult) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.OK {
			n++
		}
	}
	return n
}

// ActivityOptions returns the options every digest activity runs with.
func ActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
}

type pendingDelivery struct {
	channel string
	collect func() (string, error)
}

// RedditDigestWorkflow fetches posts, summarizes them and delivers the digest
// to every requested channel. Channels run concurrently and independently; the
// workflow fails only when no channel succeeded. A summarization failure
// degrades the digest to titles and links.
func RedditDigestWorkflow(ctx workflow.Context, req DigestRequest) (*DigestResult, error) {
	logger := workflow.GetLogger(ctx)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	}
	if req.MaxWords <= 0 {
		req.MaxWords = 60
	}

	ctx = workflow.WithActivityOptions(ctx, ActivityOptions())

	var posts []reddit.Post
	err := workflow.ExecuteActivity(ctx, FetchRedditPostsActivity, FetchPostsInput{
		Subreddit: req.Subreddit,
		Sort:      req.Sort,
		Limit:     req.Limit,
		TimeRange: req.TimeRange,
	}).Get(ctx, &posts)
	if err != nil {
		return nil, err
	}

	result := &DigestResult{Subreddit: req.Subreddit, Items: make([]DigestItem, len(posts))}
	if len(posts) == 0 {
		logger.Info("Subreddit listing is empty, nothing to deliver", "subreddit", req.Subreddit)
		return result, nil
	}
	for i, p := range posts {
		result.Items[i].Post = p
	}

	// Summaries are throttled per post, so the activity gets more time.
	summarizeOpts := ActivityOptions()
	summarizeOpts.StartToCloseTimeout = 10 * time.Minute
	var summaries []string
	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, summarizeOpts), SummarizePostsActivity, SummarizeInput{
		Posts:    posts,
		MaxWords: req.MaxWords,
	}).Get(ctx, &summaries)
	if err != nil {
		logger.Warn("Summaries unavailable, delivering titles only", "error", err)
	} else {
		for i := range result.Items {
			if i < len(summaries) {
				result.Items[i].Summary = summaries[i]
			}
		}
		result.Summarized = true
	}

	pending := startDeliveries(ctx, req, result.Items)
	for _, p := range pending {
		ref, err := p.collect()
		d := Delivery{Channel: p.channel, OK: err == nil, Reference: ref}
		if err != nil {
			d.Error = err.Error()
			logger.Warn("Delivery failed", "channel", p.channel, "error", err)
		}
		result.Deliveries = append(result.Deliveries, d)
	}

	if result.Delivered() == 0 {
		return nil, temporal.NewApplicationError(
			fmt.Sprintf("no delivery channel succeeded (%d attempted)", len(pending)),
			ErrTypeDeliveryFailed,
		)
	}
	return result, nil
}

// startDeliveries schedules every requested channel before waiting on any.
func startDeliveries(ctx workflow.Context, req DigestRequest, items []DigestItem) []pendingDelivery {
	text := FormatDigest(req.Subreddit, items)
	now := workflow.Now(ctx)
	var pending []pendingDelivery

	if req.Telegram {
		f := workflow.ExecuteActivity(ctx, SendTelegramActivity, SendTelegramInput{ChatID: req.TelegramChatID, Text: text})
		pending = append(pending, pendingDelivery{channel: ChannelTelegram, collect: func() (string, error) {
			var out telegram.SendResult
			if err := f.Get(ctx, &out); err != nil {
				return "", err
			}
			return fmt.Sprintf("chat %s, %d message(s)", out.ChatID, len(out.MessageIDs)), nil
		}})
	}

	if len(req.EmailTo) > 0 {
		f := workflow.ExecuteActivity(ctx, SendEmailActivity, SendEmailInput{
			To:      req.EmailTo,
			Subject: fmt.Sprintf("r/%s digest - %s", req.Subreddit, now.UTC().Format("2006-01-02")),
			Body:    text,
		})
		pending = append(pending, pendingDelivery{channel: ChannelEmail, collect: func() (string, error) {
			if err := f.Get(ctx, nil); err != nil {
				return "", err
			}
			return strings.Join(req.EmailTo, ", "), nil
		}})
	}

	if req.Drive {
		f := workflow.ExecuteActivity(ctx, UploadToDriveActivity, UploadInput{
			Name:     DigestFileName(req.Subreddit, now),
			FolderID: req.DriveFolderID,
			Content:  FormatMarkdown(req.Subreddit, items, now),
		})
		pending = append(pending, pendingDelivery{channel: ChannelDrive, collect: func() (string, error) {
			var out gdrive.File
			if err := f.Get(ctx, &out); err != nil {
				return "", err
			}
			if out.WebViewLink != "" {
				return out.WebViewLink, nil
			}
			return out.ID, nil
		}})
	}

	if req.Tweet {
		f := workflow.ExecuteActivity(ctx, PostTweetActivity, PostTweetInput{Text: TweetText(req.Subreddit, items[0].Post)})
		pending = append(pending, pendingDelivery{channel: ChannelTwitter, collect: func() (string, error) {
			var out twitter.Tweet
			if err := f.Get(ctx, &out); err != nil {
				return "", err
			}
			return out.ID, nil
		}})
	}

	return pending
}
