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
	"context"
	"errors"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/gazolla/cafeflow/internal/integration"
	"github.com/gazolla/cafeflow/internal/integration/email"
	"github.com/gazolla/cafeflow/internal/integration/gdrive"
	"github.com/gazolla/cafeflow/internal/integration/reddit"
	"github.com/gazolla/cafeflow/internal/integration/telegram"
	"github.com/gazolla/cafeflow/internal/integration/twitter"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/metrics"
	"github.com/gazolla/cafeflow/internal/transport"
)

// Activity names as registered with Temporal.
const (
	FetchRedditPostsActivity = "FetchRedditPosts"
	SummarizePostsActivity   = "SummarizePosts"
	SendTelegramActivity     = "SendTelegram"
	SendEmailActivity        = "SendEmail"
	UploadToDriveActivity    = "UploadToDrive"
	PostTweetActivity        = "PostTweet"
)

// Application error types set on non-retryable failures.
const (
	ErrTypeComponentInactive = "ComponentInactive"
	ErrTypeInvalidRequest    = "InvalidRequest"
	ErrTypeDeliveryFailed    = "DeliveryFailed"
)

// FetchPostsInput is the input of FetchRedditPosts.
type FetchPostsInput struct {
	Subreddit string `json:"subreddit"`
	Sort      string `json:"sort,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	TimeRange string `json:"time_range,omitempty"`
}

// SummarizeInput is the input of SummarizePosts.
type SummarizeInput struct {
	Posts    []reddit.Post `json:"posts"`
	MaxWords int           `json:"max_words,omitempty"`
}

// SendTelegramInput is the input of SendTelegram. An empty ChatID uses the
// configured default chat.
type SendTelegramInput struct {
	ChatID string `json:"chat_id,omitempty"`
	Text   string `json:"text"`
}

// SendEmailInput is the input of SendEmail.
type SendEmailInput struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// UploadInput is the input of UploadToDrive.
type UploadInput struct {
	Name     string `json:"name"`
	FolderID string `json:"folder_id,omitempty"`
	Content  string `json:"content"`
}

// PostTweetInput is the input of PostTweet.
type PostTweetInput struct {
	Text string `json:"text"`
}

// Activities binds Temporal activities to the constructed components.
type Activities struct {
	set    *integration.Set
	logger *slog.Logger
}

// NewActivities creates the activity set.
func NewActivities(set *integration.Set, logger *slog.Logger) *Activities {
	return &Activities{set: set, logger: cflog.WithComponent(cflog.OrDefault(logger), "worker")}
}

// FetchRedditPosts fetches a subreddit listing.
func (a *Activities) FetchRedditPosts(ctx context.Context, in FetchPostsInput) ([]reddit.Post, error) {
	return runActivity(ctx, a, FetchRedditPostsActivity, integration.Reddit, func(ctx context.Context) ([]reddit.Post, error) {
		return a.set.Reddit.FetchPosts(ctx, reddit.Query{
			Subreddit: in.Subreddit,
			Sort:      in.Sort,
			Limit:     in.Limit,
			TimeRange: in.TimeRange,
		})
	})
}

// SummarizePosts summarizes each post with the LLM, in order. Calls are
// spaced by the LLM request delay.
func (a *Activities) SummarizePosts(ctx context.Context, in SummarizeInput) ([]string, error) {
	return runActivity(ctx, a, SummarizePostsActivity, integration.LLM, func(ctx context.Context) ([]string, error) {
		texts := make([]string, 0, len(in.Posts))
		for _, post := range in.Posts {
			texts = append(texts, postText(post))
		}
		return a.set.LLM.SummarizeEach(ctx, texts, in.MaxWords)
	})
}

// SendTelegram delivers text to a Telegram chat. Each accepted message is
// recorded as heartbeat details; a retried attempt resumes after the messages
// the previous attempt delivered.
func (a *Activities) SendTelegram(ctx context.Context, in SendTelegramInput) (*telegram.SendResult, error) {
	return runActivity(ctx, a, SendTelegramActivity, integration.Telegram, func(ctx context.Context) (*telegram.SendResult, error) {
		chatID := in.ChatID
		if chatID == "" {
			chatID = a.set.Telegram.DefaultChatID()
		}

		var delivered []int64
		if activity.HasHeartbeatDetails(ctx) {
			var prior telegram.SendResult
			if err := activity.GetHeartbeatDetails(ctx, &prior); err == nil && prior.ChatID == chatID {
				delivered = prior.MessageIDs
				a.logger.InfoContext(ctx, "resuming telegram delivery",
					slog.String(cflog.ActivityKey, SendTelegramActivity),
					slog.Int("delivered", len(delivered)))
			}
		}

		return a.set.Telegram.ResumeMessage(ctx, chatID, in.Text, delivered, func(r *telegram.SendResult) {
			activity.RecordHeartbeat(ctx, *r)
		})
	})
}

// SendEmail delivers a plain-text email.
func (a *Activities) SendEmail(ctx context.Context, in SendEmailInput) error {
	_, err := runActivity(ctx, a, SendEmailActivity, integration.Email, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.set.Email.Send(ctx, email.Message{To: in.To, Subject: in.Subject, Body: in.Body})
	})
	return err
}

// UploadToDrive stores a markdown document in Google Drive.
func (a *Activities) UploadToDrive(ctx context.Context, in UploadInput) (*gdrive.File, error) {
	return runActivity(ctx, a, UploadToDriveActivity, integration.GoogleDrive, func(ctx context.Context) (*gdrive.File, error) {
		return a.set.Drive.UploadFile(ctx, gdrive.Upload{
			Name:     in.Name,
			MimeType: "text/markdown",
			Content:  []byte(in.Content),
			FolderID: in.FolderID,
		})
	})
}

// PostTweet publishes a tweet.
func (a *Activities) PostTweet(ctx context.Context, in PostTweetInput) (*twitter.Tweet, error) {
	return runActivity(ctx, a, PostTweetActivity, integration.Twitter, func(ctx context.Context) (*twitter.Tweet, error) {
		return a.set.Twitter.PostTweet(ctx, in.Text)
	})
}

// runActivity checks that component is active, runs fn, records metrics and
// converts permanent failures into non-retryable application errors.
func runActivity[T any](ctx context.Context, a *Activities, name, component string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	logger := a.logger.With(slog.String(cflog.ActivityKey, name))

	if err := a.set.Require(component); err != nil {
		metrics.RecordActivity(name, metrics.OutcomeSkipped, 0)
		logger.WarnContext(ctx, "activity skipped", cflog.Error(err))
		return zero, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeComponentInactive, err)
	}

	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordActivity(name, metrics.OutcomeFailure, elapsed)
		return zero, toApplicationError(err)
	}

	metrics.RecordActivity(name, metrics.OutcomeSuccess, elapsed)
	logger.DebugContext(ctx, "activity completed", slog.Int64(cflog.DurationKey, elapsed.Milliseconds()))
	return out, nil
}

// toApplicationError marks errors that cannot succeed on retry (rejected
// input, authorization and other 4xx failures) as non-retryable. Everything
// else is returned unchanged so the workflow retry policy applies. A
// cancelled call says nothing about the remote side: the attempt was
// interrupted (worker shutdown, activity timeout) and the next one may succeed.
func toApplicationError(err error) error {
	var tErr *transport.TransportError
	if errors.As(err, &tErr) && !tErr.IsRetryable() && !tErr.IsType(transport.ErrorTypeCancelled) {
		errType := string(tErr.Type)
		if tErr.IsType(transport.ErrorTypeInvalidReq) {
			errType = ErrTypeInvalidRequest
		}
		return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
	}
	return err
}
