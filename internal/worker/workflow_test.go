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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/gazolla/cafeflow/internal/integration"
	"github.com/gazolla/cafeflow/internal/integration/gdrive"
	"github.com/gazolla/cafeflow/internal/integration/reddit"
	"github.com/gazolla/cafeflow/internal/integration/telegram"
	"github.com/gazolla/cafeflow/internal/integration/twitter"
	cflog "github.com/gazolla/cafeflow/internal/log"
)

type DigestWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func TestDigestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(DigestWorkflowSuite))
}

func (s *DigestWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	Register(s.env, NewActivities(&integration.Set{}, cflog.Discard()))
}

func (s *DigestWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *DigestWorkflowSuite) result() *DigestResult {
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())
	var out DigestResult
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	return &out
}

func (s *DigestWorkflowSuite) onFetch(posts []reddit.Post) {
	s.env.OnActivity(FetchRedditPostsActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in FetchPostsInput) ([]reddit.Post, error) {
			s.Equal("golang", in.Subreddit)
			return posts, nil
		})
}

func (s *DigestWorkflowSuite) TestAllChannelsDelivered() {
	s.onFetch(samplePosts())
	s.env.OnActivity(SummarizePostsActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in SummarizeInput) ([]string, error) {
			s.Equal(25, in.MaxWords)
			return []string{"Summary one.", "Summary two."}, nil
		})

	var telegramText string
	s.env.OnActivity(SendTelegramActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in SendTelegramInput) (*telegram.SendResult, error) {
			telegramText = in.Text
			return &telegram.SendResult{ChatID: "42", MessageIDs: []int64{1}}, nil
		})
	s.env.OnActivity(SendEmailActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in SendEmailInput) error {
			s.True(strings.HasPrefix(in.Subject, "r/golang digest - "))
			return nil
		})
	s.env.OnActivity(UploadToDriveActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in UploadInput) (*gdrive.File, error) {
			s.True(strings.HasPrefix(in.Name, "reddit-golang-"))
			s.Equal("folder-1", in.FolderID)
			return &gdrive.File{ID: "f1", WebViewLink: "https://drive.google.com/file/d/f1"}, nil
		})
	s.env.OnActivity(PostTweetActivity, mock.Anything, mock.Anything).Return(&twitter.Tweet{ID: "t1"}, nil)

	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{
		Subreddit:     "golang",
		MaxWords:      25,
		Telegram:      true,
		EmailTo:       []string{"reader@example.com"},
		Drive:         true,
		DriveFolderID: "folder-1",
		Tweet:         true,
	})

	out := s.result()
	s.True(out.Summarized)
	s.Len(out.Items, 2)
	s.Equal("Summary one.", out.Items[0].Summary)
	s.Equal(4, out.Delivered())
	s.Equal([]Delivery{
		{Channel: ChannelTelegram, OK: true, Reference: "chat 42, 1 message(s)"},
		{Channel: ChannelEmail, OK: true, Reference: "reader@example.com"},
		{Channel: ChannelDrive, OK: true, Reference: "https://drive.google.com/file/d/f1"},
		{Channel: ChannelTwitter, OK: true, Reference: "t1"},
	}, out.Deliveries)
	s.Contains(telegramText, "Summary one.")
}

func (s *DigestWorkflowSuite) TestOneChannelFailsOthersDeliver() {
	s.onFetch(samplePosts())
	s.env.OnActivity(SummarizePostsActivity, mock.Anything, mock.Anything).Return([]string{"a", "b"}, nil)
	s.env.OnActivity(SendTelegramActivity, mock.Anything, mock.Anything).Return(nil, errors.New("telegram unavailable")).Times(3)
	s.env.OnActivity(SendEmailActivity, mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{Subreddit: "golang", Telegram: true, EmailTo: []string{"r@example.com"}})

	out := s.result()
	s.Equal(1, out.Delivered())
	s.Require().Len(out.Deliveries, 2)
	s.False(out.Deliveries[0].OK)
	s.Contains(out.Deliveries[0].Error, "telegram unavailable")
	s.True(out.Deliveries[1].OK)
}

func (s *DigestWorkflowSuite) TestSummaryFailureDegradesToTitles() {
	s.onFetch(samplePosts())
	inactive := temporal.NewNonRetryableApplicationError("llm: component inactive", ErrTypeComponentInactive, nil)
	s.env.OnActivity(SummarizePostsActivity, mock.Anything, mock.Anything).Return(nil, inactive).Once()

	var text string
	s.env.OnActivity(SendTelegramActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in SendTelegramInput) (*telegram.SendResult, error) {
			text = in.Text
			return &telegram.SendResult{ChatID: "42", MessageIDs: []int64{9}}, nil
		})

	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{Subreddit: "golang", Telegram: true})

	out := s.result()
	s.False(out.Summarized)
	s.Empty(out.Items[0].Summary)
	s.Contains(text, "1. Go 1.25 released")
}

func (s *DigestWorkflowSuite) TestEveryChannelFailing() {
	s.onFetch(samplePosts())
	s.env.OnActivity(SummarizePostsActivity, mock.Anything, mock.Anything).Return([]string{"a", "b"}, nil)
	denied := temporal.NewNonRetryableApplicationError("forbidden", "auth", nil)
	s.env.OnActivity(SendTelegramActivity, mock.Anything, mock.Anything).Return(nil, denied).Once()
	s.env.OnActivity(PostTweetActivity, mock.Anything, mock.Anything).Return(nil, denied).Once()

	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{Subreddit: "golang", Telegram: true, Tweet: true})

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(ErrTypeDeliveryFailed, appErr.Type())
}

func (s *DigestWorkflowSuite) TestEmptyListingDeliversNothing() {
	s.onFetch(nil)

	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{Subreddit: "golang", Telegram: true})

	out := s.result()
	s.Empty(out.Items)
	s.Empty(out.Deliveries)
}

func (s *DigestWorkflowSuite) TestFetchFailureFailsWorkflow() {
	s.env.OnActivity(FetchRedditPostsActivity, mock.Anything, mock.Anything).Return(
		nil, temporal.NewNonRetryableApplicationError("invalid subreddit", ErrTypeInvalidRequest, nil)).Once()

	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{Subreddit: "golang", Telegram: true})

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *DigestWorkflowSuite) TestInvalidRequestRejected() {
	s.env.ExecuteWorkflow(RedditDigestWorkflow, DigestRequest{Subreddit: "golang"})

	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(ErrTypeInvalidRequest, appErr.Type())
	s.True(appErr.NonRetryable())
}

func TestDigestRequestValidate(t *testing.T) {
	assert.Error(t, DigestRequest{Telegram: true}.Validate())
	assert.Error(t, DigestRequest{Subreddit: "golang"}.Validate())
	assert.NoError(t, DigestRequest{Subreddit: "golang", Drive: true}.Validate())

	req := DigestRequest{Subreddit: "golang", Telegram: true, EmailTo: []string{"a@b.c"}, Tweet: true}
	assert.Equal(t, []string{ChannelTelegram, ChannelEmail, ChannelTwitter}, req.Channels())
}

func TestActivityOptions(t *testing.T) {
	opts := ActivityOptions()
	require.NotNil(t, opts.RetryPolicy)
	assert.Equal(t, int32(3), opts.RetryPolicy.MaximumAttempts)
	assert.Positive(t, opts.StartToCloseTimeout)
}
