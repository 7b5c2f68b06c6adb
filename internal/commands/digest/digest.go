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

// Package digest implements "cafeflow digest", which starts a Reddit digest
// workflow on a running worker.
package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gazolla/cafeflow/internal/commands/shared"
	"github.com/gazolla/cafeflow/internal/config"
	cflog "github.com/gazolla/cafeflow/internal/log"
	cfworker "github.com/gazolla/cafeflow/internal/worker"
)

type flags struct {
	subreddit    string
	sort         string
	limit        int
	timeRange    string
	maxWords     int
	telegram     bool
	telegramChat string
	emailTo      []string
	drive        bool
	driveFolder  string
	tweet        bool
	wait         bool
}

// temporalClient is the part of client.Client the command uses.
type temporalClient interface {
	cfworker.Starter
	Close()
}

// dial is replaced in tests.
var dial = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (temporalClient, error) {
	return cfworker.Dial(ctx, cfg.Temporal.HostPort, cfg.Temporal.Namespace, logger)
}

type startResponse struct {
	shared.JSONResponse
	WorkflowID string                 `json:"workflow_id"`
	RunID      string                 `json:"run_id"`
	Result     *cfworker.DigestResult `json:"result,omitempty"`
}

// NewCommand creates the digest command.
func NewCommand() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Start a Reddit digest workflow",
		Long: `Digest fetches a subreddit listing, summarizes each post and delivers the
result to the selected channels. The workflow runs on a cafeflow worker;
this command only starts it, unless --wait is given.`,
		Example: `  cafeflow digest --subreddit golang --telegram
  cafeflow digest --subreddit golang --sort top --time week --email-to me@example.com --drive --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.subreddit, "subreddit", "r", "", "Subreddit to digest (required)")
	fl.StringVar(&f.sort, "sort", "hot", "Listing sort: hot, new, top, rising")
	fl.IntVar(&f.limit, "limit", 10, "Number of posts")
	fl.StringVar(&f.timeRange, "time", "", "Time range for top listings: hour, day, week, month, year, all")
	fl.IntVar(&f.maxWords, "max-words", 60, "Maximum words per summary")
	fl.BoolVar(&f.telegram, "telegram", false, "Deliver to the default Telegram chat")
	fl.StringVar(&f.telegramChat, "telegram-chat", "", "Deliver to this Telegram chat (implies --telegram)")
	fl.StringSliceVar(&f.emailTo, "email-to", nil, "Deliver by email to these addresses")
	fl.BoolVar(&f.drive, "drive", false, "Archive the digest to Google Drive")
	fl.StringVar(&f.driveFolder, "drive-folder", "", "Google Drive folder ID (implies --drive)")
	fl.BoolVar(&f.tweet, "tweet", false, "Tweet the top post")
	fl.BoolVar(&f.wait, "wait", false, "Wait for the workflow to finish and print the result")
	_ = cmd.MarkFlagRequired("subreddit")

	return cmd
}

// request converts flags into a workflow request.
func (f *flags) request() cfworker.DigestRequest {
	return cfworker.DigestRequest{
		Subreddit:      f.subreddit,
		Sort:           f.sort,
		Limit:          f.limit,
		TimeRange:      f.timeRange,
		MaxWords:       f.maxWords,
		Telegram:       f.telegram || f.telegramChat != "",
		TelegramChatID: f.telegramChat,
		EmailTo:        f.emailTo,
		Drive:          f.drive || f.driveFolder != "",
		DriveFolderID:  f.driveFolder,
		Tweet:          f.tweet,
	}
}

func run(cmd *cobra.Command, f *flags) error {
	req := f.request()
	if err := req.Validate(); err != nil {
		return &shared.ExitError{Code: shared.ExitFailed, Message: "invalid digest request", Cause: err}
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return shared.NewInvalidConfigError("load configuration", err)
	}
	logger := shared.LoggerOverride()
	if logger == nil {
		logger = cflog.New(&cfg.Log)
	}

	ctx := cmd.Context()
	c, err := dial(ctx, cfg, logger)
	if err != nil {
		return shared.NewExecutionError("connect to temporal", err)
	}
	defer c.Close()

	wr, err := cfworker.StartDigest(ctx, c, cfg.Temporal.TaskQueue, req)
	if err != nil {
		return shared.NewExecutionError("start digest", err)
	}

	resp := startResponse{
		JSONResponse: shared.NewJSONResponse("digest", true),
		WorkflowID:   wr.GetID(),
		RunID:        wr.GetRunID(),
	}
	out := cmd.OutOrStdout()

	if !f.wait {
		return writeResult(out, resp)
	}

	var result cfworker.DigestResult
	if err := wr.Get(ctx, &result); err != nil {
		resp.Success = false
		_ = writeResult(out, resp)
		return shared.NewExecutionError("digest workflow failed", err)
	}
	resp.Result = &result
	return writeResult(out, resp)
}

func writeResult(w io.Writer, resp startResponse) error {
	if shared.GetJSON() {
		return shared.EmitJSON(w, resp)
	}
	if shared.GetQuiet() {
		return nil
	}

	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("workflow:"), resp.WorkflowID)
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("run:     "), resp.RunID)
	if resp.Result == nil {
		return nil
	}

	r := resp.Result
	fmt.Fprintf(w, "\n%s r/%s, %d post(s), summarized: %v\n", shared.Header.Render("Digest"), r.Subreddit, len(r.Items), r.Summarized)
	for _, d := range r.Deliveries {
		if d.OK {
			fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("%-9s %s", d.Channel, d.Reference)))
		} else {
			fmt.Fprintln(w, shared.RenderError(fmt.Sprintf("%-9s %s", d.Channel, d.Error)))
		}
	}
	if len(r.Deliveries) == 0 {
		fmt.Fprintln(w, shared.RenderWarn("nothing to deliver"))
	}
	return nil
}
