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

// Package worker hosts the Temporal side of cafeflow: the activities that
// wrap each service, the digest workflow and the worker process lifecycle.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	cflog "github.com/gazolla/cafeflow/internal/log"
)

// DigestWorkflowIDPrefix prefixes the ID of every started digest.
const DigestWorkflowIDPrefix = "reddit-digest-"

// Registrar is the registration surface shared by worker.Worker and the
// Temporal test environment.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers the digest workflow and every activity under their
// stable names.
func Register(r Registrar, acts *Activities) {
	r.RegisterWorkflowWithOptions(RedditDigestWorkflow, workflow.RegisterOptions{Name: RedditDigestWorkflowName})

	activities := map[string]interface{}{
		FetchRedditPostsActivity: acts.FetchRedditPosts,
		SummarizePostsActivity:   acts.SummarizePosts,
		SendTelegramActivity:     acts.SendTelegram,
		SendEmailActivity:        acts.SendEmail,
		UploadToDriveActivity:    acts.UploadToDrive,
		PostTweetActivity:        acts.PostTweet,
	}
	for name, fn := range activities {
		r.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
	}
}

// Dial connects to the Temporal frontend.
func Dial(ctx context.Context, hostPort, namespace string, logger *slog.Logger) (client.Client, error) {
	logger = cflog.WithComponent(cflog.OrDefault(logger), "temporal")

	start := time.Now()
	c, err := client.DialContext(ctx, client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", hostPort, err)
	}
	logger.Debug("Temporal client connected",
		slog.String("host_port", hostPort),
		slog.String("namespace", namespace),
		slog.Int64(cflog.DurationKey, time.Since(start).Milliseconds()))
	return c, nil
}

// Options configures Run.
type Options struct {
	Client     client.Client
	TaskQueue  string
	Activities *Activities
	Logger     *slog.Logger
}

// Run polls TaskQueue until ctx is cancelled, then stops the worker and
// waits for in-flight activities.
func Run(ctx context.Context, opts Options) error {
	logger := cflog.WithComponent(cflog.OrDefault(opts.Logger), "worker")

	w := worker.New(opts.Client, opts.TaskQueue, worker.Options{})
	Register(w, opts.Activities)

	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker on %s: %w", opts.TaskQueue, err)
	}
	logger.Info("Worker started", slog.String("task_queue", opts.TaskQueue))

	<-ctx.Done()

	logger.Info("Worker stopping")
	w.Stop()
	return nil
}

// Starter starts workflow executions. client.Client satisfies it.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// StartDigest validates req and starts a digest workflow on queue.
func StartDigest(ctx context.Context, c Starter, queue string, req DigestRequest) (client.WorkflowRun, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid digest request: %w", err)
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        DigestWorkflowIDPrefix + uuid.NewString(),
		TaskQueue: queue,
	}, RedditDigestWorkflowName, req)
	if err != nil {
		return nil, fmt.Errorf("start digest for r/%s: %w", req.Subreddit, err)
	}
	return run, nil
}
