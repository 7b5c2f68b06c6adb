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

// Package worker implements "cafeflow worker", the long-running Temporal
// worker process.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gazolla/cafeflow/internal/bootstrap"
	"github.com/gazolla/cafeflow/internal/commands/shared"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/metrics"
	cfworker "github.com/gazolla/cafeflow/internal/worker"
)

const shutdownTimeout = 5 * time.Second

// NewCommand creates the worker command.
func NewCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker",
		Long: `Worker boots every enabled component, logs the readiness report, serves
Prometheus metrics and polls the configured task queue until interrupted.

Components missing configuration stay registered; activities that need an
inactive component fail without retry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Refuse to start when any component is missing configuration")
	return cmd
}

func run(ctx context.Context, strict bool) error {
	rt, err := bootstrap.Boot(ctx, bootstrap.Options{
		ConfigPath: shared.GetConfigPath(),
		Logger:     shared.LoggerOverride(),
	})
	if err != nil {
		return shared.NewInvalidConfigError("load configuration", err)
	}
	if strict && rt.HasMissing() {
		return shared.NewMissingConfigError("components are missing configuration (see report above)")
	}
	logger := rt.Logger

	if addr := rt.Config.Metrics.Addr; addr != "" {
		srv, err := serveMetrics(addr, logger)
		if err != nil {
			return shared.NewExecutionError("serve metrics", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tc := rt.Config.Temporal
	c, err := cfworker.Dial(ctx, tc.HostPort, tc.Namespace, logger)
	if err != nil {
		return shared.NewExecutionError("connect to temporal", err)
	}
	defer c.Close()

	return cfworker.Run(ctx, cfworker.Options{
		Client:     c,
		TaskQueue:  tc.TaskQueue,
		Activities: cfworker.NewActivities(rt.Components, logger),
		Logger:     logger,
	})
}

// serveMetrics starts the /metrics endpoint. The listener is bound before
// returning so address errors surface immediately.
func serveMetrics(addr string, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", cflog.Error(err))
		}
	}()
	logger.Info("Serving metrics", slog.String("addr", srv.Addr))
	return srv, nil
}
