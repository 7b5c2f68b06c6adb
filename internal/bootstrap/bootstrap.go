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

// Package bootstrap assembles a process: configuration, settings sources,
// service components and the startup readiness report.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gazolla/cafeflow/internal/config"
	"github.com/gazolla/cafeflow/internal/integration"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/metrics"
	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/readiness"
	"github.com/gazolla/cafeflow/internal/settings"
)

// Options configures Boot.
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string

	// Logger replaces the logger built from the config file.
	Logger *slog.Logger

	// HTTPClient is shared by every HTTP component. Nil uses per-component defaults.
	HTTPClient *http.Client
}

// Runtime is a booted process.
type Runtime struct {
	Config     *config.Config
	Settings   *settings.Resolver
	Components *integration.Set
	Statuses   []readiness.ComponentStatus
	Report     string
	Logger     *slog.Logger
}

// HasMissing reports whether any component is MissingConfig.
func (r *Runtime) HasMissing() bool {
	return readiness.HasMissing(r.Statuses)
}

// Boot loads configuration, constructs every enabled component and logs
// the readiness report. Missing settings never fail Boot; only unreadable or
// invalid configuration does.
func Boot(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logCfg := cfg.Log
		logger = cflog.New(&logCfg)
	}
	bootLog := cflog.WithComponent(logger, "bootstrap")

	resolver, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	bootLog.DebugContext(ctx, "Settings sources", slog.Any("sources", resolver.Sources()))

	for _, name := range cfg.Components {
		if _, ok := integration.KnownComponent(name); !ok {
			bootLog.WarnContext(ctx, "Unknown component in config", slog.String(cflog.ComponentKey, name))
		}
	}

	set, err := integration.Build(integration.BuildOptions{
		Settings:   resolver,
		Enabled:    cfg.ComponentEnabled,
		Executor:   protect.New(logger),
		Logger:     logger,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("build components: %w", err)
	}

	statuses := set.Validate(resolver.Lookup)
	report := readiness.Render(statuses)
	counts := readiness.Summarize(statuses)
	if counts.Missing > 0 {
		bootLog.WarnContext(ctx, "Some components are missing configuration\n"+report,
			slog.Int("ready", counts.Ready), slog.Int("missing", counts.Missing), slog.Int("inactive", counts.Inactive))
	} else {
		bootLog.InfoContext(ctx, "Component readiness\n"+report,
			slog.Int("ready", counts.Ready), slog.Int("inactive", counts.Inactive))
	}
	metrics.RecordReadiness(statuses)

	return &Runtime{
		Config:     cfg,
		Settings:   resolver,
		Components: set,
		Statuses:   statuses,
		Report:     report,
		Logger:     logger,
	}, nil
}

// NewResolver builds the settings chain for cfg: environment, the .env file,
// the OS keychain when enabled, then the config file's settings map.
func NewResolver(cfg *config.Config) (*settings.Resolver, error) {
	dotenv, err := settings.NewDotEnvSource(cfg.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	sources := []settings.Source{
		settings.NewEnvSource(),
		dotenv,
		settings.NewFileSource(cfg.Settings),
	}
	if cfg.Keychain {
		sources = append(sources, settings.NewKeychainSource())
	}
	return settings.NewResolver(sources...), nil
}
