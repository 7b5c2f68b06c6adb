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

// Package config loads the CafeFlow configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	cflog "github.com/gazolla/cafeflow/internal/log"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete CafeFlow configuration.
type Config struct {
	// Log configures the structured logger.
	Log cflog.Config `yaml:"log"`

	// Temporal configures the workflow runtime connection.
	Temporal TemporalConfig `yaml:"temporal"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Components lists the components to construct. Components left out
	// are reported as not active. An empty list enables every component.
	Components []string `yaml:"components,omitempty"`

	// Keychain adds the OS keychain as a settings source.
	Keychain bool `yaml:"keychain,omitempty"`

	// EnvFile is a .env file consulted after the process environment.
	// Default: .env
	EnvFile string `yaml:"env_file,omitempty"`

	// Settings holds component settings (API keys, SMTP credentials).
	// It is the lowest priority settings source.
	Settings map[string]string `yaml:"settings,omitempty"`
}

// TemporalConfig configures the Temporal client and worker.
type TemporalConfig struct {
	// HostPort is the Temporal frontend address.
	// Default: localhost:7233
	HostPort string `yaml:"host_port"`

	// Namespace is the Temporal namespace.
	// Default: default
	Namespace string `yaml:"namespace"`

	// TaskQueue is the queue the worker polls and the CLI starts workflows on.
	// Default: cafeflow
	TaskQueue string `yaml:"task_queue"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Log: cflog.Config{
			Level:  "info",
			Format: cflog.FormatText,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "cafeflow",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
		EnvFile: ".env",
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
// An empty path falls back to CAFEFLOW_CONFIG and then to the default path
// under the XDG config directory. A missing default file is not an error;
// a missing file that was asked for explicitly is.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, explicit, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		if err := cfg.loadFromFile(resolved); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config %s: %w", resolved, err)
			}
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ComponentEnabled reports whether the named component should be constructed.
func (c *Config) ComponentEnabled(name string) bool {
	if len(c.Components) == 0 {
		return true
	}
	for _, enabled := range c.Components {
		if strings.EqualFold(enabled, name) {
			return true
		}
	}
	return false
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != cflog.FormatJSON && c.Log.Format != cflog.FormatText {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if strings.TrimSpace(c.Temporal.HostPort) == "" {
		errs = append(errs, "temporal.host_port is required")
	}
	if strings.TrimSpace(c.Temporal.Namespace) == "" {
		errs = append(errs, "temporal.namespace is required")
	}
	if strings.TrimSpace(c.Temporal.TaskQueue) == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	seen := make(map[string]bool, len(c.Components))
	for i, name := range c.Components {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			errs = append(errs, fmt.Sprintf("components[%d] is empty", i))
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Sprintf("components lists %q more than once", name))
		}
		seen[key] = true
	}

	for key := range c.Settings {
		if strings.TrimSpace(key) == "" || strings.ContainsAny(key, " \t=") {
			errs = append(errs, fmt.Sprintf("settings key %q is not a valid name", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyDefaults fills in zero values so minimal files (just settings) work.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Temporal.HostPort == "" {
		c.Temporal.HostPort = defaults.Temporal.HostPort
	}
	if c.Temporal.Namespace == "" {
		c.Temporal.Namespace = defaults.Temporal.Namespace
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = defaults.Temporal.TaskQueue
	}
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	cflog.ApplyEnv(&c.Log)

	if val := os.Getenv("TEMPORAL_ADDRESS"); val != "" {
		c.Temporal.HostPort = val
	}
	if val := os.Getenv("TEMPORAL_NAMESPACE"); val != "" {
		c.Temporal.Namespace = val
	}
	if val := os.Getenv("CAFEFLOW_TASK_QUEUE"); val != "" {
		c.Temporal.TaskQueue = val
	}
	if val, ok := os.LookupEnv("CAFEFLOW_METRICS_ADDR"); ok {
		c.Metrics.Addr = val
	}
	if val := os.Getenv("CAFEFLOW_KEYCHAIN"); val != "" {
		c.Keychain = val == "1" || strings.ToLower(val) == "true"
	}
}

// resolvePath picks the config file to read. explicit is true when the
// caller or CAFEFLOW_CONFIG named the file.
func resolvePath(path string) (resolved string, explicit bool, err error) {
	if path == "" {
		path = os.Getenv("CAFEFLOW_CONFIG")
	}
	if path != "" {
		expanded, err := expandHome(path)
		if err != nil {
			return "", false, err
		}
		return expanded, true, nil
	}

	defaultPath, err := ConfigPath()
	if err != nil {
		// No home directory: run on defaults and environment only.
		return "", false, nil
	}
	return defaultPath, false, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
