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

package settings

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvSource reads settings from the process environment.
type EnvSource struct {
	getenv func(string) (string, bool)
}

// NewEnvSource creates a source backed by os.LookupEnv.
func NewEnvSource() *EnvSource {
	return &EnvSource{getenv: os.LookupEnv}
}

// Name returns the source identifier.
func (e *EnvSource) Name() string {
	return "env"
}

// Get retrieves a setting from the environment. Blank values count as unset.
func (e *EnvSource) Get(_ context.Context, key string) (string, error) {
	if value, ok := e.getenv(key); ok && strings.TrimSpace(value) != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: environment variable %s not set", ErrNotFound, key)
}

// Available returns true as environment variables are always available.
func (e *EnvSource) Available() bool {
	return true
}

// Priority returns the source priority (highest).
func (e *EnvSource) Priority() int {
	return EnvPriority
}
