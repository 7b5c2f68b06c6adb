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

// Package settings resolves named configuration values from layered sources.
//
// Sources are queried in priority order (highest first): the process
// environment, a .env file, the OS keychain and finally the settings map of
// the config file. A key resolves when some source holds a non-blank value.
package settings

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key does not exist in a source.
	ErrNotFound = errors.New("setting not found")

	// ErrSourceUnavailable is returned when a source cannot be used in the current environment.
	ErrSourceUnavailable = errors.New("settings source unavailable")

	// ErrReadOnly is returned when attempting to modify a read-only source.
	ErrReadOnly = errors.New("settings source is read-only")
)

// Standard priorities. Higher values are consulted first.
const (
	EnvPriority      = 100
	DotEnvPriority   = 75
	KeychainPriority = 50
	FilePriority     = 10
)

// Source provides read access to named settings.
type Source interface {
	// Name returns the source identifier (e.g., "env", "dotenv", "keychain", "file").
	Name() string

	// Get retrieves a value by key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) (string, error)

	// Available returns true if this source is usable in the current environment.
	Available() bool

	// Priority returns the resolution priority (higher = checked first).
	Priority() int
}

// Writer is implemented by sources that can store values.
type Writer interface {
	Source
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
