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
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvSource serves values parsed from a .env file. The file is read once
// at construction; the process environment is never modified.
type DotEnvSource struct {
	path   string
	values map[string]string
}

// NewDotEnvSource reads path. A missing file yields an unavailable source
// rather than an error; a malformed file is an error.
func NewDotEnvSource(path string) (*DotEnvSource, error) {
	src := &DotEnvSource{path: path}
	if path == "" {
		return src, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return src, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	src.values = values
	return src, nil
}

// Name returns the source identifier.
func (d *DotEnvSource) Name() string {
	return "dotenv"
}

// Path returns the file the source was read from.
func (d *DotEnvSource) Path() string {
	return d.path
}

// Get retrieves a value parsed from the file.
func (d *DotEnvSource) Get(_ context.Context, key string) (string, error) {
	if value, ok := d.values[key]; ok && strings.TrimSpace(value) != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s not in %s", ErrNotFound, key, d.path)
}

// Available reports whether a file was loaded.
func (d *DotEnvSource) Available() bool {
	return d.values != nil
}

// Priority returns the source priority.
func (d *DotEnvSource) Priority() int {
	return DotEnvPriority
}
