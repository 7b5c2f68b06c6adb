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
	"strings"
)

// MapSource serves values from an in-memory map, typically the settings
// section of the config file.
type MapSource struct {
	name     string
	priority int
	values   map[string]string
}

// NewFileSource wraps the settings map loaded from the config file.
func NewFileSource(values map[string]string) *MapSource {
	return NewMapSource("file", FilePriority, values)
}

// NewMapSource creates a map-backed source with an explicit name and priority.
func NewMapSource(name string, priority int, values map[string]string) *MapSource {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapSource{name: name, priority: priority, values: copied}
}

// Name returns the source identifier.
func (m *MapSource) Name() string {
	return m.name
}

// Get retrieves a value from the map.
func (m *MapSource) Get(_ context.Context, key string) (string, error) {
	if value, ok := m.values[key]; ok && strings.TrimSpace(value) != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Available returns true.
func (m *MapSource) Available() bool {
	return true
}

// Priority returns the source priority.
func (m *MapSource) Priority() int {
	return m.priority
}
