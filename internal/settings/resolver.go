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
	"sort"
)

// Resolver queries a chain of Sources in priority order.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver from sources. Unavailable sources are
// dropped and the rest sorted by priority (highest first); ties keep the
// order given.
func NewResolver(sources ...Source) *Resolver {
	available := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil && s.Available() {
			available = append(available, s)
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Priority() > available[j].Priority()
	})

	return &Resolver{sources: available}
}

// Get retrieves a value by querying sources in priority order.
// Returns the first hit or an error wrapping ErrNotFound.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	value, _, err := r.resolve(ctx, key)
	return value, err
}

// Lookup is Get without a context or error detail. It has the signature of
// readiness.LookupFunc so a resolver can be handed straight to validation.
func (r *Resolver) Lookup(key string) (string, bool) {
	value, _, err := r.resolve(context.Background(), key)
	return value, err == nil
}

// SourceOf returns the name of the source that resolves key, or "".
func (r *Resolver) SourceOf(key string) string {
	_, name, err := r.resolve(context.Background(), key)
	if err != nil {
		return ""
	}
	return name
}

// GetOr returns the resolved value of key, or fallback when it is unset.
func (r *Resolver) GetOr(key, fallback string) string {
	if value, ok := r.Lookup(key); ok {
		return value
	}
	return fallback
}

// Sources returns the names of the active sources in query order.
func (r *Resolver) Sources() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

func (r *Resolver) resolve(ctx context.Context, key string) (string, string, error) {
	var lastErr error
	for _, src := range r.sources {
		value, err := src.Get(ctx, key)
		if err == nil {
			return value, src.Name(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("%w: %q (last error: %v)", ErrNotFound, key, lastErr)
	}
	return "", "", fmt.Errorf("%w: %q", ErrNotFound, key)
}
