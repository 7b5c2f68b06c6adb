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

package readiness

import "strings"

// Validate computes the status of every spec in registry order.
//
// A spec whose component is absent is Inactive with no missing keys. A
// present spec is Ready when every requirement has at least one key that
// lookup resolves to a non-blank value, and MissingConfig otherwise, with
// one entry per unsatisfied requirement in declaration order.
//
// Validate holds no state; identical inputs yield identical results.
func Validate(registry []ComponentSpec, present PresenceFunc, lookup LookupFunc) []ComponentStatus {
	statuses := make([]ComponentStatus, 0, len(registry))
	for _, spec := range registry {
		statuses = append(statuses, validateOne(spec, present, lookup))
	}
	return statuses
}

func validateOne(spec ComponentSpec, present PresenceFunc, lookup LookupFunc) ComponentStatus {
	if present == nil || !present(spec.Name) {
		return ComponentStatus{Name: spec.Name, State: StateInactive}
	}

	var missing []string
	for _, req := range spec.Requirements {
		if !satisfied(req, lookup) {
			missing = append(missing, req.String())
		}
	}

	if len(missing) > 0 {
		return ComponentStatus{Name: spec.Name, State: StateMissingConfig, MissingKeys: missing}
	}
	return ComponentStatus{Name: spec.Name, State: StateReady}
}

func satisfied(req SettingRequirement, lookup LookupFunc) bool {
	if len(req.LookupKeys) == 0 {
		return true
	}
	if lookup == nil {
		return false
	}
	for _, key := range req.LookupKeys {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Counts tallies statuses by state.
type Counts struct {
	Ready    int `json:"ready"`
	Missing  int `json:"missing"`
	Inactive int `json:"inactive"`
}

// Summarize counts statuses by state.
func Summarize(statuses []ComponentStatus) Counts {
	var c Counts
	for _, s := range statuses {
		switch s.State {
		case StateReady:
			c.Ready++
		case StateMissingConfig:
			c.Missing++
		case StateInactive:
			c.Inactive++
		}
	}
	return c
}

// HasMissing reports whether any status is MissingConfig.
func HasMissing(statuses []ComponentStatus) bool {
	return Summarize(statuses).Missing > 0
}
