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

// Package readiness decides, at process start, which external-service
// components can run with the configuration available, and renders the
// result as an operator-facing report.
//
// Validation never fails for missing configuration. It reports, and the
// caller decides whether to continue with degraded capability.
package readiness

import "strings"

// State is the readiness of one component.
type State string

const (
	// StateReady means the component is present and every requirement resolves.
	StateReady State = "ready"
	// StateMissingConfig means the component is present but at least one
	// requirement has no resolvable key.
	StateMissingConfig State = "missing_config"
	// StateInactive means the component is not present, regardless of settings.
	StateInactive State = "inactive"
)

// SettingRequirement is one configuration need. It is satisfied when at least
// one of LookupKeys resolves. A requirement with no keys is always satisfied.
type SettingRequirement struct {
	LookupKeys []string
}

// Require returns a requirement satisfied by key alone.
func Require(key string) SettingRequirement {
	return SettingRequirement{LookupKeys: []string{key}}
}

// AnyOf returns a requirement satisfied by any one of keys.
func AnyOf(keys ...string) SettingRequirement {
	return SettingRequirement{LookupKeys: append([]string(nil), keys...)}
}

// String joins the alternative keys with "|", the form used in reports.
func (r SettingRequirement) String() string {
	return strings.Join(r.LookupKeys, "|")
}

// ComponentSpec declares a component and the settings it needs.
type ComponentSpec struct {
	Name         string
	Requirements []SettingRequirement
	Description  string
}

// ComponentStatus is the computed readiness of one component.
type ComponentStatus struct {
	Name        string   `json:"name"`
	State       State    `json:"state"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// PresenceFunc reports whether a component was constructed and registered.
type PresenceFunc func(component string) bool

// LookupFunc resolves a setting by key. ok is false when the key is unset.
type LookupFunc func(key string) (value string, ok bool)
