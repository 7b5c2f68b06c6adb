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

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Glyphs used in the rendered report.
const (
	GlyphReady    = "✓"
	GlyphMissing  = "✗"
	GlyphInactive = "○"
)

// ReportTitle is the first line inside the report box.
const ReportTitle = "CafeFlow components"

// MissingHint is appended below the box when any component lacks configuration.
const MissingHint = "Hint: export the missing keys or add them under settings: in config.yaml, then restart."

const minNameWidth = 12

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// Render produces a boxed, fixed-width table with one line per status in the
// order given. Each line carries a glyph, the padded component name and one
// of "ready", "MISSING: <keys>" or "not active".
func Render(statuses []ComponentStatus) string {
	nameWidth := minNameWidth
	for _, s := range statuses {
		if w := lipgloss.Width(s.Name); w > nameWidth {
			nameWidth = w
		}
	}

	lines := make([]string, 0, len(statuses)+2)
	lines = append(lines, ReportTitle, "")
	for _, s := range statuses {
		lines = append(lines, fmt.Sprintf("%s %-*s %s", glyph(s.State), nameWidth, s.Name, detail(s)))
	}

	out := boxStyle.Render(strings.Join(lines, "\n"))
	if HasMissing(statuses) {
		out += "\n" + MissingHint
	}
	return out
}

func glyph(state State) string {
	switch state {
	case StateReady:
		return GlyphReady
	case StateMissingConfig:
		return GlyphMissing
	default:
		return GlyphInactive
	}
}

func detail(s ComponentStatus) string {
	switch s.State {
	case StateReady:
		return "ready"
	case StateMissingConfig:
		return "MISSING: " + strings.Join(s.MissingKeys, ", ")
	default:
		return "not active"
	}
}
