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

// Package check implements "cafeflow check", the startup readiness report.
package check

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gazolla/cafeflow/internal/bootstrap"
	"github.com/gazolla/cafeflow/internal/commands/shared"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/readiness"
)

type checkResponse struct {
	shared.JSONResponse
	Components []readiness.ComponentStatus `json:"components"`
	Counts     readiness.Counts            `json:"counts"`
	Sources    []string                    `json:"sources"`
}

// NewCommand creates the check command.
func NewCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which components can run with the current configuration",
		Long: `Check loads the configuration and settings sources, constructs every
enabled component and prints its readiness.

Components missing settings are reported, not fatal. Use --strict to exit
with code 3 when any component is missing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with code 3 when any component is missing configuration")
	return cmd
}

func run(cmd *cobra.Command, strict bool) error {
	logger := shared.LoggerOverride()
	if logger == nil {
		logger = cflog.Discard()
	}

	rt, err := bootstrap.Boot(cmd.Context(), bootstrap.Options{
		ConfigPath: shared.GetConfigPath(),
		Logger:     logger,
	})
	if err != nil {
		return shared.NewInvalidConfigError("load configuration", err)
	}

	counts := readiness.Summarize(rt.Statuses)
	out := cmd.OutOrStdout()

	if shared.GetJSON() {
		resp := checkResponse{
			JSONResponse: shared.NewJSONResponse("check", counts.Missing == 0),
			Components:   rt.Statuses,
			Counts:       counts,
			Sources:      rt.Settings.Sources(),
		}
		if err := shared.EmitJSON(out, resp); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	} else if !shared.GetQuiet() {
		fmt.Fprintln(out, rt.Report)
		if shared.GetVerbose() {
			fmt.Fprintf(out, "%s %v\n", shared.RenderLabel("settings sources:"), rt.Settings.Sources())
		}
		if counts.Missing > 0 {
			fmt.Fprintln(out, shared.RenderWarn(fmt.Sprintf("%d component(s) missing configuration", counts.Missing)))
		} else {
			fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("%d component(s) ready, %d inactive", counts.Ready, counts.Inactive)))
		}
	}

	if strict && counts.Missing > 0 {
		return shared.NewMissingConfigError(fmt.Sprintf("%d component(s) missing configuration", counts.Missing))
	}
	return nil
}
