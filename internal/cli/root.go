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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gazolla/cafeflow/internal/commands/check"
	"github.com/gazolla/cafeflow/internal/commands/digest"
	"github.com/gazolla/cafeflow/internal/commands/keychain"
	"github.com/gazolla/cafeflow/internal/commands/shared"
	versioncmd "github.com/gazolla/cafeflow/internal/commands/version"
	workercmd "github.com/gazolla/cafeflow/internal/commands/worker"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// NewRootCommand creates the root Cobra command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cafeflow",
		Short: "CafeFlow - service integrations for Temporal workflows",
		Long: `CafeFlow wraps external services (Reddit, email, Telegram, X, Google
Drive and LLM providers) as Temporal activities and reports at startup
which of them can run with the configuration available.

Run 'cafeflow check' to see component readiness.
Run 'cafeflow worker' to start processing workflows.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	shared.RegisterGlobalFlags(cmd.PersistentFlags())

	cmd.AddCommand(check.NewCommand())
	cmd.AddCommand(workercmd.NewCommand())
	cmd.AddCommand(digest.NewCommand())
	cmd.AddCommand(keychain.NewCommand())
	cmd.AddCommand(versioncmd.NewVersionCommand())

	return cmd
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
