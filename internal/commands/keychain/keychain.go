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

// Package keychain implements "cafeflow keychain", which manages settings
// stored in the OS keychain.
package keychain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gazolla/cafeflow/internal/commands/shared"
	"github.com/gazolla/cafeflow/internal/integration"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/settings"
)

// NewCommand creates the keychain command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keychain",
		Short: "Manage settings stored in the OS keychain",
		Long: `Manage settings stored in the system keychain (macOS Keychain, Linux
Secret Service, Windows Credential Manager).

Keychain values are only read when "keychain: true" is set in config.yaml.
Environment variables and the .env file take precedence over them.`,
		Example: `  cafeflow keychain set TELEGRAM_BOT_TOKEN
  echo "$TOKEN" | cafeflow keychain set TWITTER_BEARER_TOKEN
  cafeflow keychain get GROQ_API_KEY
  cafeflow keychain delete GROQ_API_KEY`,
	}

	cmd.AddCommand(newSetCommand(), newGetCommand(), newDeleteCommand())
	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <KEY>",
		Short: "Store a setting (value read from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := validateKey(key); err != nil {
				return err
			}
			src, err := open()
			if err != nil {
				return err
			}

			value, err := readValue(cmd)
			if err != nil {
				return fmt.Errorf("read value: %w", err)
			}
			if value == "" {
				return errors.New("value cannot be empty")
			}

			if err := src.Set(cmd.Context(), key, value); err != nil {
				return shared.NewExecutionError("store "+key, err)
			}
			if !knownKey(key) {
				fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderWarn(key+" is not a setting any component reads"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("stored "+key))
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <KEY>",
		Short: "Show a stored setting, masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := open()
			if err != nil {
				return err
			}
			value, err := src.Get(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, settings.ErrNotFound) {
					return fmt.Errorf("%s is not stored in the keychain", args[0])
				}
				return shared.NewExecutionError("read "+args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", shared.RenderLabel(args[0]+":"), cflog.SanitizeAPIKey(value))
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <KEY>",
		Short: "Remove a stored setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := open()
			if err != nil {
				return err
			}
			if err := src.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, settings.ErrNotFound) {
					return fmt.Errorf("%s is not stored in the keychain", args[0])
				}
				return shared.NewExecutionError("delete "+args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("deleted "+args[0]))
			return nil
		},
	}
}

func open() (*settings.KeychainSource, error) {
	src := settings.NewKeychainSource()
	if !src.Available() {
		return nil, shared.NewExecutionError("keychain unavailable", settings.ErrSourceUnavailable)
	}
	return src, nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if strings.ContainsAny(key, " =") {
		return fmt.Errorf("key %q cannot contain spaces or '='", key)
	}
	return nil
}

// knownKey reports whether any component reads key.
func knownKey(key string) bool {
	for _, spec := range integration.Specs() {
		for _, req := range spec.Requirements {
			if slices.Contains(req.LookupKeys, key) {
				return true
			}
		}
	}
	return slices.Contains(integration.OptionalKeys(), key)
}

// readValue reads the value from stdin: hidden input on a terminal, the
// whole stream otherwise.
func readValue(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter value (hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
