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

// Package shared holds state and helpers common to every cafeflow command:
// global flags, exit codes, terminal styles and JSON output.
package shared

import (
	"log/slog"

	"github.com/spf13/pflag"

	cflog "github.com/gazolla/cafeflow/internal/log"
)

var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	configFlag  string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterGlobalFlags adds the persistent flags shared by every command.
func RegisterGlobalFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	fs.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-error output")
	fs.BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	fs.StringVar(&configFlag, "config", "", "Path to config file (default: ~/.config/cafeflow/config.yaml)")
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

func GetVerbose() bool {
	return verboseFlag
}

func GetQuiet() bool {
	return quietFlag
}

func GetJSON() bool {
	return jsonFlag
}

func GetConfigPath() string {
	return configFlag
}

// SetConfigPathForTest sets the --config value.
func SetConfigPathForTest(path string) {
	configFlag = path
}

// SetJSONForTest sets the --json value.
func SetJSONForTest(v bool) {
	jsonFlag = v
}

// LoggerOverride returns a debug logger when --verbose is set, and nil
// otherwise so the config file decides.
func LoggerOverride() *slog.Logger {
	if !verboseFlag {
		return nil
	}
	cfg := cflog.FromEnv()
	cfg.Level = "debug"
	return cflog.New(cfg)
}
