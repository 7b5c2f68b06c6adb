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

package check

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gazolla/cafeflow/internal/commands/shared"
	"github.com/gazolla/cafeflow/internal/readiness"
)

func setup(t *testing.T, configBody string) {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{"GEMINI_API_KEY", "GROQ_API_KEY", "TELEGRAM_BOT_TOKEN", "CAFEFLOW_CONFIG", "CAFEFLOW_METRICS_ADDR"} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "config.yaml")
	body := configBody + "\nenv_file: " + filepath.Join(dir, "none.env") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	shared.SetConfigPathForTest(path)
	t.Cleanup(func() {
		shared.SetConfigPathForTest("")
		shared.SetJSONForTest(false)
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck_ReportsMissing(t *testing.T) {
	setup(t, "components: [Reddit, LLM]")

	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "MISSING: GEMINI_API_KEY|GROQ_API_KEY")
	assert.Contains(t, out, readiness.MissingHint)
	assert.Contains(t, out, "1 component(s) missing configuration")
}

func TestCheck_StrictExitCode(t *testing.T) {
	setup(t, "components: [LLM]")

	_, err := execute(t, "--strict")
	require.Error(t, err)
	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, shared.ExitMissingConfig, exitErr.Code)
}

func TestCheck_StrictPassesWhenReady(t *testing.T) {
	setup(t, "components: [Reddit, Telegram]\nsettings:\n  TELEGRAM_BOT_TOKEN: \"1:x\"")

	out, err := execute(t, "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "2 component(s) ready")
}

func TestCheck_JSON(t *testing.T) {
	setup(t, "components: [Reddit, LLM]")
	shared.SetJSONForTest(true)

	out, err := execute(t)
	require.NoError(t, err)

	var resp checkResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "check", resp.Command)
	assert.Equal(t, readiness.Counts{Ready: 1, Missing: 1, Inactive: 4}, resp.Counts)
	require.Len(t, resp.Components, 6)
	assert.Equal(t, "Reddit", resp.Components[0].Name)
}

func TestCheck_InvalidConfig(t *testing.T) {
	setup(t, "log:\n  format: xml")

	_, err := execute(t)
	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, shared.ExitInvalidConfig, exitErr.Code)
}
