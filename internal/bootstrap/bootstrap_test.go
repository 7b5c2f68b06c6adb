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

package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gazolla/cafeflow/internal/config"
	"github.com/gazolla/cafeflow/internal/integration"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/readiness"
)

var settingKeys = []string{
	integration.KeyRedditUserAgent,
	integration.KeySMTPUsername, integration.KeySMTPPassword, integration.KeySMTPHost,
	integration.KeySMTPPort, integration.KeySMTPFrom,
	integration.KeyTelegramToken, integration.KeyTelegramChatID, integration.KeyTelegramParseMode,
	integration.KeyTwitterBearer,
	integration.KeyDriveClientID, integration.KeyDriveClientSecret, integration.KeyDriveRefreshToken,
	integration.KeyGeminiAPIKey, integration.KeyGroqAPIKey, integration.KeyLLMModel, integration.KeyLLMRequestDelay,
}

// isolate clears every setting from the process environment and points the
// config lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range settingKeys {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("CAFEFLOW_CONFIG", "")
	t.Setenv("CAFEFLOW_METRICS_ADDR", "")
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func statusOf(t *testing.T, statuses []readiness.ComponentStatus, name string) readiness.ComponentStatus {
	t.Helper()
	for _, s := range statuses {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no status for %s", name)
	return readiness.ComponentStatus{}
}

func TestBoot_ReportsReadiness(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
components: [Reddit, Telegram, LLM]
env_file: `+filepath.Join(dir, "missing.env")+`
settings:
  TELEGRAM_BOT_TOKEN: "123:abc"
`)

	var buf bytes.Buffer
	logger := cflog.New(&cflog.Config{Level: "info", Format: cflog.FormatText, Output: &buf})

	rt, err := Boot(context.Background(), Options{ConfigPath: path, Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, readiness.StateReady, statusOf(t, rt.Statuses, integration.Reddit).State)
	assert.Equal(t, readiness.StateReady, statusOf(t, rt.Statuses, integration.Telegram).State)
	llmStatus := statusOf(t, rt.Statuses, integration.LLM)
	assert.Equal(t, readiness.StateMissingConfig, llmStatus.State)
	assert.Equal(t, []string{"GEMINI_API_KEY|GROQ_API_KEY"}, llmStatus.MissingKeys)
	assert.Equal(t, readiness.StateInactive, statusOf(t, rt.Statuses, integration.Email).State)

	assert.True(t, rt.HasMissing())
	assert.Equal(t, readiness.Render(rt.Statuses), rt.Report)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Equal(t, "file", rt.Settings.SourceOf(integration.KeyTelegramToken))
}

func TestBoot_EnvironmentWinsOverConfigFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
components: [Telegram]
settings:
  TELEGRAM_BOT_TOKEN: "from-file"
`)
	t.Setenv(integration.KeyTelegramToken, "from-env")

	rt, err := Boot(context.Background(), Options{ConfigPath: path, Logger: cflog.Discard()})
	require.NoError(t, err)

	v, ok := rt.Settings.Lookup(integration.KeyTelegramToken)
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)
	assert.False(t, rt.HasMissing())
}

func TestBoot_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "cafeflow.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GROQ_API_KEY=gsk_test\n"), 0o600))
	path := writeConfig(t, dir, "components: [LLM]\nenv_file: "+envFile+"\n")

	rt, err := Boot(context.Background(), Options{ConfigPath: path, Logger: cflog.Discard()})
	require.NoError(t, err)

	assert.Equal(t, readiness.StateReady, statusOf(t, rt.Statuses, integration.LLM).State)
	assert.Equal(t, "dotenv", rt.Settings.SourceOf(integration.KeyGroqAPIKey))
	require.NotNil(t, rt.Components.LLM)
}

func TestBoot_InvalidConfig(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "log:\n  level: loud\n")

	_, err := Boot(context.Background(), Options{ConfigPath: path, Logger: cflog.Discard()})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBoot_MalformedSettingValue(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
components: [Email]
settings:
  SMTP_PORT: "not-a-port"
`)

	_, err := Boot(context.Background(), Options{ConfigPath: path, Logger: cflog.Discard()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build components")
}
