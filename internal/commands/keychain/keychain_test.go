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

package keychain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func execute(stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := NewCommand()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestKeychain_SetGetDelete(t *testing.T) {
	keyring.MockInit()

	out, errOut, err := execute("gsk_1234567890\n", "set", "GROQ_API_KEY")
	require.NoError(t, err)
	assert.Contains(t, out, "stored GROQ_API_KEY")
	assert.Empty(t, errOut)

	stored, err := keyring.Get("cafeflow", "GROQ_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "gsk_1234567890", stored)

	out, _, err = execute("", "get", "GROQ_API_KEY")
	require.NoError(t, err)
	assert.Contains(t, out, "...7890")
	assert.NotContains(t, out, "gsk_1234567890")

	out, _, err = execute("", "delete", "GROQ_API_KEY")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted GROQ_API_KEY")

	_, _, err = execute("", "get", "GROQ_API_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not stored")
}

func TestKeychain_SetWarnsOnUnknownKey(t *testing.T) {
	keyring.MockInit()

	_, errOut, err := execute("value", "set", "SOMETHING_ELSE")
	require.NoError(t, err)
	assert.Contains(t, errOut, "not a setting any component reads")
}

func TestKeychain_SetRejectsBadInput(t *testing.T) {
	keyring.MockInit()

	_, _, err := execute("value", "set", "BAD KEY")
	assert.Error(t, err)

	_, _, err = execute("   \n", "set", "GROQ_API_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestKnownKey(t *testing.T) {
	assert.True(t, knownKey("GEMINI_API_KEY"))
	assert.True(t, knownKey("SMTP_PORT"))
	assert.False(t, knownKey("PATH"))
}
