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

package protect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// records decodes every JSON log line written to buf.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func newTestExecutor() (*Executor, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(logger), &buf
}

func TestRunValue_Success(t *testing.T) {
	exec, buf := newTestExecutor()

	got, err := RunValue(context.Background(), exec, "reddit", "fetch", func(context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	recs := records(t, buf)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, "DEBUG", rec["level"])
		assert.Equal(t, "reddit", rec["service"])
		assert.Equal(t, "fetch", rec["operation"])
	}
	assert.Equal(t, "executing operation", recs[0]["msg"])
	assert.Equal(t, "operation completed", recs[1]["msg"])
}

func TestRunValue_FailureWrapsCause(t *testing.T) {
	exec, buf := newTestExecutor()
	cause := errors.New("timeout")

	got, err := RunValue(context.Background(), exec, "reddit", "fetch", func(context.Context) (int, error) {
		return 42, cause
	})

	require.Error(t, err)
	assert.Zero(t, got)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "reddit", pe.Service)
	assert.Equal(t, "fetch", pe.Operation)
	assert.Same(t, cause, pe.Cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "reddit: fetch failed: timeout", err.Error())

	recs := records(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "timeout", recs[1]["message"])
}

func TestRunValue_IOErrorCause(t *testing.T) {
	exec, _ := newTestExecutor()

	_, err := RunValue(context.Background(), exec, "reddit", "fetch", func(context.Context) (string, error) {
		return "", io.ErrUnexpectedEOF
	})

	pe, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, io.ErrUnexpectedEOF, pe.Cause)
}

func TestRunValue_PanicBecomesError(t *testing.T) {
	exec, _ := newTestExecutor()

	_, err := RunValue(context.Background(), exec, "llm", "classify", func(context.Context) (string, error) {
		panic("nil map")
	})

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "llm", pe.Service)
	assert.Equal(t, "classify", pe.Operation)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "nil map", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRun_Void(t *testing.T) {
	exec, _ := newTestExecutor()
	called := false

	err := exec.Run(context.Background(), "telegram", "send", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	err = exec.Run(context.Background(), "telegram", "send", func(context.Context) error {
		return errors.New("chat not found")
	})
	pe, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "telegram", pe.Service)
	assert.Equal(t, "send", pe.Operation)
}

func TestRunValue_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	got, err := RunValue(ctx, New(nil), "svc", "op", func(ctx context.Context) (any, error) {
		return ctx.Value(key{}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNilExecutor(t *testing.T) {
	var exec *Executor
	err := exec.Run(context.Background(), "svc", "op", func(context.Context) error { return nil })
	assert.NoError(t, err)
}
