package llm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	cflog "github.com/gazolla/cafeflow/internal/log"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "bare object", text: `{"a":1}`, want: `{"a":1}`, wantOK: true},
		{name: "fenced", text: "```json\n{\"a\":1}\n```", want: `{"a":1}`, wantOK: true},
		{name: "nested keeps outermost", text: `x {"a":{"b":2}} y`, want: `{"a":{"b":2}}`, wantOK: true},
		{name: "two objects spans both", text: `{"a":1} and {"b":2}`, want: `{"a":1} and {"b":2}`, wantOK: true},
		{name: "no braces", text: "nothing here"},
		{name: "reversed braces", text: "} oops {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON_FallbackIsLoggedAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := cflog.New(&cflog.Config{Level: "warn", Format: cflog.FormatText, Output: &buf})

	type verdict struct {
		OK bool `json:"ok"`
	}
	fallback := verdict{OK: false}

	got := DecodeJSON(logger, `answer: {"ok": true}`, fallback)
	assert.True(t, got.OK)
	assert.Zero(t, buf.Len())

	got = DecodeJSON(logger, `{"ok": maybe}`, fallback)
	assert.Equal(t, fallback, got)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "using fallback")
}

func TestDecodeJSON_NilLogger(t *testing.T) {
	got := DecodeJSON(nil, "no json", 42)
	assert.Equal(t, 42, got)
}
