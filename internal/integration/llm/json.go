package llm

import (
	"encoding/json"
	"log/slog"
	"strings"

	cflog "github.com/gazolla/cafeflow/internal/log"
)

// ExtractJSON returns the substring from the first '{' to the last '}' of
// text. Models often wrap JSON in prose or code fences; the outermost braces
// are taken as the object.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeJSON decodes the JSON object embedded in text into a T. Any failure
// is logged at warning level and fallback is returned.
func DecodeJSON[T any](logger *slog.Logger, text string, fallback T) T {
	logger = cflog.OrDefault(logger)
	raw, ok := ExtractJSON(text)
	if !ok {
		logger.Warn("no JSON object in model output, using fallback",
			slog.Int("length", len(text)))
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn("failed to decode model JSON, using fallback",
			slog.String("error", err.Error()))
		return fallback
	}
	return out
}
