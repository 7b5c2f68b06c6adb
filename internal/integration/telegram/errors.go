package telegram

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gazolla/cafeflow/internal/transport"
)

// APIError represents a Telegram Bot API error.
type APIError struct {
	ErrorCode   int
	Description string
	Cause       error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("Telegram API error %d: %s", e.ErrorCode, e.Description)
	if suggestion := getErrorSuggestion(e.ErrorCode); suggestion != "" {
		msg += fmt.Sprintf(" - %s", suggestion)
	}
	return msg
}

// Unwrap returns the transport error so retry classification stays reachable.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// parseError turns a failed transport call into an *APIError when the
// response body carries Telegram's {ok:false} envelope.
func parseError(err error) error {
	var tErr *transport.TransportError
	if !errors.As(err, &tErr) {
		return err
	}
	body := tErr.ResponseBody()
	if len(body) == 0 {
		return err
	}

	var env envelope
	if jsonErr := json.Unmarshal(body, &env); jsonErr != nil || env.OK || env.Description == "" {
		return err
	}
	return &APIError{ErrorCode: env.ErrorCode, Description: env.Description, Cause: err}
}

func getErrorSuggestion(code int) string {
	switch code {
	case 400:
		return "Check the chat id and message formatting"
	case 401:
		return "Bot token is invalid. Check TELEGRAM_BOT_TOKEN"
	case 403:
		return "Bot was blocked by the user or removed from the chat"
	case 404:
		return "Bot token is invalid or the method does not exist"
	case 429:
		return "Too many requests. Slow down API calls"
	default:
		return ""
	}
}
