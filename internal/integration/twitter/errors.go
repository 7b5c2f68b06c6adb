package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gazolla/cafeflow/internal/transport"
)

// APIError represents an X (Twitter) API v2 error response.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("Twitter API error (status %d): %s", e.StatusCode, e.Title)
	if e.Detail != "" && e.Detail != e.Title {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if suggestion := getErrorSuggestion(e.StatusCode); suggestion != "" {
		msg += fmt.Sprintf(" - %s", suggestion)
	}
	return msg
}

// Unwrap returns the transport error.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// problem covers both v2 error shapes: RFC 7807 problems and the errors array.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func parseError(err error) error {
	var tErr *transport.TransportError
	if !errors.As(err, &tErr) || tErr.StatusCode == 0 {
		return err
	}

	apiErr := &APIError{StatusCode: tErr.StatusCode, Title: tErr.Message, Cause: err}
	var p problem
	if body := tErr.ResponseBody(); len(body) > 0 && json.Unmarshal(body, &p) == nil {
		if p.Title != "" {
			apiErr.Title = p.Title
		}
		apiErr.Detail = p.Detail
		if apiErr.Detail == "" && len(p.Errors) > 0 {
			msgs := make([]string, 0, len(p.Errors))
			for _, e := range p.Errors {
				msgs = append(msgs, e.Message)
			}
			apiErr.Detail = strings.Join(msgs, "; ")
		}
	}
	return apiErr
}

func getErrorSuggestion(statusCode int) string {
	switch statusCode {
	case 401:
		return "Bearer token is invalid or expired. Check TWITTER_BEARER_TOKEN"
	case 403:
		return "Token lacks the required scope or access level (tweet.write needs a user-context token)"
	case 429:
		return "Rate limit reached. Wait for the window to reset"
	default:
		return ""
	}
}
