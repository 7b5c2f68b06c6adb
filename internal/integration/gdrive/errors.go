package gdrive

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/gazolla/cafeflow/internal/transport"
)

// APIError represents a Google Drive API error.
type APIError struct {
	StatusCode int
	Status     string
	Reason     string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("Google Drive API error (status %d): %s", e.StatusCode, e.Message)
	if suggestion := getErrorSuggestion(e.Reason); suggestion != "" {
		msg += fmt.Sprintf(" - %s", suggestion)
	}
	return msg
}

// Unwrap returns the transport error.
func (e *APIError) Unwrap() error {
	return e.Cause
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func parseError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		// A rejected refresh token will not start working on retry.
		return &transport.TransportError{
			Type:    transport.ErrorTypeAuth,
			Message: "token refresh rejected: check GOOGLE_DRIVE_REFRESH_TOKEN and client credentials",
			Cause:   err,
		}
	}

	var tErr *transport.TransportError
	if !errors.As(err, &tErr) || tErr.StatusCode == 0 {
		return err
	}

	var ge googleError
	body := tErr.ResponseBody()
	if len(body) == 0 || json.Unmarshal(body, &ge) != nil || ge.Error.Message == "" {
		return err
	}
	apiErr := &APIError{
		StatusCode: tErr.StatusCode,
		Status:     ge.Error.Status,
		Message:    ge.Error.Message,
		Cause:      err,
	}
	if len(ge.Error.Errors) > 0 {
		apiErr.Reason = ge.Error.Errors[0].Reason
	}
	return apiErr
}

func getErrorSuggestion(reason string) string {
	suggestions := map[string]string{
		"authError":               "Access token is invalid. Check the Drive OAuth client",
		"insufficientPermissions": "Token lacks the drive.file scope",
		"notFound":                "File or folder does not exist or is not shared with this account",
		"storageQuotaExceeded":    "Drive storage quota exceeded",
		"userRateLimitExceeded":   "Per-user rate limit reached. Slow down API calls",
		"rateLimitExceeded":       "Project rate limit reached. Slow down API calls",
	}
	return suggestions[reason]
}
