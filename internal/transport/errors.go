package transport

import (
	"fmt"
	"net/http"
)

// ErrorType classifies transport errors for routing and retry decisions.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates request timeout or deadline exceeded
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates authentication failure (401, 403)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates client errors (4xx, non-retryable)
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeInvalidReq indicates request validation error (invalid method, URL, etc.)
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeCancelled indicates context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TransportError represents a structured error from transport execution.
type TransportError struct {
	// Type classifies the error for routing and retry decisions
	Type ErrorType

	// StatusCode is the HTTP status code if applicable.
	// Zero for non-HTTP errors (connection, timeout, etc.)
	StatusCode int

	// Message is a user-facing error message with credentials redacted
	Message string

	// RequestID is the request ID reported by the service, if any
	RequestID string

	// Retryable indicates whether a later attempt could succeed
	Retryable bool

	// Cause is the underlying error
	Cause error

	// Metadata contains service-specific debugging details
	Metadata map[string]interface{}
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error should be retried.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

// IsStatusCode returns true if the error has the given HTTP status code.
func (e *TransportError) IsStatusCode(code int) bool {
	return e.StatusCode == code
}

// IsType returns true if the error is of the given type.
func (e *TransportError) IsType(t ErrorType) bool {
	return e.Type == t
}

// ResponseBody returns the body of the failed response, if recorded.
func (e *TransportError) ResponseBody() []byte {
	if e.Metadata == nil {
		return nil
	}
	body, _ := e.Metadata[MetadataResponseBody].([]byte)
	return body
}

// classifyStatus maps a non-2xx status code to an error type and retryability.
func classifyStatus(statusCode int) (ErrorType, bool) {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth, false
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit, true
	case statusCode == http.StatusRequestTimeout:
		return ErrorTypeTimeout, true
	case statusCode >= 500:
		return ErrorTypeServer, true
	default:
		return ErrorTypeClient, false
	}
}

// InvalidRequest returns a non-retryable error for input rejected before any call is made.
func InvalidRequest(format string, args ...interface{}) *TransportError {
	return &TransportError{
		Type:    ErrorTypeInvalidReq,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewStatusError classifies a status code reported by a client library that
// does its own HTTP handling (go-openai, SMTP).
func NewStatusError(statusCode int, message string, cause error) *TransportError {
	errType, retryable := classifyStatus(statusCode)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &TransportError{
		Type:       errType,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
	}
}
