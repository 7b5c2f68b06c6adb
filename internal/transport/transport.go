// Package transport provides the HTTP plumbing shared by the service wrappers.
//
// The transport layer separates protocol concerns (request construction,
// authentication headers, status classification, rate limiting) from the
// wrapper-level concerns of building a specific API call and parsing its
// response. Transports never retry: retry policy is owned by the workflow
// runtime that invokes the wrappers.
package transport

import (
	"context"
)

// Transport executes requests with protocol-specific handling.
type Transport interface {
	// Execute sends a request and returns a response.
	// The context controls cancellation and deadlines.
	// Returns *TransportError on failure.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Name returns the transport identifier (e.g., "http").
	Name() string

	// SetRateLimiter configures rate limiting for this transport.
	SetRateLimiter(limiter RateLimiter)
}

// Request represents a transport-agnostic request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, PATCH).
	// Required, must be non-empty
	Method string

	// URL is either an absolute URL or a path joined to the transport's base URL.
	URL string

	// Headers are request headers.
	// Optional, may be nil or empty map
	Headers map[string]string

	// Body is the request body.
	// Optional, may be nil or empty slice
	Body []byte
}

// Response represents a transport-agnostic response.
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Headers contains response headers
	Headers map[string][]string

	// Body is the response body
	Body []byte

	// Metadata contains transport-specific data (e.g., request IDs)
	Metadata map[string]interface{}
}

// Standard metadata keys used across transports
const (
	// MetadataRequestID is the service request ID
	MetadataRequestID = "request_id"

	// MetadataResponseBody carries the raw body of a failed response so
	// wrappers can extract service-specific error descriptions.
	MetadataResponseBody = "response_body"
)

// RateLimiter provides rate limiting for transport requests.
// Implementations should block until a request is allowed.
// *rate.Limiter from golang.org/x/time/rate satisfies this interface.
type RateLimiter interface {
	// Wait blocks until a request is allowed under the rate limit.
	// Returns an error if the context is cancelled before the request can proceed.
	Wait(ctx context.Context) error
}
