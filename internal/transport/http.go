package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 8 << 10

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// BaseURL is prefixed to request URLs that are paths ("/foo").
	BaseURL string

	// Client is the underlying HTTP client. Wrappers that authenticate through
	// golang.org/x/oauth2 pass the client returned by oauth2.NewClient.
	// Default: a client with Timeout.
	Client *http.Client

	// Timeout applies when Client is nil. Default: 30s
	Timeout time.Duration

	// UserAgent is sent on every request when set.
	UserAgent string

	// Headers are default headers sent on every request. Request headers win.
	Headers map[string]string

	// RequestsPerSecond enables a token-bucket limiter when positive.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Default: 1
	Burst int
}

// Validate checks the configuration.
func (c *HTTPConfig) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url must use http or https, got %q", c.BaseURL)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %v", c.RequestsPerSecond)
	}
	return nil
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	config  HTTPConfig
	client  *http.Client
	limiter RateLimiter
}

// NewHTTPTransport creates an HTTP transport from cfg.
func NewHTTPTransport(cfg *HTTPConfig) (*HTTPTransport, error) {
	if cfg == nil {
		cfg = &HTTPConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := *cfg
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}

	t := &HTTPTransport{config: c, client: client}
	if c.RequestsPerSecond > 0 {
		burst := c.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
	}
	return t, nil
}

// Name returns the transport identifier.
func (t *HTTPTransport) Name() string {
	return "http"
}

// SetRateLimiter configures rate limiting for this transport.
func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) {
	t.limiter = limiter
}

// BaseURL returns the configured base URL without a trailing slash.
func (t *HTTPTransport) BaseURL() string {
	return t.config.BaseURL
}

// Execute sends req and returns the response. Any non-2xx status is
// returned as a *TransportError carrying the response body in its metadata.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := t.validateRequest(req); err != nil {
		return nil, err
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, limiterError(ctx, err)
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.resolveURL(req.URL), body)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: "failed to build request",
			Cause:   err,
		}
	}

	if t.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}
	for k, v := range t.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(ctx, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeConnection,
			Message:   "failed to read response body",
			Retryable: true,
			Cause:     err,
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
		Metadata:   map[string]interface{}{},
	}
	requestID := firstHeader(httpResp.Header, "X-Request-Id", "X-Request-ID", "X-Goog-Request-Id")
	if requestID != "" {
		resp.Metadata[MetadataRequestID] = requestID
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		errType, retryable := classifyStatus(httpResp.StatusCode)
		kept := respBody
		if len(kept) > maxErrorBody {
			kept = kept[:maxErrorBody]
		}
		return nil, &TransportError{
			Type:       errType,
			StatusCode: httpResp.StatusCode,
			Message:    http.StatusText(httpResp.StatusCode),
			RequestID:  requestID,
			Retryable:  retryable,
			Metadata:   map[string]interface{}{MetadataResponseBody: kept},
		}
	}

	return resp, nil
}

func (t *HTTPTransport) validateRequest(req *Request) error {
	if req == nil {
		return &TransportError{Type: ErrorTypeInvalidReq, Message: "request is nil"}
	}
	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead:
	default:
		return &TransportError{Type: ErrorTypeInvalidReq, Message: fmt.Sprintf("unsupported method %q", req.Method)}
	}
	if req.URL == "" {
		return &TransportError{Type: ErrorTypeInvalidReq, Message: "request URL is empty"}
	}
	if strings.HasPrefix(req.URL, "/") && t.config.BaseURL == "" {
		return &TransportError{Type: ErrorTypeInvalidReq, Message: "relative URL without base_url"}
	}
	return nil
}

func (t *HTTPTransport) resolveURL(u string) string {
	if strings.HasPrefix(u, "/") {
		return t.config.BaseURL + u
	}
	return u
}

// limiterError classifies a failed limiter wait. rate.Limiter reports a wait
// that would outlive the deadline before the deadline passes, so anything but
// an explicit cancellation is a timeout.
func limiterError(ctx context.Context, err error) *TransportError {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &TransportError{Type: ErrorTypeCancelled, Message: "rate limiter wait cancelled", Cause: err}
	}
	return &TransportError{Type: ErrorTypeTimeout, Message: "rate limiter wait exceeds deadline", Retryable: true, Cause: err}
}

// classifyNetworkError maps a failed round trip to a TransportError. The
// *url.Error wrapper is dropped because its URL may carry credentials in the
// path (Telegram bot tokens).
func classifyNetworkError(ctx context.Context, err error) *TransportError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &TransportError{Type: ErrorTypeCancelled, Message: "request cancelled", Cause: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{Type: ErrorTypeTimeout, Message: "request timed out", Retryable: true, Cause: err}
	}
	return &TransportError{Type: ErrorTypeConnection, Message: "connection failed", Retryable: true, Cause: err}
}

func firstHeader(h http.Header, names ...string) string {
	for _, n := range names {
		if v := h.Get(n); v != "" {
			return v
		}
	}
	return ""
}
