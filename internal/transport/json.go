package transport

import (
	"encoding/json"
	"fmt"
)

// NewJSONRequest builds a request whose body is payload encoded as JSON.
func NewJSONRequest(method, url string, payload interface{}) (*Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return &Request{
		Method: method,
		URL:    url,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: body,
	}, nil
}

// DecodeJSON parses a JSON response body into target. An empty body is not an error.
func DecodeJSON(resp *Response, target interface{}) error {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
