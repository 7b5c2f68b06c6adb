// Package llm wraps OpenAI-compatible chat completion endpoints (Gemini and
// Groq) behind narrow summarize and classify operations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

// ServiceName identifies the LLM wrapper in logs and errors. The backend is
// logged separately under the provider key.
const ServiceName = "llm"

// Provider names an OpenAI-compatible backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

// DefaultRequestDelay is the pause between sequential calls made by SummarizeEach.
const DefaultRequestDelay = 2 * time.Second

var providerDefaults = map[Provider]struct {
	baseURL string
	model   string
}{
	ProviderGemini: {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai/", model: "gemini-2.0-flash"},
	ProviderGroq:   {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile"},
}

// ChatClient captures the subset of the go-openai client used by the wrapper.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// Config configures the LLM client.
type Config struct {
	Provider Provider
	APIKey   string

	// Model defaults per provider.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// RequestDelay is the pause SummarizeEach inserts after one call returns
	// and before the next one starts.
	// Default: DefaultRequestDelay
	RequestDelay time.Duration

	HTTPClient *http.Client

	// Chat replaces the go-openai client.
	Chat ChatClient
}

// Classification is the result of Classify.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// UnknownLabel is reported when the model's answer cannot be used.
const UnknownLabel = "unknown"

// Client performs chat completions for one provider.
type Client struct {
	exec     *protect.Executor
	logger   *slog.Logger
	chat     ChatClient
	provider Provider
	model    string
	delay    time.Duration
}

// New creates an LLM client. An unknown provider is an error; a missing API
// key is not, calls fail with an authorization error instead.
func New(cfg Config, exec *protect.Executor, logger *slog.Logger) (*Client, error) {
	defaults, ok := providerDefaults[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = defaults.model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.baseURL
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = DefaultRequestDelay
	}

	chat := cfg.Chat
	if chat == nil {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		if cfg.HTTPClient != nil {
			oc.HTTPClient = cfg.HTTPClient
		}
		chat = openai.NewClientWithConfig(oc)
	}

	return &Client{
		exec:     exec,
		logger:   cflog.WithService(cflog.OrDefault(logger), ServiceName).With(slog.String(cflog.ProviderKey, string(cfg.Provider))),
		chat:     chat,
		provider: cfg.Provider,
		model:    cfg.Model,
		delay:    cfg.RequestDelay,
	}, nil
}

// Provider returns the backend in use.
func (c *Client) Provider() Provider {
	return c.provider
}

// Model returns the model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "complete", func(ctx context.Context) (string, error) {
		return c.chatOnce(ctx, "", prompt)
	})
}

// Summarize returns a summary of text in at most maxWords words.
func (c *Client) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = 100
	}
	system := fmt.Sprintf("You summarize content for a daily digest. Reply with plain text only, at most %d words.", maxWords)
	return protect.RunValue(ctx, c.exec, ServiceName, "summarize", func(ctx context.Context) (string, error) {
		return c.chatOnce(ctx, system, text)
	})
}

// SummarizeEach summarizes texts in order, waiting the configured request
// delay after each call completes before starting the next. It stops at the
// first failure and returns the summaries produced so far.
func (c *Client) SummarizeEach(ctx context.Context, texts []string, maxWords int) ([]string, error) {
	summaries := make([]string, 0, len(texts))
	for i, text := range texts {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return summaries, err
			}
		}
		summary, err := c.Summarize(ctx, text, maxWords)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (c *Client) pause(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Classify assigns text one of labels. Answers that cannot be decoded, or
// that name a label outside labels, yield UnknownLabel rather than an error.
func (c *Client) Classify(ctx context.Context, text string, labels []string) (Classification, error) {
	if len(labels) == 0 {
		return Classification{}, transport.InvalidRequest("at least one label is required")
	}
	system := fmt.Sprintf(
		`Classify the user's text into exactly one of these labels: %s. `+
			`Reply with a JSON object {"label": string, "confidence": number between 0 and 1, "reason": string}.`,
		strings.Join(labels, ", "))

	reply, err := protect.RunValue(ctx, c.exec, ServiceName, "classify", func(ctx context.Context) (string, error) {
		return c.chatOnce(ctx, system, text)
	})
	if err != nil {
		return Classification{}, err
	}

	result := DecodeJSON(c.logger, reply, Classification{Label: UnknownLabel})
	for _, l := range labels {
		if strings.EqualFold(l, result.Label) {
			result.Label = l
			return result, nil
		}
	}
	c.logger.Warn("model answered with a label outside the allowed set",
		slog.String("label", result.Label))
	return Classification{Label: UnknownLabel}, nil
}

func (c *Client) chatOnce(ctx context.Context, system, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", transport.InvalidRequest("prompt is empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	cflog.Trace(ctx, c.logger, "chat completion request",
		slog.String("model", c.model), slog.String("prompt", prompt))

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	cflog.Trace(ctx, c.logger, "chat completion response", slog.String("content", content))
	return content, nil
}

// classifyError maps go-openai errors onto transport errors so retry
// decisions follow the HTTP status.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return transport.NewStatusError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return transport.NewStatusError(reqErr.HTTPStatusCode, "", err)
	}
	if errors.Is(err, context.Canceled) {
		return &transport.TransportError{Type: transport.ErrorTypeCancelled, Message: "request cancelled", Cause: err}
	}
	return &transport.TransportError{Type: transport.ErrorTypeConnection, Message: "completion request failed", Retryable: true, Cause: err}
}
