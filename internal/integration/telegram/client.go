// Package telegram sends messages through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

// ServiceName identifies Telegram in logs and errors.
const ServiceName = "telegram"

// MaxMessageLength is the Bot API limit for a single message, in characters.
const MaxMessageLength = 4096

const defaultBaseURL = "https://api.telegram.org"

// Parse modes accepted by sendMessage.
const (
	ParseModeMarkdown = "MarkdownV2"
	ParseModeHTML     = "HTML"
)

// Config configures the Telegram client.
type Config struct {
	// Token is the bot token issued by BotFather.
	Token string

	// DefaultChatID is used by SendDefault.
	DefaultChatID string

	// ParseMode is sent with every message when set.
	ParseMode string

	// BaseURL defaults to https://api.telegram.org.
	BaseURL string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client sends bot messages.
type Client struct {
	exec          *protect.Executor
	transport     transport.Transport
	token         string
	defaultChatID string
	parseMode     string
}

// SendResult describes a delivered message. Long texts are delivered as
// several messages, in order.
type SendResult struct {
	ChatID     string  `json:"chat_id"`
	MessageIDs []int64 `json:"message_ids"`
}

type envelope struct {
	OK          bool        `json:"ok"`
	Result      sentMessage `json:"result"`
	ErrorCode   int         `json:"error_code"`
	Description string      `json:"description"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// New creates a Telegram client. A missing token is not an error here; calls
// fail with an authorization error instead.
func New(cfg Config, exec *protect.Executor) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	t, err := transport.NewHTTPTransport(&transport.HTTPConfig{
		BaseURL: cfg.BaseURL,
		Client:  cfg.HTTPClient,
		// Bot API allows about 30 messages per second across chats.
		RequestsPerSecond: 25,
		Burst:             5,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Client{
		exec:          exec,
		transport:     t,
		token:         cfg.Token,
		defaultChatID: cfg.DefaultChatID,
		parseMode:     cfg.ParseMode,
	}, nil
}

// DefaultChatID returns the chat SendDefault delivers to.
func (c *Client) DefaultChatID() string {
	return c.defaultChatID
}

// SendMessage sends text to chatID. Texts longer than MaxMessageLength are
// split on line boundaries where possible and sent as consecutive messages.
// On failure the returned result lists the chunks that were delivered.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*SendResult, error) {
	return c.ResumeMessage(ctx, chatID, text, nil, nil)
}

// ResumeMessage continues a delivery of text to chatID whose first
// len(sent) chunks were already accepted, so a retried delivery does not
// repeat them. progress, when set, receives the result after every accepted
// chunk.
func (c *Client) ResumeMessage(ctx context.Context, chatID, text string, sent []int64, progress func(*SendResult)) (*SendResult, error) {
	chunks := SplitMessage(text, MaxMessageLength)
	if len(sent) > len(chunks) {
		sent = sent[:len(chunks)]
	}
	result := &SendResult{ChatID: chatID, MessageIDs: append([]int64(nil), sent...)}
	for _, chunk := range chunks[len(sent):] {
		id, err := protect.RunValue(ctx, c.exec, ServiceName, "sendMessage", func(ctx context.Context) (int64, error) {
			return c.send(ctx, chatID, chunk)
		})
		if err != nil {
			return result, err
		}
		result.MessageIDs = append(result.MessageIDs, id)
		if progress != nil {
			progress(result)
		}
	}
	return result, nil
}

// SendDefault sends text to the configured default chat.
func (c *Client) SendDefault(ctx context.Context, text string) (*SendResult, error) {
	return c.SendMessage(ctx, c.defaultChatID, text)
}

func (c *Client) send(ctx context.Context, chatID, text string) (int64, error) {
	if strings.TrimSpace(chatID) == "" {
		return 0, transport.InvalidRequest("chat id is required (set TELEGRAM_CHAT_ID or pass one)")
	}
	if strings.TrimSpace(text) == "" {
		return 0, transport.InvalidRequest("message text is empty")
	}

	req, err := transport.NewJSONRequest(http.MethodPost, "/bot"+c.token+"/sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: c.parseMode,
	})
	if err != nil {
		return 0, err
	}

	resp, err := c.transport.Execute(ctx, req)
	if err != nil {
		return 0, parseError(err)
	}

	var env envelope
	if err := transport.DecodeJSON(resp, &env); err != nil {
		return 0, err
	}
	if !env.OK {
		return 0, &APIError{ErrorCode: env.ErrorCode, Description: env.Description}
	}
	return env.Result.MessageID, nil
}

// SplitMessage splits text into chunks of at most limit characters,
// preferring to break after a newline.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
