// Package integration is the explicit component registry: it declares the
// settings each service wrapper needs and constructs the enabled wrappers
// from resolved settings.
package integration

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gazolla/cafeflow/internal/integration/email"
	"github.com/gazolla/cafeflow/internal/integration/gdrive"
	"github.com/gazolla/cafeflow/internal/integration/llm"
	"github.com/gazolla/cafeflow/internal/integration/reddit"
	"github.com/gazolla/cafeflow/internal/integration/telegram"
	"github.com/gazolla/cafeflow/internal/integration/twitter"
	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/readiness"
)

// Component names, in registry order.
const (
	Reddit      = "Reddit"
	Email       = "Email"
	Telegram    = "Telegram"
	Twitter     = "Twitter"
	GoogleDrive = "GoogleDrive"
	LLM         = "LLM"
)

// Setting keys read by Build.
const (
	KeyRedditUserAgent = "REDDIT_USER_AGENT"

	KeySMTPUsername = "SMTP_USERNAME"
	KeySMTPPassword = "SMTP_PASSWORD"
	KeySMTPHost     = "SMTP_HOST"
	KeySMTPPort     = "SMTP_PORT"
	KeySMTPFrom     = "SMTP_FROM"

	KeyTelegramToken     = "TELEGRAM_BOT_TOKEN"
	KeyTelegramChatID    = "TELEGRAM_CHAT_ID"
	KeyTelegramParseMode = "TELEGRAM_PARSE_MODE"

	KeyTwitterBearer = "TWITTER_BEARER_TOKEN"

	KeyDriveClientID     = "GOOGLE_DRIVE_CLIENT_ID"
	KeyDriveClientSecret = "GOOGLE_DRIVE_CLIENT_SECRET"
	KeyDriveRefreshToken = "GOOGLE_DRIVE_REFRESH_TOKEN"

	KeyGeminiAPIKey    = "GEMINI_API_KEY"
	KeyGroqAPIKey      = "GROQ_API_KEY"
	KeyLLMModel        = "LLM_MODEL"
	KeyLLMRequestDelay = "LLM_REQUEST_DELAY"
)

// ErrComponentInactive is returned when an operation needs a component that
// was not constructed.
var ErrComponentInactive = errors.New("component is not active")

// Specs returns the registry of components and the settings each requires,
// in report order.
func Specs() []readiness.ComponentSpec {
	return []readiness.ComponentSpec{
		{Name: Reddit, Description: "Reddit public listings"},
		{Name: Email, Description: "SMTP delivery", Requirements: []readiness.SettingRequirement{
			readiness.Require(KeySMTPUsername),
			readiness.Require(KeySMTPPassword),
		}},
		{Name: Telegram, Description: "Telegram bot messages", Requirements: []readiness.SettingRequirement{
			readiness.Require(KeyTelegramToken),
		}},
		{Name: Twitter, Description: "X API v2", Requirements: []readiness.SettingRequirement{
			readiness.Require(KeyTwitterBearer),
		}},
		{Name: GoogleDrive, Description: "Google Drive files", Requirements: []readiness.SettingRequirement{
			readiness.Require(KeyDriveClientID),
			readiness.Require(KeyDriveClientSecret),
			readiness.Require(KeyDriveRefreshToken),
		}},
		{Name: LLM, Description: "Gemini or Groq chat completions", Requirements: []readiness.SettingRequirement{
			readiness.AnyOf(KeyGeminiAPIKey, KeyGroqAPIKey),
		}},
	}
}

// OptionalKeys returns the settings components read when present but do
// not require.
func OptionalKeys() []string {
	return []string{
		KeyRedditUserAgent,
		KeySMTPHost, KeySMTPPort, KeySMTPFrom,
		KeyTelegramChatID, KeyTelegramParseMode,
		KeyLLMModel, KeyLLMRequestDelay,
	}
}

// Settings resolves setting values. *settings.Resolver satisfies it.
type Settings interface {
	Lookup(key string) (string, bool)
}

// BuildOptions configures Build.
type BuildOptions struct {
	Settings Settings

	// Enabled reports whether a component should be constructed.
	// Nil enables every component.
	Enabled func(name string) bool

	Executor   *protect.Executor
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Set holds the constructed components. A nil field means the component is
// not active.
type Set struct {
	Reddit   *reddit.Client
	Email    *email.Client
	Telegram *telegram.Client
	Twitter  *twitter.Client
	Drive    *gdrive.Client
	LLM      *llm.Client
}

// Build constructs every enabled component. Missing settings do not prevent
// construction; they are reported by Validate. Malformed settings are errors.
func Build(opts BuildOptions) (*Set, error) {
	logger := cflog.OrDefault(opts.Logger)
	get := func(key string) string {
		if opts.Settings == nil {
			return ""
		}
		v, _ := opts.Settings.Lookup(key)
		return v
	}
	enabled := func(name string) bool {
		return opts.Enabled == nil || opts.Enabled(name)
	}

	set := &Set{}
	var err error

	if enabled(Reddit) {
		set.Reddit, err = reddit.New(reddit.Config{
			UserAgent:  get(KeyRedditUserAgent),
			HTTPClient: opts.HTTPClient,
		}, opts.Executor)
		if err != nil {
			return nil, err
		}
	}

	if enabled(Email) {
		port := 0
		if raw := get(KeySMTPPort); raw != "" {
			port, err = strconv.Atoi(raw)
			if err != nil || port <= 0 || port > 65535 {
				return nil, fmt.Errorf("%s must be a port number, got %q", KeySMTPPort, raw)
			}
		}
		set.Email, err = email.New(email.Config{
			Host:     get(KeySMTPHost),
			Port:     port,
			Username: get(KeySMTPUsername),
			Password: get(KeySMTPPassword),
			From:     get(KeySMTPFrom),
		}, opts.Executor)
		if err != nil {
			return nil, err
		}
	}

	if enabled(Telegram) {
		set.Telegram, err = telegram.New(telegram.Config{
			Token:         get(KeyTelegramToken),
			DefaultChatID: get(KeyTelegramChatID),
			ParseMode:     get(KeyTelegramParseMode),
			HTTPClient:    opts.HTTPClient,
		}, opts.Executor)
		if err != nil {
			return nil, err
		}
	}

	if enabled(Twitter) {
		set.Twitter, err = twitter.New(twitter.Config{
			BearerToken: get(KeyTwitterBearer),
			HTTPClient:  opts.HTTPClient,
		}, opts.Executor)
		if err != nil {
			return nil, err
		}
	}

	if enabled(GoogleDrive) {
		set.Drive, err = gdrive.New(gdrive.Config{
			ClientID:     get(KeyDriveClientID),
			ClientSecret: get(KeyDriveClientSecret),
			RefreshToken: get(KeyDriveRefreshToken),
			HTTPClient:   opts.HTTPClient,
		}, opts.Executor)
		if err != nil {
			return nil, err
		}
	}

	if enabled(LLM) {
		cfg, err := llmConfig(get)
		if err != nil {
			return nil, err
		}
		cfg.HTTPClient = opts.HTTPClient
		set.LLM, err = llm.New(cfg, opts.Executor, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("llm provider selected",
			slog.String("provider", string(set.LLM.Provider())),
			slog.String("model", set.LLM.Model()))
	}

	return set, nil
}

// llmConfig prefers Gemini when its key resolves and falls back to Groq.
func llmConfig(get func(string) string) (llm.Config, error) {
	cfg := llm.Config{Provider: llm.ProviderGroq, APIKey: get(KeyGroqAPIKey), Model: get(KeyLLMModel)}
	if key := get(KeyGeminiAPIKey); key != "" {
		cfg.Provider = llm.ProviderGemini
		cfg.APIKey = key
	}
	if raw := get(KeyLLMRequestDelay); raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil || delay < 0 {
			return llm.Config{}, fmt.Errorf("%s must be a duration such as 2s, got %q", KeyLLMRequestDelay, raw)
		}
		cfg.RequestDelay = delay
	}
	return cfg, nil
}

// Present reports whether the named component was constructed.
func (s *Set) Present(name string) bool {
	if s == nil {
		return false
	}
	switch name {
	case Reddit:
		return s.Reddit != nil
	case Email:
		return s.Email != nil
	case Telegram:
		return s.Telegram != nil
	case Twitter:
		return s.Twitter != nil
	case GoogleDrive:
		return s.Drive != nil
	case LLM:
		return s.LLM != nil
	default:
		return false
	}
}

// Active returns the names of the constructed components in registry order.
func (s *Set) Active() []string {
	var names []string
	for _, spec := range Specs() {
		if s.Present(spec.Name) {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Validate reports the readiness of every registered component.
func (s *Set) Validate(lookup readiness.LookupFunc) []readiness.ComponentStatus {
	return readiness.Validate(Specs(), s.Present, lookup)
}

// Require returns ErrComponentInactive, wrapped with the component name,
// when name was not constructed.
func (s *Set) Require(name string) error {
	if !s.Present(name) {
		return fmt.Errorf("%s: %w", name, ErrComponentInactive)
	}
	return nil
}

// KnownComponent reports whether name is registered, ignoring case, and
// returns its canonical spelling.
func KnownComponent(name string) (string, bool) {
	for _, spec := range Specs() {
		if strings.EqualFold(spec.Name, name) {
			return spec.Name, true
		}
	}
	return "", false
}
