// Package email sends mail over SMTP using github.com/wneessen/go-mail.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

// ServiceName identifies the SMTP wrapper in logs and errors.
const ServiceName = "email"

// Defaults used when SMTP_HOST and SMTP_PORT are unset.
const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 587
)

// Config configures the SMTP client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From defaults to Username.
	From string

	// Timeout bounds dialing and each SMTP command. Default: 30s
	Timeout time.Duration
}

// Message is an email to send.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string

	// HTML sends Body as text/html instead of text/plain.
	HTML bool
}

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Client composes and sends email.
type Client struct {
	exec   *protect.Executor
	sender Sender
	from   string
}

// New creates an SMTP client with PLAIN auth and mandatory STARTTLS
// (implicit TLS on port 465).
func New(cfg Config, exec *protect.Executor) (*Client, error) {
	cfg = withDefaults(cfg)

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	smtpClient, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	return NewWithSender(cfg, smtpClient, exec), nil
}

// NewWithSender creates a client that delivers through sender.
func NewWithSender(cfg Config, sender Sender, exec *protect.Executor) *Client {
	cfg = withDefaults(cfg)
	return &Client{exec: exec, sender: sender, from: cfg.From}
}

// From returns the sender address.
func (c *Client) From() string {
	return c.from
}

// Send composes msg and delivers it in a single SMTP session.
func (c *Client) Send(ctx context.Context, msg Message) error {
	return c.exec.Run(ctx, ServiceName, "send", func(ctx context.Context) error {
		m, err := c.compose(msg)
		if err != nil {
			return err
		}
		if err := c.sender.DialAndSendWithContext(ctx, m); err != nil {
			return classifySendError(err)
		}
		return nil
	})
}

func (c *Client) compose(msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, transport.InvalidRequest("at least one recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, transport.InvalidRequest("subject is required")
	}
	if c.from == "" {
		return nil, transport.InvalidRequest("sender address is not configured (set SMTP_FROM or SMTP_USERNAME)")
	}

	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return nil, transport.InvalidRequest("invalid sender %q: %v", c.from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, transport.InvalidRequest("invalid recipient: %v", err)
	}
	if len(msg.Cc) > 0 {
		if err := m.Cc(msg.Cc...); err != nil {
			return nil, transport.InvalidRequest("invalid cc recipient: %v", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()

	contentType := mail.TypeTextPlain
	if msg.HTML {
		contentType = mail.TypeTextHTML
	}
	m.SetBodyString(contentType, msg.Body)
	return m, nil
}

// classifySendError marks permanent SMTP failures (5xx replies, auth) as
// non-retryable.
func classifySendError(err error) error {
	var sendErr *mail.SendError
	if !errors.As(err, &sendErr) {
		return &transport.TransportError{
			Type:      transport.ErrorTypeConnection,
			Message:   "smtp delivery failed",
			Retryable: true,
			Cause:     err,
		}
	}
	errType := transport.ErrorTypeServer
	if !sendErr.IsTemp() {
		errType = transport.ErrorTypeClient
	}
	return &transport.TransportError{
		Type:      errType,
		Message:   "smtp delivery failed",
		Retryable: sendErr.IsTemp(),
		Cause:     err,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}
