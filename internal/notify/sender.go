// AngelaMos | 2026
// sender.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mg "github.com/mailgun/mailgun-go/v4"
)

const (
	DriverLog     = "log"
	DriverMailgun = "mailgun"
)

var ErrUnknownDriver = errors.New("notify: unknown driver")

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}

type MailgunSender struct {
	client mg.Mailgun
	sender string
}

func NewMailgunSender(domain, apiKey, sender string) *MailgunSender {
	return &MailgunSender{
		client: mg.NewMailgun(domain, apiKey),
		sender: sender,
	}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.client.NewMessage(s.sender, msg.Subject, msg.Text, msg.To)
	if _, _, err := s.client.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

type SenderConfig struct {
	Driver        string
	MailgunDomain string
	MailgunAPIKey string
	Sender        string
}

func NewSender(cfg SenderConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Driver {
	case DriverLog, "":
		return LogSender{Logger: logger}, nil
	case DriverMailgun:
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.Sender), nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Driver, ErrUnknownDriver)
	}
}
