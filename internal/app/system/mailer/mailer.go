// Package mailer sends sign-in mail through SMTP, Amazon SES, or the log.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Transports.
const (
	TransportSMTP = "smtp"
	TransportSES  = "ses"
	TransportLog  = "log"
)

// Email is one outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a message from a fixed From address.
type Sender interface {
	Send(ctx context.Context, from string, msg Email) error
}

// Config selects and configures a transport.
type Config struct {
	Transport string
	From      string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	SESRegion    string
	SESAccessKey string
	SESSecretKey string
}

// Mailer stamps the From address and hands mail to the transport.
type Mailer struct {
	from   string
	sender Sender
	log    *zap.Logger
}

var ErrNoRecipient = errors.New("mailer: message has no recipient")

// New builds the transport named by cfg.Transport. An empty transport
// means log.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.From == "" {
		return nil, errors.New("mailer: from address is required")
	}

	var (
		sender Sender
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case TransportSMTP:
		sender, err = newSMTPSender(cfg)
	case TransportSES:
		sender, err = newSESSender(ctx, cfg)
	case TransportLog, "":
		sender = &LogSender{Log: logger}
	default:
		return nil, fmt.Errorf("mailer: unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, err
	}
	return NewWithSender(cfg.From, sender, logger), nil
}

// NewWithSender wraps an existing transport; tests use it with a capture.
func NewWithSender(from string, sender Sender, logger *zap.Logger) *Mailer {
	return &Mailer{from: from, sender: sender, log: logger}
}

// Send delivers msg.
func (m *Mailer) Send(ctx context.Context, msg Email) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := m.sender.Send(ctx, m.from, msg); err != nil {
		m.log.Warn("mail send failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return err
	}
	return nil
}

// LogSender writes mail to the logger instead of sending it. Used in
// development so magic links can be copied from the console.
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, from string, msg Email) error {
	s.Log.Info("mail (log transport)",
		zap.String("from", from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody))
	return nil
}
