package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type smtpSender struct {
	addr string
	host string
	auth smtp.Auth
}

func newSMTPSender(cfg Config) (*smtpSender, error) {
	if cfg.SMTPHost == "" {
		return nil, errors.New("mailer: smtp host is required")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	s := &smtpSender{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port)),
		host: cfg.SMTPHost,
	}
	if cfg.SMTPUser != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return s, nil
}

// Send uses STARTTLS when the server offers it. smtp.SendMail does not take
// a context, so cancellation is checked only before dialing.
func (s *smtpSender) Send(ctx context.Context, from string, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := buildMIME(from, msg, time.Now())
	if err := smtp.SendMail(s.addr, s.auth, from, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMIME renders a text message, or multipart/alternative when an HTML
// body is present.
func buildMIME(from string, msg Email, now time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }

	header("From", from)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if msg.HTMLBody == "" {
		header("Content-Type", `text/plain; charset="utf-8"`)
		b.WriteString("\r\n")
		b.WriteString(msg.TextBody)
		return []byte(b.String())
	}

	boundary := "studyhub-" + uuid.NewString()
	header("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	b.WriteString("\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.TextBody + "\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.HTMLBody + "\r\n")
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}
