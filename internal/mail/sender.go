package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/config"
)

// Sender delivers an outbound reply. Failures are reported to the caller
// for logging; the ingestion pipeline never retries them.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SmtpSender sends replies over SMTP with STARTTLS. Without a password it
// runs in mock mode and only logs the reply, which keeps development
// environments from mailing real customers.
type SmtpSender struct {
	cfg    config.SmtpConfig
	from   string
	logger *zap.Logger
}

// NewSmtpSender constructs the sender.
func NewSmtpSender(cfg config.SmtpConfig, from string, logger *zap.Logger) *SmtpSender {
	return &SmtpSender{cfg: cfg, from: from, logger: logger}
}

// Send delivers one reply mail.
func (s *SmtpSender) Send(ctx context.Context, to, subject, body string) error {
	if s.cfg.Password == "" {
		s.logger.Info("mock mode: reply not dialed out",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Int("body_len", len(body)))
		return nil
	}

	msg := buildMessage(s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		s.logger.Info("reply sent", zap.String("to", to), zap.String("subject", subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
