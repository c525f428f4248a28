package mfa

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends plain text mail with PLAIN auth, retrying transient
// failures with exponential backoff.
type SMTPSender struct {
	cfg      SMTPConfig
	logger   *slog.Logger
	maxTries uint
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	return NewSMTPSenderWithTransport(cfg, logger, smtp.SendMail)
}

// NewSMTPSenderWithTransport replaces smtp.SendMail, for tests.
func NewSMTPSenderWithTransport(cfg SMTPConfig, logger *slog.Logger,
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error,
) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger, maxTries: 3, send: send}
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("smtp: invalid recipient %q", to)
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	msg := []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n" +
		body)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.send(addr, auth, s.cfg.From, []string{to}, msg)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.logger.WarnContext(ctx, "smtp send failed, retrying", "error", err, "retry_in", d)
		}),
	)
	return err
}

// LogEmailSender writes mail to the log instead of sending it. Used when no
// SMTP host is configured.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s LogEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	s.Logger.InfoContext(ctx, "email (not sent, no smtp host configured)", "to", to, "subject", subject, "body", body)
	return nil
}

// LogSMSSender is the default SMS channel until a gateway is wired in.
type LogSMSSender struct {
	Logger *slog.Logger
}

func (s LogSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.Logger.InfoContext(ctx, "sms (not sent, log sender)", "to", to, "body", body)
	return nil
}
