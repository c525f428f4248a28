package mfa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
)

const (
	EmailCodeTTL = 10 * time.Minute
	SMSCodeTTL   = 5 * time.Minute
)

// codeProvider backs the delivered-code channels. The code is cached under
// mfa:{kind}:{user}:{identifier} before delivery and removed once verified.
type codeProvider struct {
	kind    string
	ttl     time.Duration
	cache   cache.Cache
	deliver func(ctx context.Context, to, code string) error
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (p *codeProvider) Type() string { return p.kind }

func (p *codeProvider) key(user domain.User, identifier string) string {
	return cache.MFACodeKey(p.kind, user.ID, identifier)
}

func (p *codeProvider) GenerateCode(_ context.Context, _ domain.User, _ string) (string, error) {
	return cryptox.GenerateNumericCode()
}

func (p *codeProvider) SendCode(ctx context.Context, user domain.User, identifier, code string) (bool, error) {
	if strings.TrimSpace(identifier) == "" {
		return false, fmt.Errorf("%s: identifier is required", strings.ToLower(p.kind))
	}
	if err := p.cache.Set(ctx, p.key(user, identifier), []byte(code), p.ttl); err != nil {
		return false, fmt.Errorf("store %s code: %w", strings.ToLower(p.kind), err)
	}
	if err := p.deliver(ctx, identifier, code); err != nil {
		p.logger.ErrorContext(ctx, "mfa code delivery failed",
			"provider", p.kind, "user_id", user.ID, "error", err)
		return false, nil
	}
	p.metrics.MFACodeSent(p.kind)
	return true, nil
}

// VerifyCode accepts a code once. The cached code is removed atomically on
// a match, so concurrent verifications of the same code see one success.
// A wrong guess leaves the code in place until it expires.
func (p *codeProvider) VerifyCode(ctx context.Context, user domain.User, identifier, code string) (bool, error) {
	if code == "" {
		p.metrics.MFAVerified(p.kind, false)
		return false, nil
	}
	ok, err := p.cache.DeleteIfEqual(ctx, p.key(user, identifier), []byte(code))
	if err != nil {
		return false, fmt.Errorf("consume %s code: %w", strings.ToLower(p.kind), err)
	}
	p.metrics.MFAVerified(p.kind, ok)
	return ok, nil
}

// EmailProvider delivers six digit codes by email.
type EmailProvider struct{ codeProvider }

func NewEmailProvider(c cache.Cache, sender EmailSender, logger *slog.Logger, m *metrics.Metrics) *EmailProvider {
	return &EmailProvider{codeProvider{
		kind:  TypeEmail,
		ttl:   EmailCodeTTL,
		cache: c,
		deliver: func(ctx context.Context, to, code string) error {
			return sender.SendEmail(ctx, to, emailSubject, emailBody(code))
		},
		logger:  logger,
		metrics: m,
	}}
}

// SMSProvider delivers six digit codes by text message.
type SMSProvider struct{ codeProvider }

func NewSMSProvider(c cache.Cache, sender SMSSender, logger *slog.Logger, m *metrics.Metrics) *SMSProvider {
	return &SMSProvider{codeProvider{
		kind:  TypeSMS,
		ttl:   SMSCodeTTL,
		cache: c,
		deliver: func(ctx context.Context, to, code string) error {
			return sender.SendSMS(ctx, to, fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code))
		},
		logger:  logger,
		metrics: m,
	}}
}

const emailSubject = "Your Multi-Factor Authentication Code"

func emailBody(code string) string {
	return fmt.Sprintf("Your MFA code is: %s\r\n\r\nThis code will expire in 10 minutes.\r\n\r\n"+
		"If you didn't request this code, please ignore this email.\r\n", code)
}
