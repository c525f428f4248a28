package mfa

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
)

// TOTP parameters shared by enrolment and verification.
const (
	TOTPPeriod = 30
	TOTPSkew   = 1
)

var totpOpts = totp.ValidateOpts{
	Period:    TOTPPeriod,
	Skew:      TOTPSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TOTPProvider checks codes against the user's enrolled authenticator app.
// Nothing is delivered, so SendCode always succeeds.
type TOTPProvider struct {
	Now     func() time.Time
	Metrics *metrics.Metrics
}

func (p *TOTPProvider) Type() string { return TypeTOTP }

func (p *TOTPProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// GenerateCode returns the current code for the user's secret.
func (p *TOTPProvider) GenerateCode(_ context.Context, user domain.User, _ string) (string, error) {
	if user.MFASecret == nil || *user.MFASecret == "" {
		return "", ErrTOTPNotEnrolled
	}
	code, err := totp.GenerateCodeCustom(*user.MFASecret, p.now(), totpOpts)
	if err != nil {
		return "", fmt.Errorf("generate totp: %w", err)
	}
	return code, nil
}

func (p *TOTPProvider) SendCode(context.Context, domain.User, string, string) (bool, error) {
	return true, nil
}

// VerifyCode accepts the pending secret too, so the enable step can reuse it.
func (p *TOTPProvider) VerifyCode(_ context.Context, user domain.User, _ string, code string) (bool, error) {
	if user.MFASecret == nil || *user.MFASecret == "" {
		return false, ErrTOTPNotEnrolled
	}
	ok, err := totp.ValidateCustom(code, *user.MFASecret, p.now(), totpOpts)
	if err != nil {
		// Malformed input (wrong length, non digits) is just a wrong code.
		ok = false
	}
	p.Metrics.MFAVerified(TypeTOTP, ok)
	return ok, nil
}

// GenerateSecret creates a new TOTP key for account.
func GenerateSecret(issuer, account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      TOTPPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}
