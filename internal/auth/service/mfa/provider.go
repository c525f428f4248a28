// Package mfa implements the second factor strategies. Each provider knows
// how to produce, deliver and check a one-time code for one channel; the
// Factory picks a provider by name.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

// Provider type names, compared case-insensitively.
const (
	TypeTOTP  = "TOTP"
	TypeSMS   = "SMS"
	TypeEmail = "EMAIL"
)

var (
	ErrUnknownProvider = errors.New("unknown mfa provider")
	ErrTOTPNotEnrolled = errors.New("totp not enrolled")
)

// Provider is one second factor channel. identifier is the destination for
// delivered codes (an address or phone number) and is ignored by TOTP.
type Provider interface {
	Type() string
	GenerateCode(ctx context.Context, user domain.User, identifier string) (string, error)

	// SendCode reports false when the code could not be delivered. Errors are
	// reserved for infrastructure failures such as an unreachable cache.
	SendCode(ctx context.Context, user domain.User, identifier, code string) (bool, error)
	VerifyCode(ctx context.Context, user domain.User, identifier, code string) (bool, error)
}

type Factory struct {
	providers map[string]Provider
}

func NewFactory(providers ...Provider) *Factory {
	f := &Factory{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		f.providers[strings.ToUpper(p.Type())] = p
	}
	return f
}

// Get resolves providerType ("totp", "Sms", "EMAIL", ...).
func (f *Factory) Get(providerType string) (Provider, error) {
	p, ok := f.providers[strings.ToUpper(strings.TrimSpace(providerType))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerType)
	}
	return p, nil
}

// Types lists the registered provider names.
func (f *Factory) Types() []string {
	out := make([]string, 0, len(f.providers))
	for _, t := range []string{TypeTOTP, TypeSMS, TypeEmail} {
		if _, ok := f.providers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// AMR maps a provider type to the authentication method reference recorded
// in issued tokens.
func AMR(providerType string) string {
	if strings.EqualFold(providerType, TypeSMS) {
		return jwtx.AMRSMS
	}
	return jwtx.AMROTP
}
