package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/domain"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

var (
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
)

// MFAService covers TOTP enrolment and the send/verify code endpoints for a
// signed in user.
type MFAService struct {
	Store   store.Store
	Factory *mfa.Factory
	Issuer  string // shown in authenticator apps
}

// EnrollTOTP stores a pending secret. MFA is not active until EnableTOTP
// confirms a code generated from it.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (domain.MFAEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}
	if user.MFAEnabled != nil {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := mfa.GenerateSecret(s.Issuer, user.Username)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("store totp secret: %w", err)
	}

	return domain.MFAEnrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Username,
	}, nil
}

// EnableTOTP turns MFA on once code matches the pending secret.
func (s *MFAService) EnableTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled != nil {
		return ErrMFAAlreadyEnabled
	}
	if user.MFASecret == nil {
		return ErrMFANotEnrolled
	}

	ok, err := s.verify(ctx, mfa.TypeTOTP, user, "", code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return s.Store.Users().EnableMFA(ctx, userID, time.Now().UTC())
}

// DisableTOTP requires a current code.
func (s *MFAService) DisableTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasTOTP() {
		return ErrMFANotEnrolled
	}
	ok, err := s.verify(ctx, mfa.TypeTOTP, user, "", code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return s.Store.Users().DisableMFA(ctx, userID)
}

// SendCode generates and delivers a code. An empty identifier falls back to
// the address or number on file.
func (s *MFAService) SendCode(ctx context.Context, userID, providerType, identifier string) error {
	p, user, err := s.resolve(ctx, userID, providerType)
	if err != nil {
		return err
	}
	identifier = s.identifier(p, user, identifier)
	if err := sendCode(ctx, p, user, identifier); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("mfa code sent", "user_id", userID, "provider", p.Type())
	return nil
}

// VerifyCode returns ErrInvalidCode for any wrong, expired or unknown code.
func (s *MFAService) VerifyCode(ctx context.Context, userID, providerType, identifier, code string) error {
	p, user, err := s.resolve(ctx, userID, providerType)
	if err != nil {
		return err
	}
	ok, err := s.verify(ctx, p.Type(), user, s.identifier(p, user, identifier), code)
	if err != nil {
		return err
	}
	if !ok {
		slogx.FromContext(ctx).Warn("invalid mfa code", "user_id", userID, "provider", p.Type())
		return ErrInvalidCode
	}
	return nil
}

func (s *MFAService) resolve(ctx context.Context, userID, providerType string) (mfa.Provider, domain.User, error) {
	p, err := s.Factory.Get(providerType)
	if err != nil {
		return nil, domain.User{}, invalid("provider_type", err.Error())
	}
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, domain.User{}, err
	}
	return p, user, nil
}

func (s *MFAService) identifier(p mfa.Provider, user domain.User, given string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	return mfaIdentifier(p.Type(), user)
}

func (s *MFAService) verify(ctx context.Context, providerType string, user domain.User, identifier, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, invalid("code", "is required")
	}
	p, err := s.Factory.Get(providerType)
	if err != nil {
		return false, invalid("provider_type", err.Error())
	}
	ok, err := p.VerifyCode(ctx, user, identifier, code)
	if errors.Is(err, mfa.ErrTOTPNotEnrolled) {
		return false, ErrMFANotEnrolled
	}
	return ok, err
}
