package service

import (
	"errors"

	"github.com/aussiebroadwan/identity/pkg/authsdk"
)

// OAuth2 style failures. The message is the reason code returned to clients.
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidToken            = errors.New("invalid_token")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrGrantNotImplemented     = errors.New("grant_not_implemented")
	ErrConsentRequired         = errors.New("consent_required")
	ErrAccessDenied            = errors.New("access_denied")
	ErrLoginRequired           = errors.New("login_required")
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrInvalidCode             = errors.New("invalid_code")
	ErrTooManyAttempts         = errors.New("too_many_attempts")
	ErrCodeNotSent             = errors.New("code_not_sent")

	// ErrInvalidRedirectURI is never sent back to the redirect_uri itself.
	ErrInvalidRedirectURI = errors.New("invalid_redirect_uri")
)

// MFARequiredError is returned by the authorize flow when the password was
// right but a second factor is still needed.
type MFARequiredError = authsdk.MFARequiredError

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Is lets callers match any validation failure with ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
