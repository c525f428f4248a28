package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
	"github.com/aussiebroadwan/identity/internal/auth/store"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// oauthError maps a service error to its wire form. It returns nil for
// errors that are not the caller's fault.
func oauthError(err error) *authsdk.OAuth2Error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, ve.Error())
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrInvalidClient):
		return authsdk.ErrInvalidClient
	case errors.Is(err, service.ErrInvalidRedirectURI):
		return authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "redirect_uri is invalid or not registered for the client")
	case errors.Is(err, service.ErrTooManyAttempts):
		return authsdk.ErrTooManyAttempts
	case errors.Is(err, service.ErrInvalidGrant), errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidGrant
	case errors.Is(err, service.ErrInvalidScope):
		return authsdk.ErrInvalidScope
	case errors.Is(err, service.ErrInvalidToken):
		return authsdk.ErrInvalidToken
	case errors.Is(err, service.ErrUnauthorizedClient):
		return authsdk.ErrUnauthorizedClient
	case errors.Is(err, service.ErrUnsupportedGrantType):
		return authsdk.ErrUnsupportedGrantType
	case errors.Is(err, service.ErrGrantNotImplemented):
		return authsdk.ErrGrantNotImplemented
	case errors.Is(err, service.ErrUnsupportedResponseType):
		return authsdk.ErrUnsupportedResponseType
	case errors.Is(err, service.ErrConsentRequired):
		return authsdk.ErrConsentRequired
	case errors.Is(err, service.ErrAccessDenied):
		return authsdk.ErrAccessDenied
	case errors.Is(err, service.ErrLoginRequired):
		return authsdk.ErrLoginRequired
	case errors.Is(err, service.ErrInvalidCode):
		return authsdk.ErrInvalidCode
	case errors.Is(err, service.ErrCodeNotSent):
		return authsdk.ErrTemporarilyUnavailable

	case errors.Is(err, mfa.ErrUnknownProvider):
		return authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "unknown provider_type")
	case errors.Is(err, service.ErrMFANotEnrolled), errors.Is(err, mfa.ErrTOTPNotEnrolled):
		return authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeMFANotEnrolled, "totp is not enrolled")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		return authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeMFAAlreadyEnabled, "totp is already enabled")

	case errors.Is(err, service.ErrWebAuthnFailed):
		return authsdk.ErrWebAuthnFailed
	case errors.Is(err, service.ErrChallengeNotFound):
		return authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeChallengeNotFound, "no pending challenge")
	case errors.Is(err, service.ErrNoCredentials):
		return authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeNoCredentials, "no active webauthn credentials")
	case errors.Is(err, service.ErrCredentialExists):
		return authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeAlreadyExists, "credential already registered")

	case errors.Is(err, service.ErrClientNotFound):
		return authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeNotFound, "client not found")
	case errors.Is(err, service.ErrUserNotFound):
		return authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeNotFound, "user not found")
	case errors.Is(err, store.ErrNotFound):
		return authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeNotFound, "not found")
	case errors.Is(err, service.ErrConsentNotFound):
		return authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeNotFound, "consent not found")
	case errors.Is(err, service.ErrClientExists):
		return authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeAlreadyExists, "client_id already registered")
	case errors.Is(err, service.ErrUserExists):
		return authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeAlreadyExists, "username already taken")
	case errors.Is(err, service.ErrClientProtected):
		return authsdk.NewOAuth2Error(http.StatusForbidden, authsdk.ErrorCodeAccessDenied, "client is protected")
	case errors.Is(err, service.ErrUnknownRole):
		return authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "unknown role")

	case errors.Is(err, service.ErrBootstrapAlready):
		return authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeAlreadyBootstrapped, "system has already been bootstrapped")
	case errors.Is(err, service.ErrBootstrapUnauthorized):
		return authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied, "invalid bootstrap token")
	}
	return nil
}

// writeError writes the mapped error, or logs err and writes server_error.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := slogx.FromContext(r.Context())
	if e := oauthError(err); e != nil {
		log.Debug(msg, "error", err, "code", e.Code)
		e.WriteError(w)
		return
	}
	log.Error(msg, "error", err)
	authsdk.ErrServerError.WriteError(w)
}
