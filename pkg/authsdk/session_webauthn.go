package authsdk

import (
	"context"
	"net/http"
)

// WebAuthnRegisterChallenge opens a registration ceremony. The options go
// to navigator.credentials.create in the browser.
func (s *Session) WebAuthnRegisterChallenge(ctx context.Context, req WebAuthnRegisterChallengeRequest) (*WebAuthnRegistrationOptions, error) {
	var out WebAuthnRegistrationOptions
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/webauthn/register/challenge", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// WebAuthnRegisterComplete stores the credential. Binary fields are base64url.
func (s *Session) WebAuthnRegisterComplete(ctx context.Context, req WebAuthnRegisterCompleteRequest) (*WebAuthnCredentialInfo, error) {
	var out WebAuthnCredentialInfo
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/webauthn/register/complete", req, &out, http.StatusCreated, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) WebAuthnAuthenticateChallenge(ctx context.Context) (*WebAuthnAuthenticationOptions, error) {
	var out WebAuthnAuthenticationOptions
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/webauthn/authenticate/challenge", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// WebAuthnAuthenticateComplete verifies an assertion. A counter that does
// not advance is rejected as a cloned authenticator.
func (s *Session) WebAuthnAuthenticateComplete(ctx context.Context, req WebAuthnAuthenticateCompleteRequest) (*WebAuthnCredentialInfo, error) {
	var out WebAuthnCredentialInfo
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/webauthn/authenticate/complete", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
