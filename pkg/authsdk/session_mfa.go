package authsdk

import (
	"context"
	"net/http"
)

// EnrollTOTP starts TOTP enrolment and returns the shared secret. The factor
// stays disabled until EnableTOTP confirms a code from it.
func (s *Session) EnrollTOTP(ctx context.Context) (*TOTPEnrollResponse, error) {
	var out TOTPEnrollResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/totp/enroll", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) EnableTOTP(ctx context.Context, code string) error {
	return s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/totp/enable", TOTPCodeRequest{Code: code}, nil, 0, nil)
}

// DisableTOTP removes the factor; a current code is required.
func (s *Session) DisableTOTP(ctx context.Context, code string) error {
	return s.doAuthJSON(ctx, http.MethodDelete, "/v1/mfa/totp", TOTPCodeRequest{Code: code}, nil, 0, nil)
}

// SendCode delivers a one-time code over sms or email.
func (s *Session) SendCode(ctx context.Context, req SendCodeRequest, idempotencyKey string) (*SendCodeResponse, error) {
	var out SendCodeResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/send-code", req, &out, http.StatusOK, idempotencyHeader(idempotencyKey)); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCode checks a code from SendCode, or a TOTP code when ProviderType
// is totp. A wrong code comes back as ErrInvalidCode.
func (s *Session) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResponse, error) {
	var out VerifyCodeResponse
	if err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/verify-code", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
