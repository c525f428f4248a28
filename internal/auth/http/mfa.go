package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// MFAHandler serves second factor management for the signed in user.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll handles POST /v1/mfa/totp/enroll
//
//	@Summary		Start TOTP enrolment
//	@Description	Stores a pending secret and returns it with an otpauth:// URL for QR rendering.
//	@Description	MFA stays off until the first code is confirmed at /v1/mfa/totp/enable.
//	@Tags			MFA
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.TOTPEnrollResponse
//	@Failure		409	{object}	authsdk.ErrorResponse	"MFA already enabled"
//	@Router			/v1/mfa/totp/enroll [post]
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	enrollment, err := h.MFAService.EnrollTOTP(r.Context(), userID)
	if err != nil {
		writeError(w, r, "failed to enroll totp", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.TOTPEnrollResponse{
		Secret:  enrollment.Secret,
		URL:     enrollment.URL,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleEnable handles POST /v1/mfa/totp/enable
//
//	@Summary		Confirm TOTP enrolment
//	@Tags			MFA
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	authsdk.TOTPCodeRequest	true	"Code from the authenticator app"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"Wrong code"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Not enrolled or already enabled"
//	@Router			/v1/mfa/totp/enable [post]
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, "failed to enable totp", h.MFAService.EnableTOTP)
}

// HandleDisable handles DELETE /v1/mfa/totp
//
//	@Summary		Turn TOTP off
//	@Description	Requires a current code.
//	@Tags			MFA
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	authsdk.TOTPCodeRequest	true	"Current code"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"Wrong code"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Not enrolled"
//	@Router			/v1/mfa/totp [delete]
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, "failed to disable totp", h.MFAService.DisableTOTP)
}

func (h *MFAHandler) withCode(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, userID, code string) error) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.TOTPCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}
	if err := fn(r.Context(), userID, req.Code); err != nil {
		writeError(w, r, msg, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSendCode handles POST /v1/mfa/send-code
//
//	@Summary		Send a one-time code
//	@Description	Delivers a code over sms or email. Without an identifier the number or address on file is used.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string					false	"Replay protection key"
//	@Param			request			body		authsdk.SendCodeRequest	true	"Provider and destination"
//	@Success		200				{object}	authsdk.SendCodeResponse
//	@Failure		400				{object}	authsdk.ErrorResponse	"Unknown provider or no destination"
//	@Router			/v1/mfa/send-code [post]
func (h *MFAHandler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.SendCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}
	if err := h.MFAService.SendCode(r.Context(), userID, req.ProviderType, req.Identifier); err != nil {
		writeError(w, r, "failed to send mfa code", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.SendCodeResponse{ProviderType: req.ProviderType, Sent: true})
}

// HandleVerifyCode handles POST /v1/mfa/verify-code
//
//	@Summary		Check a one-time code
//	@Description	Works for totp, sms and email. A code is single use.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.VerifyCodeRequest	true	"Provider and code"
//	@Success		200		{object}	authsdk.VerifyCodeResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Wrong or expired code"
//	@Router			/v1/mfa/verify-code [post]
func (h *MFAHandler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.VerifyCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}
	if err := h.MFAService.VerifyCode(r.Context(), userID, req.ProviderType, req.Identifier, req.Code); err != nil {
		writeError(w, r, "failed to verify mfa code", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyCodeResponse{Verified: true})
}
