package http

import (
	"net/http"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

// WebAuthnHandler runs the registration and authentication ceremonies for
// the signed in user. Challenges live in the cache until completed or
// expired.
type WebAuthnHandler struct {
	WebAuthnService *service.WebAuthnService
}

// HandleRegisterChallenge handles POST /v1/webauthn/register/challenge
//
//	@Summary		Begin passkey registration
//	@Description	Returns PublicKeyCredentialCreationOptions for navigator.credentials.create.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.WebAuthnRegisterChallengeRequest	false	"Display names"
//	@Success		200		{object}	service.RegistrationOptions
//	@Router			/v1/webauthn/register/challenge [post]
func (h *WebAuthnHandler) HandleRegisterChallenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.WebAuthnRegisterChallengeRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			authsdk.ErrInvalidJSONBody.WriteError(w)
			return
		}
	}
	if req.Name == "" {
		req.Name = claims.Username
	}

	opts, err := h.WebAuthnService.CreateRegistrationChallenge(r.Context(), claims.Subject, req.Name, req.DisplayName)
	if err != nil {
		writeError(w, r, "failed to create registration challenge", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, opts)
}

// HandleRegisterComplete handles POST /v1/webauthn/register/complete
//
//	@Summary		Finish passkey registration
//	@Description	Verifies the attestation against the pending challenge and stores the credential.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Idempotency-Key	header		string									false	"Replay protection key"
//	@Param			request			body		authsdk.WebAuthnRegisterCompleteRequest	true	"Authenticator output"
//	@Success		201				{object}	authsdk.WebAuthnCredentialInfo
//	@Failure		400				{object}	authsdk.ErrorResponse	"No pending challenge"
//	@Failure		401				{object}	authsdk.ErrorResponse	"Ceremony rejected"
//	@Failure		409				{object}	authsdk.ErrorResponse	"Credential already registered"
//	@Router			/v1/webauthn/register/complete [post]
func (h *WebAuthnHandler) HandleRegisterComplete(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.WebAuthnRegisterCompleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	resp := service.RegistrationResponse{
		UserID:       userID,
		CredentialID: req.CredentialID,
		Counter:      req.Counter,
		Name:         req.Name,
	}
	var err error
	if req.PublicKey != "" {
		if resp.PublicKey, err = decodeField("public_key", req.PublicKey); err != nil {
			writeError(w, r, "bad registration payload", err)
			return
		}
	}
	if resp.AttestationObject, err = decodeField("attestation_object", req.AttestationObject); err != nil {
		writeError(w, r, "bad registration payload", err)
		return
	}
	if resp.ClientDataJSON, err = decodeField("client_data_json", req.ClientDataJSON); err != nil {
		writeError(w, r, "bad registration payload", err)
		return
	}

	cred, err := h.WebAuthnService.CompleteRegistration(r.Context(), resp)
	if err != nil {
		writeError(w, r, "webauthn registration failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, credentialInfo(cred))
}

// HandleAuthenticateChallenge handles POST /v1/webauthn/authenticate/challenge
//
//	@Summary		Begin passkey authentication
//	@Description	Returns PublicKeyCredentialRequestOptions listing the user's registered credentials.
//	@Tags			WebAuthn
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	service.AuthenticationOptions
//	@Failure		400	{object}	authsdk.ErrorResponse	"No credentials registered"
//	@Router			/v1/webauthn/authenticate/challenge [post]
func (h *WebAuthnHandler) HandleAuthenticateChallenge(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	opts, err := h.WebAuthnService.CreateAuthenticationChallenge(r.Context(), userID)
	if err != nil {
		writeError(w, r, "failed to create authentication challenge", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, opts)
}

// HandleAuthenticateComplete handles POST /v1/webauthn/authenticate/complete
//
//	@Summary		Finish passkey authentication
//	@Description	Verifies the assertion signature. The signature counter must increase on every use.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.WebAuthnAuthenticateCompleteRequest	true	"Assertion"
//	@Success		200		{object}	authsdk.WebAuthnCredentialInfo
//	@Failure		401		{object}	authsdk.ErrorResponse	"Ceremony rejected"
//	@Router			/v1/webauthn/authenticate/complete [post]
func (h *WebAuthnHandler) HandleAuthenticateComplete(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.WebAuthnAuthenticateCompleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	resp := service.AssertionResponse{
		UserID:       userID,
		CredentialID: req.CredentialID,
		Counter:      req.Counter,
	}
	var err error
	if resp.AuthenticatorData, err = decodeField("authenticator_data", req.AuthenticatorData); err != nil {
		writeError(w, r, "bad assertion payload", err)
		return
	}
	if resp.ClientDataJSON, err = decodeField("client_data_json", req.ClientDataJSON); err != nil {
		writeError(w, r, "bad assertion payload", err)
		return
	}
	if resp.Signature, err = decodeField("signature", req.Signature); err != nil {
		writeError(w, r, "bad assertion payload", err)
		return
	}

	cred, err := h.WebAuthnService.CompleteAuthentication(r.Context(), resp)
	if err != nil {
		writeError(w, r, "webauthn authentication failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, credentialInfo(cred))
}

// decodeField reports an empty or undecodable field as a validation error.
func decodeField(name, value string) ([]byte, error) {
	if value == "" {
		return nil, &service.ValidationError{Field: name, Reason: "is required"}
	}
	b, err := decodeBinary(value)
	if err != nil {
		return nil, &service.ValidationError{Field: name, Reason: err.Error()}
	}
	return b, nil
}
