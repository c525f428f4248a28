package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

const sessionCookieName = "identity_session"

// AuthorizeHandler serves the authorization code endpoint.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Sessions         httpx.TokenAuthenticator
}

// HandleGet begins the flow from a browser redirect. Without a session it
// answers 401 login_required so the login page can collect credentials.
//
//	@Summary		OAuth2 authorization endpoint (GET)
//	@Description	Issues an authorization code when the caller already holds a session (bearer token or session cookie).
//	@Description	Public clients must send an S256 code_challenge; confidential clients may.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string					true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					true	"Registered callback URI"
//	@Param			scope					query		string					false	"Space-delimited scopes"	example("openid profile")
//	@Param			state					query		string					false	"Opaque CSRF value, echoed back"
//	@Param			code_challenge			query		string					false	"PKCE challenge"
//	@Param			code_challenge_method	query		string					false	"PKCE method"	default(S256)	Enums(S256, plain)
//	@Success		302						{string}	string					"Redirect to redirect_uri with code and state"
//	@Failure		400						{object}	authsdk.ErrorResponse	"Invalid client or redirect_uri"
//	@Failure		401						{object}	map[string]interface{}	"login_required"
//	@Failure		403						{object}	map[string]interface{}	"consent_required"
//	@Router			/v1/oauth2/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	req := buildAuthorizeRequest(nil, r.URL.Query())
	req.Session = h.resolveSession(r)
	h.processAuthorize(w, r, req)
}

// HandlePost authenticates with a session, a username and password, or the
// second step of an MFA login.
//
//	@Summary		OAuth2 authorization endpoint (POST)
//	@Description	Authenticates the user and issues an authorization code.
//	@Description	A password login for a user with TOTP enabled answers 409 mfa_required with an mfa_token;
//	@Description	resubmit with mfa_token, mfa_method and mfa_code. For sms and email, an empty mfa_code sends a fresh code.
//	@Description	Clients that require consent answer 403 consent_required until approve_consent=true is sent.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			response_type			formData	string					true	"Must be 'code'"
//	@Param			client_id				formData	string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			formData	string					true	"Registered callback URI"
//	@Param			scope					formData	string					false	"Space-delimited scopes"
//	@Param			state					formData	string					false	"Opaque CSRF value, echoed back"
//	@Param			code_challenge			formData	string					false	"PKCE challenge"
//	@Param			code_challenge_method	formData	string					false	"PKCE method"	Enums(S256, plain)
//	@Param			username				formData	string					false	"Username for password authentication"
//	@Param			password				formData	string					false	"Password for password authentication"
//	@Param			approve_consent			formData	bool					false	"Record consent for the requested scopes"
//	@Param			mfa_token				formData	string					false	"Token from a previous 409 response"
//	@Param			mfa_method				formData	string					false	"Second factor"	Enums(totp, sms, email)
//	@Param			mfa_code				formData	string					false	"One-time code"
//	@Success		302						{string}	string					"Redirect to redirect_uri with code and state"
//	@Success		409						{object}	map[string]interface{}	"mfa_required"
//	@Failure		400						{object}	authsdk.ErrorResponse	"Invalid request"
//	@Failure		401						{object}	authsdk.ErrorResponse	"Authentication failed"
//	@Failure		403						{object}	map[string]interface{}	"consent_required"
//	@Router			/v1/oauth2/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if !isFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	req := buildAuthorizeRequest(r.PostForm, r.URL.Query())
	req.Session = h.resolveSession(r)
	req.Username = strings.TrimSpace(r.PostForm.Get("username"))
	req.Password = r.PostForm.Get("password")
	req.ApproveConsent, _ = strconv.ParseBool(r.PostForm.Get("approve_consent"))

	h.processAuthorize(w, r, req)
}

// buildAuthorizeRequest prefers the form body and falls back to the query.
func buildAuthorizeRequest(primary, secondary url.Values) service.AuthorizeRequest {
	pick := func(key string) string {
		if v := strings.TrimSpace(primary.Get(key)); v != "" {
			return v
		}
		return strings.TrimSpace(secondary.Get(key))
	}

	return service.AuthorizeRequest{
		ResponseType:        pick("response_type"),
		ClientID:            pick("client_id"),
		RedirectURI:         pick("redirect_uri"),
		Scope:               httpx.ParseSpaceDelimitedFields(pick("scope")),
		State:               pick("state"),
		CodeChallenge:       pick("code_challenge"),
		CodeChallengeMethod: pick("code_challenge_method"),
		MFAToken:            pick("mfa_token"),
		MFAMethod:           pick("mfa_method"),
		MFACode:             pick("mfa_code"),
	}
}

func (h *AuthorizeHandler) processAuthorize(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest) {
	resp, err := h.AuthorizeService.IssueAuthorizationCode(r.Context(), req)
	if err != nil {
		h.handleAuthorizeError(w, r, req, err)
		return
	}

	redirectURL, err := buildAuthorizeRedirect(resp.RedirectURI, resp.Code, resp.State)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to build redirect URL", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// handleAuthorizeError redirects request errors back to the client. Client
// and redirect_uri failures are never redirected (RFC 6749 section 4.1.2.1),
// and neither are authentication or consent outcomes: those go to the login
// page driving the flow.
func (h *AuthorizeHandler) handleAuthorizeError(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest, err error) {
	log := slogx.FromContext(r.Context())

	var mfaErr *service.MFARequiredError
	if errors.As(err, &mfaErr) {
		mfaErr.WriteError(w)
		return
	}

	switch {
	case errors.Is(err, service.ErrLoginRequired):
		writeFlowError(w, authsdk.ErrLoginRequired, req)
		return
	case errors.Is(err, service.ErrConsentRequired):
		writeFlowError(w, authsdk.ErrConsentRequired, req)
		return
	}

	oauthErr := oauthError(err)
	if oauthErr == nil {
		log.Error("authorize request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if redirectable(err) && req.RedirectURI != "" {
		if target := buildErrorRedirect(req.RedirectURI, req.State, oauthErr); target != "" {
			log.Debug("authorize error redirected", "code", oauthErr.Code, "client_id", req.ClientID)
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}
	log.Debug("authorize request rejected", "code", oauthErr.Code, "client_id", req.ClientID)
	oauthErr.WriteError(w)
}

// redirectable is true for errors about the authorization request itself.
// response_type is checked before the redirect_uri, so it is not.
func redirectable(err error) bool {
	switch {
	case errors.Is(err, service.ErrInvalidClient),
		errors.Is(err, service.ErrInvalidRedirectURI),
		errors.Is(err, service.ErrUnsupportedResponseType),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidGrant),
		errors.Is(err, service.ErrTooManyAttempts),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrCodeNotSent):
		return false
	}
	return true
}

// writeFlowError echoes the request so a login or consent page can resume it.
func writeFlowError(w http.ResponseWriter, e *authsdk.OAuth2Error, req service.AuthorizeRequest) {
	payload := map[string]any{
		"error":             e.Code,
		"error_description": e.Description,
		"response_type":     req.ResponseType,
		"client_id":         req.ClientID,
		"redirect_uri":      req.RedirectURI,
	}
	if len(req.Scope) > 0 {
		payload["scope"] = strings.Join(req.Scope, " ")
	}
	if req.State != "" {
		payload["state"] = req.State
	}
	httpx.WriteJSON(w, e.StatusCode, payload)
}

// resolveSession accepts a bearer token or the session cookie. An invalid
// token is treated as no session.
func (h *AuthorizeHandler) resolveSession(r *http.Request) *service.SessionContext {
	if h.Sessions == nil {
		return nil
	}
	token, ok := httpx.BearerToken(r)
	if !ok {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil
	}

	claims, err := h.Sessions.Authenticate(r.Context(), token)
	if err != nil {
		slogx.FromContext(r.Context()).Debug("ignoring invalid session token", "error", err)
		return nil
	}
	if claims.Subject == "" {
		return nil
	}
	return &service.SessionContext{
		UserID:    claims.Subject,
		SessionID: claims.SID,
		AMR:       claims.AMR,
	}
}

func buildAuthorizeRedirect(baseURI, code, state string) (string, error) {
	u, err := url.Parse(baseURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// buildErrorRedirect returns "" when baseURI does not parse.
func buildErrorRedirect(baseURI, state string, e *authsdk.OAuth2Error) string {
	u, err := url.Parse(baseURI)
	if err != nil {
		return ""
	}

	q := u.Query()
	q.Set("error", e.Code)
	if e.Description != "" {
		q.Set("error_description", e.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
